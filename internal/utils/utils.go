// Package utils contains general helper functions used across mdpack.
package utils

import (
	"path"
	"path/filepath"
	"strings"
)

// File names shared across the project.
const (
	// ConfigFileName is the name of the local configuration file.
	ConfigFileName = "mdpack.yaml"
	// LegacyConfigFileName is the configuration file written by earlier merge tooling.
	LegacyConfigFileName = "merge_config.json"
	// GlobalConfigDirectoryName is the directory under the home directory holding global configuration.
	GlobalConfigDirectoryName = ".mdpack"
	// GlobalConfigFileName is the name of the global configuration file.
	GlobalConfigFileName = "config.yaml"
	// OutputFilePrefix starts every default merged document name.
	OutputFilePrefix = "merged_output_"
	// OutputFileExtension ends every default merged document name.
	OutputFileExtension = ".md"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
)

const pathSegmentSeparator = "/"

// DefaultOutputFileName derives the merged document name for a source directory.
func DefaultOutputFileName(sourceDirectory string) string {
	return OutputFilePrefix + filepath.Base(filepath.Clean(sourceDirectory)) + OutputFileExtension
}

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// RelativePathOrSelf calculates the relative path from root to fullPath in forward-slash form.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// NormalizeFragments trims, converts to forward slashes and cleans each path fragment,
// dropping empty values and duplicates.
func NormalizeFragments(fragments []string) []string {
	normalized := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}
		slashed := strings.ReplaceAll(trimmed, "\\", pathSegmentSeparator)
		normalized = append(normalized, path.Clean(slashed))
	}
	return DeduplicatePatterns(normalized)
}

// HasAnyPrefix reports whether value starts with one of prefixes.
func HasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// HasAnySuffix reports whether value ends with one of suffixes.
func HasAnySuffix(value string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(value, suffix) {
			return true
		}
	}
	return false
}

// ContainsAnyFold reports whether value contains one of substrings, ignoring case.
func ContainsAnyFold(value string, substrings []string) bool {
	loweredValue := strings.ToLower(value)
	for _, substring := range substrings {
		if substring != "" && strings.Contains(loweredValue, strings.ToLower(substring)) {
			return true
		}
	}
	return false
}
