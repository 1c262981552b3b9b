// Package config builds the merge configuration from built-in defaults and optional files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	keyMandatoryDirs        = "mandatory_dirs"
	keyExcludedDirs         = "excluded_dirs"
	keyExcludedFilePrefixes = "excluded_file_prefixes"
	keyJustFilePrefixes     = "just_file_prefixes"
	keyJustFileContain      = "just_file_contain"
	keyAnyFilePrefixes      = "any_file_prefixes"
	keyAnyFileContain       = "any_file_contain"
	keySearchKeywords       = "search_keywords"
	keyIncludedExtensions   = "included_extensions"
	keyExcludedGlobs        = "excluded_globs"
	keyRespectGitignore     = "respect_gitignore"
	keyProjectDescription   = "project_description"

	keySanitizeEnabled  = "sanitize_secrets.enabled"
	keySanitizePatterns = "sanitize_secrets.patterns"
	keySanitizeKeywords = "sanitize_secrets.custom_keywords"

	keyTreePrefix           = "tree_settings."
	keyTreeExcludedPrefixes = "excluded_prefixes"
	keyTreeJustPrefixes     = "just_prefixes"

	warningInvalidConfigurationFormat = "ignoring unreadable configuration, using settings loaded so far"
)

// ErrConfigurationMissing reports an explicitly requested configuration file that does not exist.
var ErrConfigurationMissing = errors.New("configuration file not found")

// Configuration is the fully resolved, immutable-by-convention input of one run.
type Configuration struct {
	ProjectDescription string
	Filter             types.FilterRules
	Tree               types.FilterRules
	Sanitization       types.SanitizationRules
	// Sources lists the configuration files applied on top of the defaults, in order.
	Sources []string
}

// LoadOptions controls how configuration is discovered.
type LoadOptions struct {
	SourceDirectory  string
	ExplicitFilePath string
	Logger           *zap.Logger
}

// Load resolves the configuration: defaults, then the global file, then the local or explicit file.
// Files that exist but cannot be parsed are reported and skipped.
func Load(options LoadOptions) (Configuration, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sourceDirectory := options.SourceDirectory
	if sourceDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return Configuration{}, fmt.Errorf("determine working directory: %w", err)
		}
		sourceDirectory = currentDirectory
	}

	merged := Default()

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		merged = applyFile(merged, globalPath, logger)
	}

	localPath, resolveErr := resolveLocalConfigPath(sourceDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return Configuration{}, resolveErr
	}
	if localPath != "" {
		merged = applyFile(merged, localPath, logger)
	}

	return merged, nil
}

// resolveLocalConfigPath picks the explicit path when given, otherwise the first
// configuration file present in the source directory.
func resolveLocalConfigPath(sourceDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		resolved := explicitPath
		if !filepath.IsAbs(resolved) {
			absolute, err := filepath.Abs(resolved)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			resolved = absolute
		}
		if _, err := os.Stat(resolved); err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrConfigurationMissing, explicitPath)
			}
			return "", fmt.Errorf("stat configuration %s: %w", explicitPath, err)
		}
		return resolved, nil
	}
	for _, candidateName := range []string{utils.ConfigFileName, utils.LegacyConfigFileName} {
		candidatePath := filepath.Join(sourceDirectory, candidateName)
		if info, err := os.Stat(candidatePath); err == nil && !info.IsDir() {
			return candidatePath, nil
		}
	}
	return "", nil
}

func applyFile(base Configuration, path string, logger *zap.Logger) Configuration {
	reader, readErr := readConfigurationFile(path)
	if readErr != nil {
		logger.Warn(warningInvalidConfigurationFormat, zap.String("path", path), zap.Error(readErr))
		return base
	}
	if reader == nil {
		return base
	}
	merged, overlayErr := overlay(base, reader)
	if overlayErr != nil {
		logger.Warn(warningInvalidConfigurationFormat, zap.String("path", path), zap.Error(overlayErr))
		return base
	}
	merged.Sources = append(append([]string{}, base.Sources...), path)
	return merged
}

// readConfigurationFile returns nil without error when path does not exist.
func readConfigurationFile(path string) (*viper.Viper, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("configuration path %s is a directory", path)
	}
	reader := viper.New()
	reader.SetConfigFile(path)
	if err := reader.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read configuration from %s: %w", path, err)
	}
	return reader, nil
}

// overlay applies the keys present in reader onto base. Top-level keys replace defaults,
// tree_settings keys replace individually, sanitization patterns and keywords extend the defaults.
func overlay(base Configuration, reader *viper.Viper) (Configuration, error) {
	result := base

	if reader.IsSet(keyProjectDescription) {
		result.ProjectDescription = reader.GetString(keyProjectDescription)
	}
	result.Filter = overlayFilterRules(base.Filter, reader, "", keyExcludedFilePrefixes, keyJustFilePrefixes)
	if reader.IsSet(keyMandatoryDirs) {
		result.Filter.MandatoryPaths = utils.NormalizeFragments(reader.GetStringSlice(keyMandatoryDirs))
	}
	if reader.IsSet(keySearchKeywords) {
		result.Filter.SearchKeywords = trimmedValues(reader.GetStringSlice(keySearchKeywords))
	}
	result.Tree = overlayFilterRules(base.Tree, reader, keyTreePrefix, keyTreeExcludedPrefixes, keyTreeJustPrefixes)

	sanitization := base.Sanitization
	if reader.IsSet(keySanitizeEnabled) {
		sanitization.Enabled = reader.GetBool(keySanitizeEnabled)
	}
	if reader.IsSet(keySanitizePatterns) {
		var extraPatterns []types.PatternRule
		if err := reader.UnmarshalKey(keySanitizePatterns, &extraPatterns); err != nil {
			return Configuration{}, fmt.Errorf("decode %s: %w", keySanitizePatterns, err)
		}
		sanitization.Patterns = appendPatternRules(base.Sanitization.Patterns, extraPatterns)
	}
	if reader.IsSet(keySanitizeKeywords) {
		combined := append(append([]string{}, base.Sanitization.Keywords...), trimmedValues(reader.GetStringSlice(keySanitizeKeywords))...)
		sanitization.Keywords = utils.DeduplicatePatterns(combined)
	}
	result.Sanitization = sanitization

	return result, nil
}

// overlayFilterRules applies the filter keys shared by the content and tree rule sets.
// The two sets spell the prefix keys differently, hence the explicit key names.
func overlayFilterRules(base types.FilterRules, reader *viper.Viper, prefix string, excludedPrefixesKey string, justPrefixesKey string) types.FilterRules {
	result := base
	stringSliceTargets := []struct {
		key    string
		target *[]string
	}{
		{key: keyExcludedDirs, target: &result.ExcludedDirNames},
		{key: excludedPrefixesKey, target: &result.ExcludedFilePrefixes},
		{key: keyIncludedExtensions, target: &result.IncludedExtensions},
		{key: justPrefixesKey, target: &result.JustPrefixes},
		{key: keyJustFileContain, target: &result.JustContains},
		{key: keyAnyFilePrefixes, target: &result.AnyPrefixes},
		{key: keyAnyFileContain, target: &result.AnyContains},
		{key: keyExcludedGlobs, target: &result.ExcludedGlobs},
	}
	for _, stringSliceTarget := range stringSliceTargets {
		if reader.IsSet(prefix + stringSliceTarget.key) {
			*stringSliceTarget.target = trimmedValues(reader.GetStringSlice(prefix + stringSliceTarget.key))
		}
	}
	if reader.IsSet(prefix + keyRespectGitignore) {
		result.RespectGitignore = reader.GetBool(prefix + keyRespectGitignore)
	}
	return result
}

// appendPatternRules extends base with the extra rules it does not already contain.
func appendPatternRules(base []types.PatternRule, extra []types.PatternRule) []types.PatternRule {
	result := append([]types.PatternRule{}, base...)
	for _, candidate := range extra {
		if candidate.Regex == "" {
			continue
		}
		duplicate := false
		for _, existing := range result {
			if existing == candidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, candidate)
		}
	}
	return result
}

func trimmedValues(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
