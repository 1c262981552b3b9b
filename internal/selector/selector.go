// Package selector walks a source tree and chooses the files that go into a merged document.
package selector

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/ignore"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	errorAbsolutePathFormat = "getting absolute path for %s: %w"
	errorRootNotDirectory   = "source %s is not a directory"
	errorWalkFormat         = "walking %s: %w"

	warningAccessPath = "skipping unreadable path"
	warningReadFile   = "skipping keyword scan of unreadable file"
)

// Options carries the parts of a selection that do not come from configuration.
type Options struct {
	// SkipNames lists base names that are never selected, such as the output document.
	SkipNames []string
	Logger    *zap.Logger
}

// Selection is the result of a walk.
type Selection struct {
	// Files holds absolute paths sorted lexicographically.
	Files []string
	// Keywords maps a root-relative path to the sorted search keywords found in it.
	Keywords map[string][]string
	// SkippedByKeywords counts files that passed every other rule but contained no keyword.
	SkippedByKeywords int
}

// Select walks rootDirectory and returns the files that satisfy rules.
func Select(ctx context.Context, rootDirectory string, rules types.FilterRules, options Options) (Selection, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	absoluteRoot, absolutePathError := filepath.Abs(rootDirectory)
	if absolutePathError != nil {
		return Selection{}, fmt.Errorf(errorAbsolutePathFormat, rootDirectory, absolutePathError)
	}
	absoluteRoot = filepath.Clean(absoluteRoot)
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		return Selection{}, fmt.Errorf(errorAbsolutePathFormat, rootDirectory, statError)
	}
	if !rootInfo.IsDir() {
		return Selection{}, fmt.Errorf(errorRootNotDirectory, rootDirectory)
	}

	matcher := ignore.NewMatcher(absoluteRoot, rules, logger)
	mandatoryFragments := utils.NormalizeFragments(rules.MandatoryPaths)
	selection := Selection{Keywords: map[string][]string{}}

	walkError := filepath.WalkDir(absoluteRoot, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if accessError != nil {
			logger.Warn(warningAccessPath, zap.String("path", walkedPath), zap.Error(accessError))
			if directoryEntry != nil && directoryEntry.IsDir() && walkedPath != absoluteRoot {
				return filepath.SkipDir
			}
			return nil
		}
		relativePath := utils.RelativePathOrSelf(walkedPath, absoluteRoot)
		if relativePath == "." {
			return nil
		}
		if directoryEntry.IsDir() {
			if matcher.PruneDirectory(relativePath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !directoryEntry.Type().IsRegular() {
			return nil
		}

		fileName := directoryEntry.Name()
		if utils.ContainsString(options.SkipNames, fileName) {
			return nil
		}
		if isMandatory(relativePath, mandatoryFragments) {
			selection.Files = append(selection.Files, walkedPath)
			return nil
		}
		if matcher.SkipFile(relativePath) || !matcher.AcceptContentName(fileName) {
			return nil
		}
		if len(rules.SearchKeywords) > 0 {
			foundKeywords := findKeywords(walkedPath, rules.SearchKeywords, logger)
			if len(foundKeywords) == 0 {
				selection.SkippedByKeywords++
				return nil
			}
			selection.Keywords[relativePath] = foundKeywords
		}
		selection.Files = append(selection.Files, walkedPath)
		return nil
	})
	if walkError != nil {
		return Selection{}, fmt.Errorf(errorWalkFormat, rootDirectory, walkError)
	}

	sort.Strings(selection.Files)
	return selection, nil
}

// isMandatory matches the file's containing directory against the mandatory fragments.
func isMandatory(relativePath string, mandatoryFragments []string) bool {
	if len(mandatoryFragments) == 0 {
		return false
	}
	containingDirectory := "."
	if index := strings.LastIndex(relativePath, "/"); index >= 0 {
		containingDirectory = relativePath[:index]
	}
	for _, fragment := range mandatoryFragments {
		if strings.Contains(containingDirectory, fragment) {
			return true
		}
	}
	return false
}

// findKeywords returns the sorted keywords present in the file. Unreadable or non-text
// files contain none.
func findKeywords(filePath string, keywords []string, logger *zap.Logger) []string {
	fileBytes, readError := os.ReadFile(filePath)
	if readError != nil {
		logger.Warn(warningReadFile, zap.String("path", filePath), zap.Error(readError))
		return nil
	}
	text, decodeError := utils.DecodeText(fileBytes)
	if decodeError != nil {
		return nil
	}
	loweredText := strings.ToLower(text)
	var found []string
	for _, keyword := range keywords {
		if keyword == "" || utils.ContainsString(found, keyword) {
			continue
		}
		if strings.Contains(loweredText, strings.ToLower(keyword)) {
			found = append(found, keyword)
		}
	}
	sort.Strings(found)
	return found
}
