// Package ignore decides which paths a walk prunes or skips for a given set of filter rules.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const warningInvalidGlob = "ignoring invalid exclusion glob"

// Matcher combines excluded directory names, doublestar globs and the root .gitignore.
// Paths handed to it are root-relative and use forward slashes.
type Matcher struct {
	rules     types.FilterRules
	globs     []string
	gitIgnore gitignore.GitIgnore
}

// NewMatcher prepares a matcher for rootDirectory. Invalid globs are logged and dropped;
// a missing .gitignore simply disables gitignore matching.
func NewMatcher(rootDirectory string, rules types.FilterRules, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := &Matcher{rules: rules}
	for _, glob := range rules.ExcludedGlobs {
		normalizedGlob := filepath.ToSlash(strings.TrimSpace(glob))
		if normalizedGlob == "" {
			continue
		}
		if !doublestar.ValidatePattern(normalizedGlob) {
			logger.Warn(warningInvalidGlob, zap.String("glob", glob))
			continue
		}
		matcher.globs = append(matcher.globs, normalizedGlob)
	}
	if rules.RespectGitignore {
		matcher.gitIgnore = loadIgnoreFile(filepath.Join(rootDirectory, utils.GitIgnoreFileName), rootDirectory)
	}
	return matcher
}

// PruneDirectory reports whether a walk should not descend into the directory.
func (matcher *Matcher) PruneDirectory(relativePath string) bool {
	if utils.ContainsString(matcher.rules.ExcludedDirNames, pathBase(relativePath)) {
		return true
	}
	return matcher.excluded(relativePath, true)
}

// SkipFile reports whether a file is excluded by glob or gitignore.
func (matcher *Matcher) SkipFile(relativePath string) bool {
	return matcher.excluded(relativePath, false)
}

// AcceptContentName applies the content name rules to a file's base name: excluded
// prefixes, included extensions, then the required or soft name filter. An empty
// extension list leaves nothing eligible.
func (matcher *Matcher) AcceptContentName(fileName string) bool {
	return AcceptContentName(matcher.rules, fileName)
}

// AcceptTreeName is AcceptContentName for tree listings, where an empty extension list
// places no restriction.
func (matcher *Matcher) AcceptTreeName(fileName string) bool {
	return AcceptTreeName(matcher.rules, fileName)
}

// AcceptContentName is the rule-only form of Matcher.AcceptContentName.
func AcceptContentName(rules types.FilterRules, fileName string) bool {
	return acceptName(rules, fileName, true)
}

// AcceptTreeName is the rule-only form of Matcher.AcceptTreeName.
func AcceptTreeName(rules types.FilterRules, fileName string) bool {
	return acceptName(rules, fileName, false)
}

func acceptName(rules types.FilterRules, fileName string, extensionsRequired bool) bool {
	if utils.HasAnyPrefix(fileName, rules.ExcludedFilePrefixes) {
		return false
	}
	if (extensionsRequired || len(rules.IncludedExtensions) > 0) && !utils.HasAnySuffix(fileName, rules.IncludedExtensions) {
		return false
	}
	if rules.HasJustFilter() {
		return utils.HasAnyPrefix(fileName, rules.JustPrefixes) || utils.ContainsAnyFold(fileName, rules.JustContains)
	}
	if rules.HasAnyFilter() {
		return utils.HasAnyPrefix(fileName, rules.AnyPrefixes) || utils.ContainsAnyFold(fileName, rules.AnyContains)
	}
	return true
}

func (matcher *Matcher) excluded(relativePath string, isDirectory bool) bool {
	for _, glob := range matcher.globs {
		if matched, err := doublestar.Match(glob, relativePath); err == nil && matched {
			return true
		}
	}
	if matcher.gitIgnore != nil {
		match := matcher.gitIgnore.Relative(relativePath, isDirectory)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

func pathBase(relativePath string) string {
	if index := strings.LastIndex(relativePath, "/"); index >= 0 {
		return relativePath[index+1:]
	}
	return relativePath
}

// loadIgnoreFile reads an ignore file through a reader so the handle is closed promptly.
func loadIgnoreFile(filePath string, baseDirectory string) gitignore.GitIgnore {
	file, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer file.Close()
	return gitignore.New(file, baseDirectory, nil)
}
