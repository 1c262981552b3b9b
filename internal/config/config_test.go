package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/mdpack/internal/config"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	localYAMLConfiguration = `project_description: Demo project
excluded_dirs:
  - vendor
included_extensions:
  - .go
search_keywords:
  - " TODO "
tree_settings:
  included_extensions:
    - .go
    - .md
sanitize_secrets:
  enabled: true
  patterns:
    - name: Internal token
      regex: 'itk_[a-z0-9]{8}'
      replacement: 'itk_********'
  custom_keywords:
    - DEPLOY_KEY
    - JWT_SECRET
`
	legacyJSONConfiguration = `{
  "just_file_prefixes": ["main"],
  "sanitize_secrets": {"enabled": false}
}`
	brokenYAMLConfiguration = "excluded_dirs: [unterminated\n"
)

func isolateHome(testingInstance *testing.T) string {
	testingInstance.Helper()
	homeDirectory := testingInstance.TempDir()
	testingInstance.Setenv("HOME", homeDirectory)
	testingInstance.Setenv("USERPROFILE", homeDirectory)
	return homeDirectory
}

func writeFile(testingInstance *testing.T, path string, content string) {
	testingInstance.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		testingInstance.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		testingInstance.Fatalf("write %s: %v", path, err)
	}
}

func equalStrings(left []string, right []string) bool {
	if len(left) != len(right) {
		return false
	}
	for index := range left {
		if left[index] != right[index] {
			return false
		}
	}
	return true
}

func TestDefaultReturnsFreshSlices(testingInstance *testing.T) {
	first := config.Default()
	first.Filter.ExcludedDirNames[0] = "mutated"
	first.Sanitization.Patterns[0].Name = "mutated"

	second := config.Default()
	if second.Filter.ExcludedDirNames[0] == "mutated" {
		testingInstance.Fatalf("excluded directories shared between calls")
	}
	if second.Sanitization.Patterns[0].Name == "mutated" {
		testingInstance.Fatalf("patterns shared between calls")
	}
	if !second.Sanitization.Enabled {
		testingInstance.Fatalf("sanitization must be enabled by default")
	}
}

func TestLoadWithoutFilesReturnsDefaults(testingInstance *testing.T) {
	isolateHome(testingInstance)
	loaded, err := config.Load(config.LoadOptions{SourceDirectory: testingInstance.TempDir()})
	if err != nil {
		testingInstance.Fatalf("load: %v", err)
	}
	defaults := config.Default()
	if !equalStrings(loaded.Filter.IncludedExtensions, defaults.Filter.IncludedExtensions) {
		testingInstance.Fatalf("extensions differ: %v", loaded.Filter.IncludedExtensions)
	}
	if len(loaded.Sources) != 0 {
		testingInstance.Fatalf("expected no sources, got %v", loaded.Sources)
	}
}

func TestLoadMergesLocalYAML(testingInstance *testing.T) {
	isolateHome(testingInstance)
	sourceDirectory := testingInstance.TempDir()
	writeFile(testingInstance, filepath.Join(sourceDirectory, utils.ConfigFileName), localYAMLConfiguration)

	loaded, err := config.Load(config.LoadOptions{SourceDirectory: sourceDirectory})
	if err != nil {
		testingInstance.Fatalf("load: %v", err)
	}
	defaults := config.Default()

	if loaded.ProjectDescription != "Demo project" {
		testingInstance.Fatalf("description: %q", loaded.ProjectDescription)
	}
	if !equalStrings(loaded.Filter.ExcludedDirNames, []string{"vendor"}) {
		testingInstance.Fatalf("top-level keys must replace defaults, got %v", loaded.Filter.ExcludedDirNames)
	}
	if !equalStrings(loaded.Filter.ExcludedFilePrefixes, defaults.Filter.ExcludedFilePrefixes) {
		testingInstance.Fatalf("absent keys must keep defaults, got %v", loaded.Filter.ExcludedFilePrefixes)
	}
	if !equalStrings(loaded.Filter.SearchKeywords, []string{"TODO"}) {
		testingInstance.Fatalf("keywords: %v", loaded.Filter.SearchKeywords)
	}
	if !equalStrings(loaded.Tree.IncludedExtensions, []string{".go", ".md"}) {
		testingInstance.Fatalf("tree extensions: %v", loaded.Tree.IncludedExtensions)
	}
	if !equalStrings(loaded.Tree.ExcludedDirNames, defaults.Tree.ExcludedDirNames) {
		testingInstance.Fatalf("tree keys replace individually, got %v", loaded.Tree.ExcludedDirNames)
	}
	if len(loaded.Sanitization.Patterns) != len(defaults.Sanitization.Patterns)+1 {
		testingInstance.Fatalf("patterns must append, got %d", len(loaded.Sanitization.Patterns))
	}
	appended := loaded.Sanitization.Patterns[len(loaded.Sanitization.Patterns)-1]
	if appended.Name != "Internal token" || appended.Replacement != "itk_********" {
		testingInstance.Fatalf("appended pattern: %+v", appended)
	}
	if len(loaded.Sanitization.Keywords) != len(defaults.Sanitization.Keywords)+1 {
		testingInstance.Fatalf("keywords must append without duplicates, got %d", len(loaded.Sanitization.Keywords))
	}
	if !utils.ContainsString(loaded.Sanitization.Keywords, "DEPLOY_KEY") {
		testingInstance.Fatalf("custom keyword missing")
	}
	if len(loaded.Sources) != 1 {
		testingInstance.Fatalf("expected one source, got %v", loaded.Sources)
	}
}

func TestLoadFallsBackToLegacyJSON(testingInstance *testing.T) {
	isolateHome(testingInstance)
	sourceDirectory := testingInstance.TempDir()
	writeFile(testingInstance, filepath.Join(sourceDirectory, utils.LegacyConfigFileName), legacyJSONConfiguration)

	loaded, err := config.Load(config.LoadOptions{SourceDirectory: sourceDirectory})
	if err != nil {
		testingInstance.Fatalf("load: %v", err)
	}
	if !equalStrings(loaded.Filter.JustPrefixes, []string{"main"}) {
		testingInstance.Fatalf("just prefixes: %v", loaded.Filter.JustPrefixes)
	}
	if loaded.Sanitization.Enabled {
		testingInstance.Fatalf("enabled flag must be overridden")
	}
}

func TestLoadAppliesGlobalBeforeLocal(testingInstance *testing.T) {
	homeDirectory := isolateHome(testingInstance)
	writeFile(testingInstance, filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), "project_description: global\nexcluded_dirs: [global_only]\n")
	sourceDirectory := testingInstance.TempDir()
	writeFile(testingInstance, filepath.Join(sourceDirectory, utils.ConfigFileName), "project_description: local\n")

	loaded, err := config.Load(config.LoadOptions{SourceDirectory: sourceDirectory})
	if err != nil {
		testingInstance.Fatalf("load: %v", err)
	}
	if loaded.ProjectDescription != "local" {
		testingInstance.Fatalf("local must win, got %q", loaded.ProjectDescription)
	}
	if !equalStrings(loaded.Filter.ExcludedDirNames, []string{"global_only"}) {
		testingInstance.Fatalf("global value lost: %v", loaded.Filter.ExcludedDirNames)
	}
	if len(loaded.Sources) != 2 {
		testingInstance.Fatalf("expected two sources, got %v", loaded.Sources)
	}
}

func TestLoadSkipsBrokenImplicitFile(testingInstance *testing.T) {
	isolateHome(testingInstance)
	sourceDirectory := testingInstance.TempDir()
	writeFile(testingInstance, filepath.Join(sourceDirectory, utils.ConfigFileName), brokenYAMLConfiguration)

	loaded, err := config.Load(config.LoadOptions{SourceDirectory: sourceDirectory})
	if err != nil {
		testingInstance.Fatalf("broken implicit file must not be fatal: %v", err)
	}
	if !equalStrings(loaded.Filter.ExcludedDirNames, config.Default().Filter.ExcludedDirNames) {
		testingInstance.Fatalf("expected defaults, got %v", loaded.Filter.ExcludedDirNames)
	}
}

func TestLoadExplicitMissingFileFails(testingInstance *testing.T) {
	isolateHome(testingInstance)
	_, err := config.Load(config.LoadOptions{
		SourceDirectory:  testingInstance.TempDir(),
		ExplicitFilePath: filepath.Join(testingInstance.TempDir(), "absent.yaml"),
	})
	if !errors.Is(err, config.ErrConfigurationMissing) {
		testingInstance.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestInitializeConfigurationRoundTrip(testingInstance *testing.T) {
	isolateHome(testingInstance)
	workingDirectory := testingInstance.TempDir()

	writtenPath, err := config.InitializeConfiguration(config.InitOptions{WorkingDirectory: workingDirectory})
	if err != nil {
		testingInstance.Fatalf("init: %v", err)
	}
	if writtenPath != filepath.Join(workingDirectory, utils.ConfigFileName) {
		testingInstance.Fatalf("unexpected path %s", writtenPath)
	}
	if _, err := config.InitializeConfiguration(config.InitOptions{WorkingDirectory: workingDirectory}); err == nil {
		testingInstance.Fatalf("expected refusal without force")
	}
	if _, err := config.InitializeConfiguration(config.InitOptions{WorkingDirectory: workingDirectory, Force: true}); err != nil {
		testingInstance.Fatalf("forced init: %v", err)
	}

	loaded, loadErr := config.Load(config.LoadOptions{SourceDirectory: workingDirectory})
	if loadErr != nil {
		testingInstance.Fatalf("load: %v", loadErr)
	}
	defaults := config.Default()
	if loaded.ProjectDescription != defaults.ProjectDescription {
		testingInstance.Fatalf("description: %q", loaded.ProjectDescription)
	}
	comparisons := []struct {
		name     string
		actual   []string
		expected []string
	}{
		{name: "excluded dirs", actual: loaded.Filter.ExcludedDirNames, expected: defaults.Filter.ExcludedDirNames},
		{name: "excluded prefixes", actual: loaded.Filter.ExcludedFilePrefixes, expected: defaults.Filter.ExcludedFilePrefixes},
		{name: "extensions", actual: loaded.Filter.IncludedExtensions, expected: defaults.Filter.IncludedExtensions},
		{name: "tree extensions", actual: loaded.Tree.IncludedExtensions, expected: defaults.Tree.IncludedExtensions},
		{name: "tree prefixes", actual: loaded.Tree.ExcludedFilePrefixes, expected: defaults.Tree.ExcludedFilePrefixes},
		{name: "keywords", actual: loaded.Sanitization.Keywords, expected: defaults.Sanitization.Keywords},
	}
	for _, comparison := range comparisons {
		if !equalStrings(comparison.actual, comparison.expected) {
			testingInstance.Errorf("%s: expected %v, got %v", comparison.name, comparison.expected, comparison.actual)
		}
	}
	if len(loaded.Sanitization.Patterns) != len(defaults.Sanitization.Patterns) {
		testingInstance.Fatalf("patterns duplicated on reload: %d", len(loaded.Sanitization.Patterns))
	}
	for index, pattern := range loaded.Sanitization.Patterns {
		if pattern != defaults.Sanitization.Patterns[index] {
			testingInstance.Errorf("pattern %d: expected %+v, got %+v", index, defaults.Sanitization.Patterns[index], pattern)
		}
	}
	var zeroRules types.FilterRules
	if loaded.Filter.HasPositiveFilter() != zeroRules.HasPositiveFilter() {
		testingInstance.Fatalf("init output must not activate name filters")
	}
}
