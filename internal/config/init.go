package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	configurationFilePermissions      = 0o644
	configurationDirectoryPermissions = 0o755
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

type fileSanitization struct {
	Enabled        bool                `yaml:"enabled"`
	Patterns       []types.PatternRule `yaml:"patterns"`
	CustomKeywords []string            `yaml:"custom_keywords"`
}

type fileTreeSettings struct {
	ExcludedDirs       []string `yaml:"excluded_dirs"`
	ExcludedPrefixes   []string `yaml:"excluded_prefixes"`
	JustPrefixes       []string `yaml:"just_prefixes"`
	JustFileContain    []string `yaml:"just_file_contain"`
	AnyFilePrefixes    []string `yaml:"any_file_prefixes"`
	AnyFileContain     []string `yaml:"any_file_contain"`
	IncludedExtensions []string `yaml:"included_extensions"`
	ExcludedGlobs      []string `yaml:"excluded_globs"`
	RespectGitignore   bool     `yaml:"respect_gitignore"`
}

// fileConfiguration mirrors the on-disk key layout.
type fileConfiguration struct {
	ProjectDescription   string           `yaml:"project_description"`
	MandatoryDirs        []string         `yaml:"mandatory_dirs"`
	ExcludedDirs         []string         `yaml:"excluded_dirs"`
	ExcludedFilePrefixes []string         `yaml:"excluded_file_prefixes"`
	IncludedExtensions   []string         `yaml:"included_extensions"`
	JustFilePrefixes     []string         `yaml:"just_file_prefixes"`
	JustFileContain      []string         `yaml:"just_file_contain"`
	AnyFilePrefixes      []string         `yaml:"any_file_prefixes"`
	AnyFileContain       []string         `yaml:"any_file_contain"`
	SearchKeywords       []string         `yaml:"search_keywords"`
	ExcludedGlobs        []string         `yaml:"excluded_globs"`
	RespectGitignore     bool             `yaml:"respect_gitignore"`
	SanitizeSecrets      fileSanitization `yaml:"sanitize_secrets"`
	TreeSettings         fileTreeSettings `yaml:"tree_settings"`
}

func newFileConfiguration(configuration Configuration) fileConfiguration {
	filter := configuration.Filter
	tree := configuration.Tree
	return fileConfiguration{
		ProjectDescription:   configuration.ProjectDescription,
		MandatoryDirs:        nonNil(filter.MandatoryPaths),
		ExcludedDirs:         nonNil(filter.ExcludedDirNames),
		ExcludedFilePrefixes: nonNil(filter.ExcludedFilePrefixes),
		IncludedExtensions:   nonNil(filter.IncludedExtensions),
		JustFilePrefixes:     nonNil(filter.JustPrefixes),
		JustFileContain:      nonNil(filter.JustContains),
		AnyFilePrefixes:      nonNil(filter.AnyPrefixes),
		AnyFileContain:       nonNil(filter.AnyContains),
		SearchKeywords:       nonNil(filter.SearchKeywords),
		ExcludedGlobs:        nonNil(filter.ExcludedGlobs),
		RespectGitignore:     filter.RespectGitignore,
		SanitizeSecrets: fileSanitization{
			Enabled:        configuration.Sanitization.Enabled,
			Patterns:       configuration.Sanitization.Patterns,
			CustomKeywords: nonNil(configuration.Sanitization.Keywords),
		},
		TreeSettings: fileTreeSettings{
			ExcludedDirs:       nonNil(tree.ExcludedDirNames),
			ExcludedPrefixes:   nonNil(tree.ExcludedFilePrefixes),
			JustPrefixes:       nonNil(tree.JustPrefixes),
			JustFileContain:    nonNil(tree.JustContains),
			AnyFilePrefixes:    nonNil(tree.AnyPrefixes),
			AnyFileContain:     nonNil(tree.AnyContains),
			IncludedExtensions: nonNil(tree.IncludedExtensions),
			ExcludedGlobs:      nonNil(tree.ExcludedGlobs),
			RespectGitignore:   tree.RespectGitignore,
		},
	}
}

// MarshalDefault renders the built-in configuration as YAML.
func MarshalDefault() ([]byte, error) {
	encoded, err := yaml.Marshal(newFileConfiguration(Default()))
	if err != nil {
		return nil, fmt.Errorf("encode default configuration: %w", err)
	}
	return encoded, nil
}

// InitializeConfiguration writes the default configuration to the requested target.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, configurationDirectoryPermissions); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
		destinationPath = filepath.Join(configurationDirectory, utils.GlobalConfigFileName)
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	encoded, marshalErr := MarshalDefault()
	if marshalErr != nil {
		return "", marshalErr
	}
	if err := os.WriteFile(destinationPath, encoded, configurationFilePermissions); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
