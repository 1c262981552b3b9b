// Package commands runs the merge and unmerge pipelines behind the command line.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/config"
	"github.com/temirov/mdpack/internal/document"
	"github.com/temirov/mdpack/internal/sanitize"
	"github.com/temirov/mdpack/internal/selector"
	"github.com/temirov/mdpack/internal/services/clipboard"
	"github.com/temirov/mdpack/internal/tagger"
	"github.com/temirov/mdpack/internal/tokenizer"
	"github.com/temirov/mdpack/internal/tree"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	outputFilePermissions = 0o644

	errorAbsolutePathFormat = "abs failed for '%s': %w"
	errorSourceFormat       = "source directory '%s': %w"
	errorSourceNotDirectory = "source '%s' is not a directory"
	errorCreateOutputFormat = "create output %s: %w"
	errorCloseOutputFormat  = "close output %s: %w"
	errorSelectFormat       = "select files: %w"
	errorTreeFormat         = "build directory tree: %w"
	errorTokenizerFormat    = "initialize tokenizer: %w"
	errorCountTokensFormat  = "count tokens: %w"
)

// MergeOptions configures one merge run.
type MergeOptions struct {
	SourceDirectory string
	// OutputPath defaults to merged_output_<dirname>.md inside SourceDirectory.
	OutputPath string
	ConfigPath string
	TagFiles   bool
	// TokenModel enables a token estimate of the finished document when set.
	TokenModel string
	// Copier, when set, receives the finished document.
	Copier clipboard.Copier
	Logger *zap.Logger
	// Progress receives the configuration summary printed before files are written.
	Progress func(MergeProgress)
}

// MergeProgress describes the resolved run before the document is written.
type MergeProgress struct {
	SourceDirectory   string
	OutputPath        string
	Configuration     config.Configuration
	Selected          int
	SkippedByKeywords int
	Tagging           tagger.Result
}

// Merge selects, sanitizes and serializes SourceDirectory into a single Markdown document.
func Merge(ctx context.Context, options MergeOptions) (types.MergeReport, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sourceDirectory, resolveErr := resolveSourceDirectory(options.SourceDirectory)
	if resolveErr != nil {
		return types.MergeReport{}, resolveErr
	}
	outputPath := options.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(sourceDirectory, utils.DefaultOutputFileName(sourceDirectory))
	}
	outputPath, absoluteErr := filepath.Abs(outputPath)
	if absoluteErr != nil {
		return types.MergeReport{}, fmt.Errorf(errorAbsolutePathFormat, outputPath, absoluteErr)
	}

	configuration, configErr := config.Load(config.LoadOptions{
		SourceDirectory:  sourceDirectory,
		ExplicitFilePath: options.ConfigPath,
		Logger:           logger,
	})
	if configErr != nil {
		return types.MergeReport{}, configErr
	}

	skipNames := []string{filepath.Base(outputPath), utils.ConfigFileName, utils.LegacyConfigFileName}
	selection, selectErr := selector.Select(ctx, sourceDirectory, configuration.Filter, selector.Options{SkipNames: skipNames, Logger: logger})
	if selectErr != nil {
		return types.MergeReport{}, fmt.Errorf(errorSelectFormat, selectErr)
	}

	var tagging tagger.Result
	if options.TagFiles {
		tagResult, tagErr := tagger.Tag(ctx, afero.NewOsFs(), sourceDirectory, selection.Files, logger)
		if tagErr != nil {
			return types.MergeReport{}, tagErr
		}
		tagging = tagResult
	}

	if options.Progress != nil {
		options.Progress(MergeProgress{
			SourceDirectory:   sourceDirectory,
			OutputPath:        outputPath,
			Configuration:     configuration,
			Selected:          len(selection.Files),
			SkippedByKeywords: selection.SkippedByKeywords,
			Tagging:           tagging,
		})
	}

	projectTree, treeErr := tree.Build(ctx, sourceDirectory, configuration.Tree, tree.Options{SkipNames: skipNames, Logger: logger})
	if treeErr != nil {
		return types.MergeReport{}, fmt.Errorf(errorTreeFormat, treeErr)
	}

	result, writeErr := writeDocument(ctx, outputPath, document.SerializeRequest{
		RootDirectory:      sourceDirectory,
		ProjectDescription: configuration.ProjectDescription,
		Tree:               projectTree,
		TreePositiveFilter: configuration.Tree.HasPositiveFilter(),
		Files:              selection.Files,
		Keywords:           selection.Keywords,
		SearchKeywords:     configuration.Filter.SearchKeywords,
		Sanitizer:          sanitize.New(configuration.Sanitization, logger),
		Logger:             logger,
	})
	if writeErr != nil {
		return types.MergeReport{}, writeErr
	}

	report := types.MergeReport{
		OutputPath:        outputPath,
		Files:             result.Files,
		SkippedByKeywords: selection.SkippedByKeywords,
		SanitizedFiles:    result.SanitizedFiles,
		Replacements:      result.Replacements,
		ReadErrors:        result.ReadErrors,
		TaggedFiles:       tagging.Tagged,
		Bytes:             result.Bytes,
	}

	if options.TokenModel != "" {
		counter, model, counterErr := tokenizer.NewCounter(tokenizer.Config{Model: options.TokenModel})
		if counterErr != nil {
			return report, fmt.Errorf(errorTokenizerFormat, counterErr)
		}
		counted, countErr := tokenizer.CountFile(counter, outputPath)
		if countErr != nil {
			return report, fmt.Errorf(errorCountTokensFormat, countErr)
		}
		report.Tokens = counted.Tokens
		report.TokenModel = model
	}

	if options.Copier != nil {
		if err := clipboard.CopyDocument(options.Copier, outputPath); err != nil {
			return report, err
		}
		report.Copied = true
	}
	return report, nil
}

func resolveSourceDirectory(sourceDirectory string) (string, error) {
	if sourceDirectory == "" {
		sourceDirectory = "."
	}
	absoluteDirectory, absoluteErr := filepath.Abs(sourceDirectory)
	if absoluteErr != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, sourceDirectory, absoluteErr)
	}
	info, statErr := os.Stat(absoluteDirectory)
	if statErr != nil {
		return "", fmt.Errorf(errorSourceFormat, sourceDirectory, statErr)
	}
	if !info.IsDir() {
		return "", fmt.Errorf(errorSourceNotDirectory, sourceDirectory)
	}
	return filepath.Clean(absoluteDirectory), nil
}

// writeDocument replaces outputPath with a freshly serialized document.
func writeDocument(ctx context.Context, outputPath string, request document.SerializeRequest) (document.SerializeResult, error) {
	outputFile, createErr := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, outputFilePermissions)
	if createErr != nil {
		return document.SerializeResult{}, fmt.Errorf(errorCreateOutputFormat, outputPath, createErr)
	}
	result, serializeErr := document.Serialize(ctx, outputFile, request)
	closeErr := outputFile.Close()
	if serializeErr != nil {
		return result, serializeErr
	}
	if closeErr != nil {
		return result, fmt.Errorf(errorCloseOutputFormat, outputPath, closeErr)
	}
	return result, nil
}
