package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/document"
	"github.com/temirov/mdpack/internal/materialize"
	"github.com/temirov/mdpack/internal/types"
)

const (
	errorDocumentStatFormat    = "inspect document %s: %w"
	errorDocumentIsDirectory   = "document %s is a directory"
	errorOutputDirectoryFormat = "resolve output directory %s: %w"

	warningRestoreFile = "could not restore file"
)

// ErrDocumentMissing reports an unmerge input document that does not exist.
var ErrDocumentMissing = errors.New("merged document not found")

// UnmergeOptions configures one unmerge run.
type UnmergeOptions struct {
	DocumentPath string
	// OutputDirectory defaults to the working directory.
	OutputDirectory string
	Overwrite       bool
	DryRun          bool
	// Filesystem defaults to the operating system filesystem.
	Filesystem afero.Fs
	Observer   func(types.MaterializeAction)
	Logger     *zap.Logger
}

// UnmergeReport is the outcome of an unmerge run.
type UnmergeReport struct {
	OutputDirectory string
	Entries         int
	materialize.Result
}

// Unmerge parses DocumentPath and restores every file section under OutputDirectory.
// Per-file failures are counted in the report; only a missing or empty document fails the run.
func Unmerge(ctx context.Context, options UnmergeOptions) (UnmergeReport, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	info, statErr := os.Stat(options.DocumentPath)
	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return UnmergeReport{}, fmt.Errorf("%w: %s", ErrDocumentMissing, options.DocumentPath)
		}
		return UnmergeReport{}, fmt.Errorf(errorDocumentStatFormat, options.DocumentPath, statErr)
	}
	if info.IsDir() {
		return UnmergeReport{}, fmt.Errorf(errorDocumentIsDirectory, options.DocumentPath)
	}

	entries, parseErr := document.ParseFile(options.DocumentPath)
	if parseErr != nil {
		return UnmergeReport{}, parseErr
	}

	outputDirectory := options.OutputDirectory
	if outputDirectory == "" {
		outputDirectory = "."
	}
	outputDirectory, absoluteErr := filepath.Abs(outputDirectory)
	if absoluteErr != nil {
		return UnmergeReport{}, fmt.Errorf(errorOutputDirectoryFormat, options.OutputDirectory, absoluteErr)
	}

	filesystem := options.Filesystem
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	result, materializeErr := materialize.Materialize(ctx, filesystem, entries, outputDirectory, materialize.Options{
		Overwrite: options.Overwrite,
		DryRun:    options.DryRun,
		Observer:  options.Observer,
	})
	report := UnmergeReport{OutputDirectory: outputDirectory, Entries: len(entries), Result: result}
	for _, action := range result.Actions {
		if action.Kind == types.ActionError {
			logger.Warn(warningRestoreFile, zap.String("path", action.Path), zap.Error(action.Err))
		}
	}
	return report, materializeErr
}
