// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/commands"
	"github.com/temirov/mdpack/internal/config"
	"github.com/temirov/mdpack/internal/output"
	"github.com/temirov/mdpack/internal/services/clipboard"
	"github.com/temirov/mdpack/internal/tokenizer"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	versionFlagName = "version"
	versionTemplate = "mdpack version: %s\n"
	defaultPath     = "."

	rootUse              = "mdpack [directory]"
	rootShortDescription = "pack a directory into one Markdown document and restore it"
	rootLongDescription  = `mdpack merges the text files of a project into a single Markdown document
with a directory tree, per-file fenced blocks and secret sanitization.
Running mdpack without a subcommand merges the given directory (default: current directory).
Use unmerge to recreate the files from such a document and init to write the default configuration.`
	versionFlagDescription = "display application version"

	mergeUse              = types.CommandMerge + " [directory]"
	mergeShortDescription = "merge project files into a single Markdown document (default)"
	mergeUsageExample     = `  # Merge the current directory into merged_output_<dirname>.md
  mdpack

  # Merge another directory with token estimate and clipboard copy
  mdpack merge ./service --tokens --copy`

	unmergeUse              = types.CommandUnmerge + " <document>"
	unmergeShortDescription = "recreate files from a merged Markdown document"
	unmergeUsageExample     = `  # Restore into ./restored, replacing files that already exist
  mdpack unmerge merged_output_service.md -o ./restored --overwrite

  # Preview what would be written
  mdpack unmerge merged_output_service.md --dry-run`

	initUse              = types.CommandInit
	initShortDescription = "write the default configuration file"

	outputFlagName         = "output"
	outputFlagShorthand    = "o"
	outputFlagDescription  = "output document path (default <directory>/merged_output_<dirname>.md)"
	configFlagName         = "config"
	configFlagShorthand    = "c"
	configFlagDescription  = "configuration file to use instead of mdpack.yaml"
	tagFilesFlagName       = "tag-files"
	tagFilesFlagShorthand  = "t"
	tagFilesDescription    = "add the relative path as a first-line comment to the original files"
	tokensFlagName         = "tokens"
	tokensFlagDescription  = "estimate the token count of the document"
	modelFlagName          = "model"
	modelFlagDescription   = "tokenizer model to use for token counting"
	copyFlagName           = "copy"
	copyFlagDescription    = "copy the document to the clipboard"
	outputDirFlagName      = "output-dir"
	outputDirDescription   = "destination directory (default: current directory)"
	overwriteFlagName      = "overwrite"
	overwriteDescription   = "overwrite existing files (default: skip them)"
	dryRunFlagName         = "dry-run"
	dryRunFlagDescription  = "preview actions without writing anything"
	verboseFlagName        = "verbose"
	verboseFlagShorthand   = "v"
	verboseFlagDescription = "print each file action"
	forceFlagName          = "force"
	forceFlagDescription   = "overwrite an existing configuration file"
	globalFlagName         = "global"
	globalFlagDescription  = "write the global configuration in the home directory"
	formatFlagName         = "format"
	formatFlagDescription  = "report format: raw, json or xml"

	initWrittenFormat        = "⚙️  Configuration written to %s\n"
	invalidFormatMessage     = "Invalid format value '%s'"
	missingDocumentMessage   = "unmerge requires the path of a merged document"
	documentArgumentMaxCount = 1
)

var errVersionDisplayed = errors.New("version displayed")

// Execute runs the mdpack application with the process arguments.
func Execute(ctx context.Context, logger *zap.Logger) error {
	return run(ctx, os.Args[1:], os.Stdout, logger)
}

func run(ctx context.Context, arguments []string, stdout io.Writer, logger *zap.Logger) error {
	rootCommand := createRootCommand(logger)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	rootCommand.SetOut(stdout)
	executionErr := rootCommand.ExecuteContext(ctx)
	if errors.Is(executionErr, errVersionDisplayed) {
		return nil
	}
	return executionErr
}

// createRootCommand builds the root Cobra command. Without a subcommand it merges.
func createRootCommand(logger *zap.Logger) *cobra.Command {
	var showVersion bool
	var rootMerge mergeFlags

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       mergeUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runMerge(command, arguments, rootMerge, logger)
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return errVersionDisplayed
			}
			return nil
		},
	}
	registerBooleanFlag(rootCommand.PersistentFlags(), &showVersion, versionFlagName, "", false, versionFlagDescription)
	addMergeFlags(rootCommand, &rootMerge)
	rootCommand.AddCommand(
		createMergeCommand(logger),
		createUnmergeCommand(logger),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

type mergeFlags struct {
	outputPath  string
	configPath  string
	tagFiles    bool
	countTokens bool
	tokenModel  string
	copy        bool
	format      string
}

func addMergeFlags(command *cobra.Command, flags *mergeFlags) {
	command.Flags().StringVarP(&flags.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagDescription)
	command.Flags().StringVarP(&flags.configPath, configFlagName, configFlagShorthand, "", configFlagDescription)
	registerBooleanFlag(command.Flags(), &flags.tagFiles, tagFilesFlagName, tagFilesFlagShorthand, false, tagFilesDescription)
	registerBooleanFlag(command.Flags(), &flags.countTokens, tokensFlagName, "", false, tokensFlagDescription)
	command.Flags().StringVar(&flags.tokenModel, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	registerBooleanFlag(command.Flags(), &flags.copy, copyFlagName, "", false, copyFlagDescription)
	command.Flags().StringVar(&flags.format, formatFlagName, types.FormatRaw, formatFlagDescription)
}

// createMergeCommand returns the merge subcommand.
func createMergeCommand(logger *zap.Logger) *cobra.Command {
	var flags mergeFlags
	mergeCommand := &cobra.Command{
		Use:     mergeUse,
		Short:   mergeShortDescription,
		Example: mergeUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runMerge(command, arguments, flags, logger)
		},
	}
	addMergeFlags(mergeCommand, &flags)
	return mergeCommand
}

// createUnmergeCommand returns the unmerge subcommand.
func createUnmergeCommand(logger *zap.Logger) *cobra.Command {
	var flags unmergeFlags
	unmergeCommand := &cobra.Command{
		Use:     unmergeUse,
		Short:   unmergeShortDescription,
		Example: unmergeUsageExample,
		Args:    cobra.MaximumNArgs(documentArgumentMaxCount),
		RunE: func(command *cobra.Command, arguments []string) error {
			if len(arguments) == 0 {
				return errors.New(missingDocumentMessage)
			}
			return runUnmerge(command, arguments[0], flags, logger)
		},
	}
	unmergeCommand.Flags().StringVarP(&flags.outputDirectory, outputDirFlagName, outputFlagShorthand, "", outputDirDescription)
	registerBooleanFlag(unmergeCommand.Flags(), &flags.overwrite, overwriteFlagName, "", false, overwriteDescription)
	registerBooleanFlag(unmergeCommand.Flags(), &flags.dryRun, dryRunFlagName, "", false, dryRunFlagDescription)
	registerBooleanFlag(unmergeCommand.Flags(), &flags.verbose, verboseFlagName, verboseFlagShorthand, false, verboseFlagDescription)
	unmergeCommand.Flags().StringVar(&flags.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	return unmergeCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand() *cobra.Command {
	var force bool
	var global bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			configurationPath, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, configurationPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	return initCommand
}

func runMerge(command *cobra.Command, arguments []string, flags mergeFlags, logger *zap.Logger) error {
	format := strings.ToLower(flags.format)
	if !output.IsSupportedFormat(format) {
		return fmt.Errorf(invalidFormatMessage, format)
	}
	writer := command.OutOrStdout()
	sourceDirectory := defaultPath
	if len(arguments) > 0 {
		sourceDirectory = arguments[0]
	}
	options := commands.MergeOptions{
		SourceDirectory: sourceDirectory,
		OutputPath:      flags.outputPath,
		ConfigPath:      flags.configPath,
		TagFiles:        flags.tagFiles,
		Logger:          logger,
	}
	if format == types.FormatRaw {
		options.Progress = func(progress commands.MergeProgress) { output.WriteMergeProgress(writer, progress) }
	}
	if flags.countTokens {
		options.TokenModel = flags.tokenModel
	}
	if flags.copy {
		options.Copier = clipboard.NewService()
	}
	report, err := commands.Merge(command.Context(), options)
	if err != nil {
		return err
	}
	rendered, renderErr := output.RenderMergeReport(format, report)
	if renderErr != nil {
		return renderErr
	}
	fmt.Fprint(writer, rendered)
	return nil
}

type unmergeFlags struct {
	outputDirectory string
	overwrite       bool
	dryRun          bool
	verbose         bool
	format          string
}

// runUnmerge restores the document. A dry run always lists every action.
func runUnmerge(command *cobra.Command, documentPath string, flags unmergeFlags, logger *zap.Logger) error {
	format := strings.ToLower(flags.format)
	if !output.IsSupportedFormat(format) {
		return fmt.Errorf(invalidFormatMessage, format)
	}
	writer := command.OutOrStdout()
	options := commands.UnmergeOptions{
		DocumentPath:    documentPath,
		OutputDirectory: flags.outputDirectory,
		Overwrite:       flags.overwrite,
		DryRun:          flags.dryRun,
		Logger:          logger,
	}
	if format == types.FormatRaw && (flags.verbose || flags.dryRun) {
		options.Observer = func(action types.MaterializeAction) { fmt.Fprint(writer, output.FormatAction(action, flags.dryRun)) }
	}
	report, err := commands.Unmerge(command.Context(), options)
	if err != nil {
		return err
	}
	rendered, renderErr := output.RenderUnmergeSummary(format, output.NewUnmergeSummary(documentPath, report, flags.dryRun))
	if renderErr != nil {
		return renderErr
	}
	fmt.Fprint(writer, rendered)
	return nil
}
