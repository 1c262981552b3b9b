// Package output renders progress lines and the final merge and unmerge reports.
package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/temirov/mdpack/internal/commands"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "
	xmlHeader    = xml.Header

	separatorLine = "----------------------------------------"
	listSeparator = ", "

	searchingFormat        = "🔍 Searching for files in: %s\n"
	outputTargetFormat     = "📝 Output will be saved to: %s\n"
	sanitizationOnFormat   = "🔐 Secret sanitization: ENABLED (%d patterns, %d keywords)\n"
	sanitizationOff        = "⚠️  Secret sanitization: DISABLED\n"
	mandatoryFormat        = "🚨 Mandatory directories: %s\n"
	keywordFilterFormat    = "🔍 Keyword filter active: %s\n"
	foundFormat            = "✅ Found %d files to merge\n"
	skippedKeywordsFormat  = "   (%d files ignored, keywords not found)\n"
	configSourceFormat     = "⚙️  Configuration: %s\n"
	taggedFormat           = "🏷️  Tagged %d files\n"
	ignoredShebangFormat   = "ℹ️  Ignored %d files with a shebang\n"
	tagErrorsFormat        = "⚠️  Could not tag %d files\n"
	createdFormat          = "📄 Created %s (%s)\n"
	sanitizedSummaryFormat = "🔐 Sanitized %d secrets in %d files\n"
	readErrorsFormat       = "❌ %d files could not be read\n"
	copiedLine             = "📋 Copied to clipboard\n"

	actionLineFormat      = "  %-12s %s\n"
	actionErrorLineFormat = "  %-12s %s: %s\n"
	statLineFormat        = "%-16s %d\n"
	outputDirLineFormat   = "%-16s %s\n"
	dryRunPrefix          = "would "

	unsupportedFormatMessage = "unsupported format '%s'"
)

// IsSupportedFormat reports whether format names a report rendering.
func IsSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// WriteMergeProgress prints the resolved merge settings before the document is written.
func WriteMergeProgress(writer io.Writer, progress commands.MergeProgress) {
	configuration := progress.Configuration
	fmt.Fprintf(writer, searchingFormat, progress.SourceDirectory)
	fmt.Fprintf(writer, outputTargetFormat, filepath.Base(progress.OutputPath))
	for _, source := range configuration.Sources {
		fmt.Fprintf(writer, configSourceFormat, source)
	}
	if configuration.Sanitization.Enabled {
		fmt.Fprintf(writer, sanitizationOnFormat, len(configuration.Sanitization.Patterns), len(configuration.Sanitization.Keywords))
	} else {
		fmt.Fprint(writer, sanitizationOff)
	}
	if mandatory := configuration.Filter.MandatoryPaths; len(mandatory) > 0 {
		fmt.Fprintf(writer, mandatoryFormat, sortedList(mandatory))
	}
	if keywords := configuration.Filter.SearchKeywords; len(keywords) > 0 {
		fmt.Fprintf(writer, keywordFilterFormat, sortedList(keywords))
	}
	fmt.Fprintf(writer, foundFormat, progress.Selected)
	if len(configuration.Filter.SearchKeywords) > 0 && progress.SkippedByKeywords > 0 {
		fmt.Fprintf(writer, skippedKeywordsFormat, progress.SkippedByKeywords)
	}
	if progress.Tagging.Tagged > 0 {
		fmt.Fprintf(writer, taggedFormat, progress.Tagging.Tagged)
	}
	if progress.Tagging.IgnoredShebang > 0 {
		fmt.Fprintf(writer, ignoredShebangFormat, progress.Tagging.IgnoredShebang)
	}
	if progress.Tagging.Errors > 0 {
		fmt.Fprintf(writer, tagErrorsFormat, progress.Tagging.Errors)
	}
}

// RenderMergeReport formats the finished merge for the requested output format.
func RenderMergeReport(format string, report types.MergeReport) (string, error) {
	switch format {
	case types.FormatJSON:
		return renderJSON(report)
	case types.FormatXML:
		return renderXML(report)
	case types.FormatRaw:
		var builder strings.Builder
		fmt.Fprintf(&builder, createdFormat, report.OutputPath, utils.FormatDocumentSize(report.Bytes))
		if report.Replacements > 0 {
			fmt.Fprintf(&builder, sanitizedSummaryFormat, report.Replacements, report.SanitizedFiles)
		}
		if report.ReadErrors > 0 {
			fmt.Fprintf(&builder, readErrorsFormat, report.ReadErrors)
		}
		if report.Copied {
			builder.WriteString(copiedLine)
		}
		builder.WriteString(FormatSummaryLine(report) + "\n")
		return builder.String(), nil
	default:
		return "", fmt.Errorf(unsupportedFormatMessage, format)
	}
}

// FormatSummaryLine formats a merge report into the one-line raw summary.
func FormatSummaryLine(report types.MergeReport) string {
	label := "files"
	if report.Files == 1 {
		label = "file"
	}
	extra := ""
	if report.TokenModel != "" {
		extra = fmt.Sprintf(", %d tokens (model: %s)", report.Tokens, report.TokenModel)
	}
	return fmt.Sprintf("Summary: %d %s, %s%s", report.Files, label, utils.FormatDocumentSize(report.Bytes), extra)
}

// FormatAction renders one materializer decision for verbose unmerge output.
func FormatAction(action types.MaterializeAction, dryRun bool) string {
	label := string(action.Kind)
	if dryRun && action.Kind != types.ActionError {
		label = dryRunPrefix + label
	}
	if action.Err != nil {
		return fmt.Sprintf(actionErrorLineFormat, label, action.Path, action.Err)
	}
	return fmt.Sprintf(actionLineFormat, label, action.Path)
}

// NewUnmergeSummary converts an unmerge report into its serializable form.
func NewUnmergeSummary(documentPath string, report commands.UnmergeReport, dryRun bool) types.UnmergeSummary {
	summary := types.UnmergeSummary{
		Document:        documentPath,
		OutputDirectory: report.OutputDirectory,
		DryRun:          dryRun,
		Entries:         report.Entries,
		Stats:           report.Stats,
		Actions:         make([]types.ActionRecord, 0, len(report.Actions)),
	}
	for _, action := range report.Actions {
		record := types.ActionRecord{Path: action.Path, Kind: action.Kind}
		if action.Err != nil {
			record.Error = action.Err.Error()
		}
		summary.Actions = append(summary.Actions, record)
	}
	return summary
}

// RenderUnmergeSummary formats the unmerge outcome. The raw form is the stats table.
func RenderUnmergeSummary(format string, summary types.UnmergeSummary) (string, error) {
	switch format {
	case types.FormatJSON:
		return renderJSON(summary)
	case types.FormatXML:
		return renderXML(summary)
	case types.FormatRaw:
		labels := []string{"Written:", "Overwritten:", "Skipped:"}
		if summary.DryRun {
			labels = []string{"Would write:", "Would overwrite:", "Would skip:"}
		}
		var builder strings.Builder
		builder.WriteString(separatorLine + "\n")
		fmt.Fprintf(&builder, statLineFormat, labels[0], summary.Stats.Written)
		fmt.Fprintf(&builder, statLineFormat, labels[1], summary.Stats.Overwritten)
		fmt.Fprintf(&builder, statLineFormat, labels[2], summary.Stats.Skipped)
		fmt.Fprintf(&builder, statLineFormat, "Errors:", summary.Stats.Errors)
		fmt.Fprintf(&builder, outputDirLineFormat, "Output dir:", summary.OutputDirectory)
		builder.WriteString(separatorLine + "\n")
		return builder.String(), nil
	default:
		return "", fmt.Errorf(unsupportedFormatMessage, format)
	}
}

func renderJSON(value interface{}) (string, error) {
	encoded, err := json.MarshalIndent(value, indentPrefix, indentSpacer)
	if err != nil {
		return "", err
	}
	return string(encoded) + "\n", nil
}

func renderXML(value interface{}) (string, error) {
	encoded, err := xml.MarshalIndent(value, indentPrefix, indentSpacer)
	if err != nil {
		return "", err
	}
	return xmlHeader + string(encoded) + "\n", nil
}

func sortedList(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, listSeparator)
}
