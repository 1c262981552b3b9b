// Package types defines every cross‑package data structure used by the mdpack CLI.
package types

import "encoding/xml"

const (
	CommandMerge   = "merge"
	CommandUnmerge = "unmerge"
	CommandInit    = "init"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	// MaskToken replaces redacted secret values.
	MaskToken = "********"
)

// FilterRules decides which files participate in a merge or appear in the rendered tree.
type FilterRules struct {
	MandatoryPaths       []string
	ExcludedDirNames     []string
	ExcludedFilePrefixes []string
	IncludedExtensions   []string
	JustPrefixes         []string
	JustContains         []string
	AnyPrefixes          []string
	AnyContains          []string
	SearchKeywords       []string
	ExcludedGlobs        []string
	RespectGitignore     bool
}

// HasJustFilter reports whether a required name filter is configured.
func (rules FilterRules) HasJustFilter() bool {
	return len(rules.JustPrefixes) > 0 || len(rules.JustContains) > 0
}

// HasAnyFilter reports whether a soft name filter is configured.
func (rules FilterRules) HasAnyFilter() bool {
	return len(rules.AnyPrefixes) > 0 || len(rules.AnyContains) > 0
}

// HasPositiveFilter reports whether either name filter is configured.
func (rules FilterRules) HasPositiveFilter() bool {
	return rules.HasJustFilter() || rules.HasAnyFilter()
}

// PatternRule is a single named redaction rule.
type PatternRule struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Regex       string `mapstructure:"regex" yaml:"regex"`
	Replacement string `mapstructure:"replacement" yaml:"replacement"`
}

// SanitizationRules holds the ordered redaction rules and keyword literals.
type SanitizationRules struct {
	Enabled  bool
	Patterns []PatternRule
	Keywords []string
}

// Entry is one file recovered from, or destined for, a merged document.
type Entry struct {
	Path    string
	Content string
}

// ActionKind names what the materializer did, or would do, with one entry.
type ActionKind string

const (
	ActionWrite     ActionKind = "write"
	ActionOverwrite ActionKind = "overwrite"
	ActionSkip      ActionKind = "skip"
	ActionError     ActionKind = "error"
)

// MaterializeAction records the outcome for a single entry.
type MaterializeAction struct {
	Path string
	Kind ActionKind
	Err  error
}

// MaterializeStats aggregates materializer outcomes.
type MaterializeStats struct {
	Written     int `json:"written" xml:"written"`
	Overwritten int `json:"overwritten" xml:"overwritten"`
	Skipped     int `json:"skipped" xml:"skipped"`
	Errors      int `json:"errors" xml:"errors"`
}

// ActionRecord is the serializable form of a MaterializeAction.
type ActionRecord struct {
	Path  string     `json:"path" xml:"path,attr"`
	Kind  ActionKind `json:"action" xml:"action,attr"`
	Error string     `json:"error,omitempty" xml:"error,omitempty"`
}

// UnmergeSummary reports a finished unmerge.
type UnmergeSummary struct {
	XMLName         xml.Name         `json:"-" xml:"unmerge"`
	Document        string           `json:"document" xml:"document"`
	OutputDirectory string           `json:"outputDirectory" xml:"outputDirectory"`
	DryRun          bool             `json:"dryRun" xml:"dryRun"`
	Entries         int              `json:"entries" xml:"entries"`
	Stats           MaterializeStats `json:"stats" xml:"stats"`
	Actions         []ActionRecord   `json:"actions" xml:"actions>file"`
}

// MergeReport summarizes a finished merge.
type MergeReport struct {
	XMLName           xml.Name `json:"-" xml:"merge"`
	OutputPath        string   `json:"outputPath" xml:"outputPath"`
	Files             int      `json:"files" xml:"files"`
	SkippedByKeywords int      `json:"skippedByKeywords" xml:"skippedByKeywords"`
	SanitizedFiles    int      `json:"sanitizedFiles" xml:"sanitizedFiles"`
	Replacements      int      `json:"replacements" xml:"replacements"`
	ReadErrors        int      `json:"readErrors" xml:"readErrors"`
	// TaggedFiles counts source files whose path comment was added or refreshed.
	TaggedFiles int    `json:"taggedFiles,omitempty" xml:"taggedFiles,omitempty"`
	Bytes       int64  `json:"bytes" xml:"bytes"`
	Tokens      int    `json:"tokens,omitempty" xml:"tokens,omitempty"`
	TokenModel  string `json:"model,omitempty" xml:"model,omitempty"`
	Copied      bool   `json:"copied,omitempty" xml:"copied,omitempty"`
}
