// Package document writes merged Markdown documents and parses them back into entries.
package document

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/sanitize"
	"github.com/temirov/mdpack/internal/tree"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	sectionSeparator = "---\n\n"

	descriptionHeading = "# PROJECT DESCRIPTION\n\n"
	treeHeading        = "# PROJECT DIRECTORY TREE\n\n"
	treeFenceOpening   = "```text\n"
	treeFenceClosing   = "```\n\n"

	securityNotice = "> 🔐 **SECURITY NOTICE**\n" +
		"> This document has been processed with secret sanitization.\n" +
		"> Sensitive information (passwords, API keys, tokens) has been replaced with `" + types.MaskToken + "`.\n\n"
	keywordNoticeFormat = "> ⚠️ **KEYWORD FILTER ACTIVE**\n> Searching for: `%s`\n\n"

	fileHeaderFormat     = "## File: `%s`\n\n"
	sanitizedNoteFormat  = "> 🔐 **Sanitized**: %s\n\n"
	readErrorNoteFormat  = "> ❌ [ERROR READING FILE]: %v\n\n"
	descriptionSeparator = ", "

	minimumFenceLength = 3
	backtick           = '`'

	errorRelativePathFormat = "relative path for %s: %w"
	errorWriteFormat        = "write document: %w"

	warningUnrepresentablePath = "skipping file whose path cannot be written as a section header"
	warningReadFile            = "embedding read error for file"
)

// SerializeRequest describes one document.
type SerializeRequest struct {
	// RootDirectory is the absolute source directory the files are relative to.
	RootDirectory      string
	ProjectDescription string
	Tree               *tree.Directory
	// TreePositiveFilter hides empty directories in the rendered tree.
	TreePositiveFilter bool
	// Files are absolute paths in output order.
	Files []string
	// Keywords annotates tree entries with the search keywords found in them.
	Keywords       map[string][]string
	SearchKeywords []string
	Sanitizer      *sanitize.Sanitizer
	Logger         *zap.Logger
}

// SerializeResult summarizes what was written.
type SerializeResult struct {
	Files          int
	SanitizedFiles int
	Replacements   int
	ReadErrors     int
	Bytes          int64
}

type countingWriter struct {
	writer io.Writer
	count  int64
}

func (counter *countingWriter) Write(data []byte) (int, error) {
	written, err := counter.writer.Write(data)
	counter.count += int64(written)
	return written, err
}

// Serialize streams the document to writer. Files are read, sanitized and written one at a
// time; a file that cannot be read is noted in the document and does not stop the run.
func Serialize(ctx context.Context, writer io.Writer, request SerializeRequest) (SerializeResult, error) {
	logger := request.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := &countingWriter{writer: writer}
	buffered := bufio.NewWriter(counter)
	var result SerializeResult

	if err := writeHeader(buffered, request); err != nil {
		return result, fmt.Errorf(errorWriteFormat, err)
	}

	for _, filePath := range request.Files {
		if err := ctx.Err(); err != nil {
			if flushErr := buffered.Flush(); flushErr != nil {
				return result, fmt.Errorf(errorWriteFormat, flushErr)
			}
			result.Bytes = counter.count
			return result, err
		}
		relativePath, relativeError := filepath.Rel(request.RootDirectory, filePath)
		if relativeError != nil {
			return result, fmt.Errorf(errorRelativePathFormat, filePath, relativeError)
		}
		relativePath = filepath.ToSlash(relativePath)
		if !representablePath(relativePath) {
			logger.Warn(warningUnrepresentablePath, zap.String("path", relativePath))
			result.ReadErrors++
			continue
		}
		if err := writeFileSection(buffered, filePath, relativePath, request.Sanitizer, logger, &result); err != nil {
			return result, fmt.Errorf(errorWriteFormat, err)
		}
	}

	if err := buffered.Flush(); err != nil {
		return result, fmt.Errorf(errorWriteFormat, err)
	}
	result.Bytes = counter.count
	return result, nil
}

// writeHeader writes everything before the first file section. Write errors stay on the
// buffered writer and surface on the next flush.
func writeHeader(writer *bufio.Writer, request SerializeRequest) error {
	if description := strings.TrimSpace(request.ProjectDescription); description != "" {
		writer.WriteString(descriptionHeading)
		writer.WriteString(description + "\n\n")
		writer.WriteString(sectionSeparator)
	}

	writer.WriteString(treeHeading)
	writer.WriteString(treeFenceOpening)
	rootTree := request.Tree
	if rootTree == nil {
		rootTree = tree.NewDirectory()
	}
	rootName := filepath.Base(request.RootDirectory)
	if err := tree.Render(writer, rootName, rootTree, request.Keywords, request.TreePositiveFilter); err != nil {
		return err
	}
	writer.WriteString(treeFenceClosing)
	writer.WriteString(sectionSeparator)

	if request.Sanitizer.Enabled() {
		writer.WriteString(securityNotice)
		writer.WriteString(sectionSeparator)
	}

	if keywords := sortedUnique(request.SearchKeywords); len(keywords) > 0 {
		fmt.Fprintf(writer, keywordNoticeFormat, strings.Join(keywords, descriptionSeparator))
		writer.WriteString(sectionSeparator)
	}
	return nil
}

func writeFileSection(writer *bufio.Writer, filePath string, relativePath string, sanitizer *sanitize.Sanitizer, logger *zap.Logger, result *SerializeResult) error {
	fmt.Fprintf(writer, fileHeaderFormat, relativePath)
	result.Files++

	content, readError := readText(filePath)
	if readError != nil {
		logger.Warn(warningReadFile, zap.String("path", relativePath), zap.Error(readError))
		result.ReadErrors++
		_, err := fmt.Fprintf(writer, readErrorNoteFormat, readError)
		return err
	}

	var descriptions []string
	if sanitizer.Enabled() {
		content, descriptions = sanitizer.Sanitize(content)
	}
	if len(descriptions) > 0 {
		result.SanitizedFiles++
		result.Replacements += len(descriptions)
		fmt.Fprintf(writer, sanitizedNoteFormat, strings.Join(descriptions, descriptionSeparator))
	}

	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	fence := Fence(content)
	writer.WriteString(fence + FenceLanguage(relativePath) + "\n")
	writer.WriteString(content)
	_, err := writer.WriteString(fence + "\n\n")
	return err
}

func readText(filePath string) (string, error) {
	fileBytes, readError := os.ReadFile(filePath)
	if readError != nil {
		return "", readError
	}
	return utils.DecodeText(fileBytes)
}

// Fence returns a backtick fence longer than any backtick run inside content.
func Fence(content string) string {
	longestRun := 0
	currentRun := 0
	for index := 0; index < len(content); index++ {
		if content[index] == backtick {
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
			continue
		}
		currentRun = 0
	}
	fenceLength := minimumFenceLength
	if longestRun+1 > fenceLength {
		fenceLength = longestRun + 1
	}
	return strings.Repeat(string(backtick), fenceLength)
}

// representablePath reports whether relativePath survives a round trip through a section header.
func representablePath(relativePath string) bool {
	if relativePath == "" || relativePath != strings.TrimSpace(relativePath) {
		return false
	}
	return !strings.ContainsAny(relativePath, "`\r\n")
}

func sortedUnique(values []string) []string {
	var result []string
	for _, value := range values {
		if value != "" && !utils.ContainsString(result, value) {
			result = append(result, value)
		}
	}
	sort.Strings(result)
	return result
}
