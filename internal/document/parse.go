package document

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/temirov/mdpack/internal/types"
)

// ErrNoSectionsFound reports a document without any "## File:" header.
var ErrNoSectionsFound = errors.New("no file sections found in document")

var fileHeaderPattern = regexp.MustCompile("^## File: `([^`]+)`\\s*$")

const (
	errorOpenDocumentFormat = "open document %s: %w"
	errorReadDocumentFormat = "read document: %w"
)

type parserState int

const (
	stateBetweenBlocks parserState = iota
	// stateCapturing collects the first block of the current section.
	stateCapturing
	// stateSkipping passes over any later block of the same section.
	stateSkipping
)

// ParseFile reads and parses the document at path.
func ParseFile(path string) ([]types.Entry, error) {
	file, openError := os.Open(path)
	if openError != nil {
		return nil, fmt.Errorf(errorOpenDocumentFormat, path, openError)
	}
	defer file.Close()
	return ParseReader(file)
}

// Parse recovers the entries of a document in document order.
func Parse(text string) ([]types.Entry, error) {
	return ParseReader(strings.NewReader(text))
}

// ParseReader is Parse over a stream. Headers are recognized only outside fenced blocks, and
// a block ends only at a line holding exactly its opening backtick run.
func ParseReader(reader io.Reader) ([]types.Entry, error) {
	bufferedReader := bufio.NewReader(reader)
	var entries []types.Entry
	var content strings.Builder
	state := stateBetweenBlocks
	sectionOpen := false
	sectionCaptured := false
	closingFence := ""

	finishSection := func() {
		if !sectionOpen {
			return
		}
		entries[len(entries)-1].Content = content.String()
		content.Reset()
	}

	for {
		line, readError := bufferedReader.ReadString('\n')
		if line != "" {
			switch state {
			case stateCapturing, stateSkipping:
				if isClosingFence(line, closingFence) {
					state = stateBetweenBlocks
				} else if state == stateCapturing {
					content.WriteString(line)
				}
			default:
				if match := fileHeaderPattern.FindStringSubmatch(trimLineEnding(line)); match != nil {
					finishSection()
					entries = append(entries, types.Entry{Path: strings.TrimSpace(match[1])})
					sectionOpen = true
					sectionCaptured = false
				} else if fence, opens := openingFence(line); opens {
					closingFence = fence
					if sectionOpen && !sectionCaptured {
						state = stateCapturing
						sectionCaptured = true
					} else {
						state = stateSkipping
					}
				}
			}
		}
		if readError == io.EOF {
			break
		}
		if readError != nil {
			return nil, fmt.Errorf(errorReadDocumentFormat, readError)
		}
	}
	finishSection()

	if len(entries) == 0 {
		return nil, ErrNoSectionsFound
	}
	return entries, nil
}

// openingFence returns the backtick run that starts line when it has at least three backticks.
func openingFence(line string) (string, bool) {
	runLength := 0
	for runLength < len(line) && line[runLength] == backtick {
		runLength++
	}
	if runLength < minimumFenceLength {
		return "", false
	}
	return line[:runLength], true
}

func isClosingFence(line string, fence string) bool {
	return strings.TrimRight(line, " \t\r\n") == fence
}

func trimLineEnding(line string) string {
	return strings.TrimRight(line, "\r\n")
}
