// Package tree builds and renders the ASCII directory tree shown at the top of a merged document.
package tree

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/ignore"
	"github.com/temirov/mdpack/internal/types"
	"github.com/temirov/mdpack/internal/utils"
)

const (
	connectorMiddle = "├── "
	connectorLast   = "└── "
	paddingOpen     = "│   "
	paddingClosed   = "    "

	directorySuffix         = "/"
	annotationPrefix        = "  (* "
	annotationSuffix        = ")"
	annotationSeparator     = ","
	errorAbsolutePathFormat = "getting absolute path for %s: %w"
	errorReadDirectory      = "reading directory %s: %w"
	warningSkipSubdirectory = "skipping unreadable subdirectory"
)

// Node is either a *File or a *Directory.
type Node interface {
	isNode()
}

// File is a leaf of the tree.
type File struct{}

// Directory maps child names to nodes.
type Directory struct {
	Children map[string]Node
}

func (*File) isNode()      {}
func (*Directory) isNode() {}

// NewDirectory returns an empty directory node.
func NewDirectory() *Directory {
	return &Directory{Children: map[string]Node{}}
}

// Options configures Build.
type Options struct {
	// SkipNames lists file base names left out of the tree, such as the output document.
	SkipNames []string
	Logger    *zap.Logger
}

// Build walks rootDirectory with the tree rules. Mandatory paths and search keywords
// play no part here.
func Build(ctx context.Context, rootDirectory string, rules types.FilterRules, options Options) (*Directory, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	absoluteRoot, absolutePathError := filepath.Abs(rootDirectory)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootDirectory, absolutePathError)
	}
	builder := treeBuilder{
		ctx:       ctx,
		rootPath:  filepath.Clean(absoluteRoot),
		matcher:   ignore.NewMatcher(absoluteRoot, rules, logger),
		skipNames: options.SkipNames,
		logger:    logger,
	}
	return builder.buildDirectory(builder.rootPath)
}

type treeBuilder struct {
	ctx       context.Context
	rootPath  string
	matcher   *ignore.Matcher
	skipNames []string
	logger    *zap.Logger
}

func (builder treeBuilder) buildDirectory(directoryPath string) (*Directory, error) {
	directoryEntries, readDirectoryError := os.ReadDir(directoryPath)
	if readDirectoryError != nil {
		return nil, fmt.Errorf(errorReadDirectory, directoryPath, readDirectoryError)
	}
	directory := NewDirectory()
	for _, directoryEntry := range directoryEntries {
		if err := builder.ctx.Err(); err != nil {
			return nil, err
		}
		childPath := filepath.Join(directoryPath, directoryEntry.Name())
		relativeChildPath := utils.RelativePathOrSelf(childPath, builder.rootPath)
		if directoryEntry.IsDir() {
			if builder.matcher.PruneDirectory(relativeChildPath) {
				continue
			}
			childDirectory, buildError := builder.buildDirectory(childPath)
			if buildError != nil {
				if builder.ctx.Err() != nil {
					return nil, buildError
				}
				builder.logger.Warn(warningSkipSubdirectory, zap.String("path", childPath), zap.Error(buildError))
				childDirectory = NewDirectory()
			}
			directory.Children[directoryEntry.Name()] = childDirectory
			continue
		}
		if utils.ContainsString(builder.skipNames, directoryEntry.Name()) {
			continue
		}
		if builder.matcher.SkipFile(relativeChildPath) || !builder.matcher.AcceptTreeName(directoryEntry.Name()) {
			continue
		}
		directory.Children[directoryEntry.Name()] = &File{}
	}
	return directory, nil
}

// Render writes the tree. Annotations map a root-relative file path to the keywords found in it.
// When positiveFilter is set, directories without any file below them are left out.
func Render(writer io.Writer, rootName string, root *Directory, annotations map[string][]string, positiveFilter bool) error {
	renderer := treeRenderer{
		writer:         writer,
		annotations:    annotations,
		positiveFilter: positiveFilter,
	}
	renderer.writeLine(rootName + directorySuffix)
	renderer.renderChildren(root, "", "")
	return renderer.err
}

type treeRenderer struct {
	writer         io.Writer
	annotations    map[string][]string
	positiveFilter bool
	err            error
}

func (renderer *treeRenderer) writeLine(line string) {
	if renderer.err != nil {
		return
	}
	_, renderer.err = io.WriteString(renderer.writer, line+"\n")
}

func (renderer *treeRenderer) renderChildren(directory *Directory, indent string, relativePrefix string) {
	names := renderer.visibleNames(directory)
	for index, name := range names {
		isLast := index == len(names)-1
		connector := connectorMiddle
		childIndent := indent + paddingOpen
		if isLast {
			connector = connectorLast
			childIndent = indent + paddingClosed
		}
		relativePath := relativePrefix + name
		switch child := directory.Children[name].(type) {
		case *Directory:
			renderer.writeLine(indent + connector + name + directorySuffix)
			renderer.renderChildren(child, childIndent, relativePath+directorySuffix)
		case *File:
			line := indent + connector + name
			if keywords := renderer.annotations[relativePath]; len(keywords) > 0 {
				line += annotationPrefix + strings.Join(keywords, annotationSeparator) + annotationSuffix
			}
			renderer.writeLine(line)
		}
	}
}

// visibleNames returns the sorted child names that will be printed, so connectors
// are chosen after pruning.
func (renderer *treeRenderer) visibleNames(directory *Directory) []string {
	names := make([]string, 0, len(directory.Children))
	for name, child := range directory.Children {
		if childDirectory, isDirectory := child.(*Directory); isDirectory && renderer.positiveFilter && !HasFiles(childDirectory) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasFiles reports whether any file exists below directory.
func HasFiles(directory *Directory) bool {
	for _, child := range directory.Children {
		switch typedChild := child.(type) {
		case *File:
			return true
		case *Directory:
			if HasFiles(typedChild) {
				return true
			}
		}
	}
	return false
}
