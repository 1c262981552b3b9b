// Package tagger stamps selected source files with a first-line comment naming their
// root-relative path, so the path survives when a file is pasted somewhere on its own.
package tagger

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/mdpack/internal/utils"
)

const (
	pathPlaceholder = "{}"
	tagLabel        = "File: "
	shebangPrefix   = "#!"
	lineBreak       = "\n"

	errorReadFormat  = "read %s: %w"
	errorStatFormat  = "stat %s: %w"
	errorWriteFormat = "write %s: %w"

	warningTagFile = "could not tag file"
)

// commentTemplates maps a lower-case extension to its single-line comment template.
// An empty template marks a format that cannot carry a leading comment safely.
var commentTemplates = map[string]string{
	".py":         "# {}",
	".sh":         "# {}",
	".ps1":        "# {}",
	".yaml":       "# {}",
	".yml":        "# {}",
	".toml":       "# {}",
	".rb":         "# {}",
	".dockerfile": "# {}",
	".tf":         "# {}",
	".tfvars":     "# {}",
	".rs":         "// {}",
	".js":         "// {}",
	".jsx":        "// {}",
	".ts":         "// {}",
	".tsx":        "// {}",
	".go":         "// {}",
	".c":          "// {}",
	".cpp":        "// {}",
	".h":          "// {}",
	".java":       "// {}",
	".kt":         "// {}",
	".kts":        "// {}",
	".swift":      "// {}",
	".proto":      "// {}",
	".php":        "// {}",
	".dart":       "// {}",
	".cs":         "// {}",
	".scala":      "// {}",
	".lua":        "-- {}",
	".sql":        "-- {}",
	".hs":         "-- {}",
	".css":        "/* {} */",
	".scss":       "/* {} */",
	".sass":       "/* {} */",
	".less":       "/* {} */",
	".vue":        "",
	".html":       "",
	".xml":        "",
	".md":         "[//]: # ({})",
}

// Result counts what a tagging pass changed.
type Result struct {
	Tagged         int
	IgnoredShebang int
	Errors         int
}

// CommentTemplate returns the comment template for fileName and whether it can be tagged.
func CommentTemplate(fileName string) (string, bool) {
	template, known := commentTemplates[strings.ToLower(filepath.Ext(fileName))]
	if !known || template == "" {
		return "", false
	}
	return template, true
}

// TagLine renders the comment line for a root-relative path, e.g. "// File: pkg/main.go".
func TagLine(template string, relativePath string) string {
	return strings.Replace(template, pathPlaceholder, tagLabel+relativePath, 1)
}

// oldTagPattern matches any earlier tag line of template. Other leading comments do not match.
func oldTagPattern(template string) *regexp.Regexp {
	before, after, _ := strings.Cut(template, pathPlaceholder)
	return regexp.MustCompile("^" + regexp.QuoteMeta(before+tagLabel) + ".*" + regexp.QuoteMeta(after) + "$")
}

// Tag writes or refreshes the path comment on the first line of every taggable file.
// Files starting with a shebang are left alone. A failure on one file is logged and counted.
func Tag(ctx context.Context, filesystem afero.Fs, rootDirectory string, files []string, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var result Result
	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		template, taggable := CommentTemplate(filePath)
		if !taggable {
			continue
		}
		relativePath := utils.RelativePathOrSelf(filePath, rootDirectory)
		changed, shebang, tagErr := tagFile(filesystem, filePath, TagLine(template, relativePath), oldTagPattern(template))
		switch {
		case tagErr != nil:
			logger.Warn(warningTagFile, zap.String("path", relativePath), zap.Error(tagErr))
			result.Errors++
		case shebang:
			result.IgnoredShebang++
		case changed:
			result.Tagged++
		}
	}
	return result, nil
}

func tagFile(filesystem afero.Fs, filePath string, tagLine string, oldTag *regexp.Regexp) (bool, bool, error) {
	data, readErr := afero.ReadFile(filesystem, filePath)
	if readErr != nil {
		return false, false, fmt.Errorf(errorReadFormat, filePath, readErr)
	}
	content, decodeErr := utils.DecodeText(data)
	if decodeErr != nil {
		return false, false, fmt.Errorf(errorReadFormat, filePath, decodeErr)
	}
	if content == "" {
		return false, false, nil
	}

	firstLine, remainder, hasBreak := strings.Cut(content, lineBreak)
	trimmedFirstLine := strings.TrimSpace(firstLine)
	if strings.HasPrefix(trimmedFirstLine, shebangPrefix) {
		return false, true, nil
	}

	body := content
	if oldTag.MatchString(trimmedFirstLine) {
		if trimmedFirstLine == tagLine {
			return false, false, nil
		}
		body = ""
		if hasBreak {
			body = remainder
		}
	}

	info, statErr := filesystem.Stat(filePath)
	if statErr != nil {
		return false, false, fmt.Errorf(errorStatFormat, filePath, statErr)
	}
	if err := afero.WriteFile(filesystem, filePath, []byte(tagLine+lineBreak+body), info.Mode().Perm()); err != nil {
		return false, false, fmt.Errorf(errorWriteFormat, filePath, err)
	}
	return true, false, nil
}
