package document

import (
	"path/filepath"
	"strings"
)

// extensionToFenceLanguage maps lowercase file extensions to fenced code block tags.
var extensionToFenceLanguage = map[string]string{
	".py":         "python",
	".rs":         "rust",
	".js":         "javascript",
	".jsx":        "javascript",
	".ts":         "typescript",
	".tsx":        "typescript",
	".html":       "html",
	".css":        "css",
	".scss":       "scss",
	".json":       "json",
	".md":         "markdown",
	".yaml":       "yaml",
	".yml":        "yaml",
	".toml":       "toml",
	".sh":         "bash",
	".zsh":        "bash",
	".bat":        "batch",
	".lua":        "lua",
	".c":          "c",
	".cpp":        "cpp",
	".h":          "cpp",
	".sql":        "sql",
	".java":       "java",
	".go":         "go",
	".rb":         "ruby",
	".php":        "php",
	".xml":        "xml",
	".proto":      "protobuf",
	".dockerfile": "dockerfile",
	".txt":        "text",
	".tf":         "terraform",
	".tfvars":     "terraform",
	".kt":         "kotlin",
	".kts":        "kotlin",
	".swift":      "swift",
	".dart":       "dart",
	".cs":         "csharp",
	".vue":        "vue",
	".ps1":        "powershell",
}

// fileNameToFenceLanguage covers files recognized by name rather than extension.
var fileNameToFenceLanguage = map[string]string{
	"dockerfile": "dockerfile",
	"makefile":   "makefile",
}

// FenceLanguage returns the code block tag for fileName, or an empty string when unknown.
func FenceLanguage(fileName string) string {
	baseName := strings.ToLower(filepath.Base(fileName))
	if language, exists := fileNameToFenceLanguage[baseName]; exists {
		return language
	}
	return extensionToFenceLanguage[strings.ToLower(filepath.Ext(baseName))]
}
