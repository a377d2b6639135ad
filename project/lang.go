package project

import (
	"path/filepath"
	"strings"
)

// extensionLanguages maps file extensions to index language names.
// Only typescript, javascript, and python have symbol parsers; the rest
// are counted and summarized.
var extensionLanguages = map[string]string{
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".py":   "python",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".php":  "php",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".cs":   "csharp",
	".sh":   "shell",
	".sql":  "sql",
	".json": "json",
	".yml":  "yaml",
	".yaml": "yaml",
	".toml": "toml",
	".md":   "markdown",
	".html": "html",
	".css":  "css",
	".scss": "css",
}

// DetectLanguage returns the index language for a path, or "unknown".
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	return "unknown"
}
