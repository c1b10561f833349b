package workspace

import (
	"path/filepath"
	"strings"
)

// DefaultLanguage is used for files whose extension is not in the table
const DefaultLanguage = "plaintext"

var extensionLanguages = map[string]string{
	".html":       "html",
	".htm":        "html",
	".css":        "css",
	".scss":       "scss",
	".js":         "javascript",
	".mjs":        "javascript",
	".jsx":        "javascript",
	".ts":         "typescript",
	".tsx":        "typescript",
	".json":       "json",
	".md":         "markdown",
	".py":         "python",
	".go":         "go",
	".rs":         "rust",
	".java":       "java",
	".kt":         "kotlin",
	".swift":      "swift",
	".c":          "c",
	".h":          "c",
	".cpp":        "cpp",
	".cc":         "cpp",
	".hpp":        "cpp",
	".cs":         "csharp",
	".rb":         "ruby",
	".php":        "php",
	".sh":         "shell",
	".bash":       "shell",
	".yml":        "yaml",
	".yaml":       "yaml",
	".toml":       "toml",
	".xml":        "xml",
	".svg":        "xml",
	".sql":        "sql",
	".vue":        "vue",
	".svelte":     "svelte",
	".txt":        "plaintext",
	".dockerfile": "dockerfile",
}

// fence language tags mapped to the extension used for anonymous files
var fenceExtensions = map[string]string{
	"html":       "html",
	"css":        "css",
	"scss":       "scss",
	"javascript": "js",
	"js":         "js",
	"jsx":        "jsx",
	"typescript": "ts",
	"ts":         "ts",
	"tsx":        "tsx",
	"json":       "json",
	"markdown":   "md",
	"md":         "md",
	"python":     "py",
	"py":         "py",
	"go":         "go",
	"golang":     "go",
	"rust":       "rs",
	"rs":         "rs",
	"java":       "java",
	"kotlin":     "kt",
	"swift":      "swift",
	"c":          "c",
	"cpp":        "cpp",
	"c++":        "cpp",
	"csharp":     "cs",
	"cs":         "cs",
	"ruby":       "rb",
	"php":        "php",
	"bash":       "sh",
	"sh":         "sh",
	"shell":      "sh",
	"yaml":       "yaml",
	"yml":        "yaml",
	"toml":       "toml",
	"xml":        "xml",
	"sql":        "sql",
	"vue":        "vue",
	"svelte":     "svelte",
	"text":       "txt",
	"txt":        "txt",
	"plaintext":  "txt",
}

// LanguageFor infers the editor language from a file name
func LanguageFor(name string) string {
	base := strings.ToLower(filepath.Base(name))
	if base == "dockerfile" {
		return "dockerfile"
	}
	if lang, ok := extensionLanguages[filepath.Ext(base)]; ok {
		return lang
	}
	return DefaultLanguage
}

// ExtensionFor maps a fence language tag to a file extension, "txt" when unknown
func ExtensionFor(fenceLang string) string {
	if ext, ok := fenceExtensions[strings.ToLower(fenceLang)]; ok {
		return ext
	}
	return "txt"
}
