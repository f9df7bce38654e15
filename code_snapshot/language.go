package code_snapshot

import (
	"path/filepath"
	"strings"
)

// extensionToLanguage maps file extensions to language tags.
var extensionToLanguage = map[string]string{
	".py":       "python",
	".js":       "javascript",
	".jsx":      "javascript",
	".ts":       "typescript",
	".tsx":      "typescript",
	".rs":       "rust",
	".go":       "go",
	".java":     "java",
	".kt":       "kotlin",
	".kts":      "kotlin",
	".c":        "c",
	".h":        "c",
	".cpp":      "cpp",
	".hpp":      "cpp",
	".cc":       "cpp",
	".cxx":      "cpp",
	".cs":       "csharp",
	".rb":       "ruby",
	".php":      "php",
	".swift":    "swift",
	".scala":    "scala",
	".sh":       "shell",
	".bash":     "shell",
	".zsh":      "shell",
	".fish":     "shell",
	".ps1":      "powershell",
	".sql":      "sql",
	".html":     "html",
	".htm":      "html",
	".css":      "css",
	".scss":     "scss",
	".sass":     "sass",
	".less":     "less",
	".json":     "json",
	".yaml":     "yaml",
	".yml":      "yaml",
	".toml":     "toml",
	".xml":      "xml",
	".md":       "markdown",
	".mdx":      "markdown",
	".rst":      "restructuredtext",
	".txt":      "text",
	".vue":      "vue",
	".svelte":   "svelte",
	".astro":    "astro",
	".lua":      "lua",
	".r":        "r",
	".jl":       "julia",
	".ex":       "elixir",
	".exs":      "elixir",
	".erl":      "erlang",
	".hrl":      "erlang",
	".hs":       "haskell",
	".ml":       "ocaml",
	".mli":      "ocaml",
	".clj":      "clojure",
	".cljs":     "clojure",
	".cljc":     "clojure",
	".dart":     "dart",
	".nim":      "nim",
	".zig":      "zig",
	".v":        "v",
	".sol":      "solidity",
	".proto":    "protobuf",
	".graphql":  "graphql",
	".gql":      "graphql",
}

// DetectLanguage returns a language tag for a path, handling special
// filenames like Dockerfile and Makefile before falling back to the
// extension table. Unknown files are tagged "text".
func DetectLanguage(path string) string {
	name := strings.ToLower(filepath.Base(path))
	switch name {
	case "dockerfile":
		return "dockerfile"
	case "makefile":
		return "makefile"
	case "gemfile", "rakefile":
		return "ruby"
	case ".gitignore", ".dockerignore", ".env", ".env.example":
		return "text"
	}

	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionToLanguage[ext]; ok {
		return lang
	}
	return "text"
}
