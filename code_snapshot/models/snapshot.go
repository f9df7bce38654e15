package models

import "strings"

// SymbolTag is a lightweight, best-effort symbol marker used for indexing.
// It is advisory tagging, not a parse tree.
type SymbolTag struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"` // function, method, class, import, export
	Line   int    `json:"line_no"`
}

// FileEntry holds the content and metadata of a single included file.
type FileEntry struct {
	RelativePath string      `json:"relative_path"`
	Language     string      `json:"language"`
	SizeBytes    int64       `json:"size_bytes"`
	SHA1         string      `json:"sha1"`
	TextLines    []string    `json:"text_lines"`
	Symbols      []SymbolTag `json:"symbols,omitempty"`
}

// RepoInfo summarizes the repository a snapshot was built from.
type RepoInfo struct {
	Root       string         `json:"root"`
	Languages  map[string]int `json:"languages"`
	TotalFiles int            `json:"total_files"`
	TotalBytes int64          `json:"total_bytes"`
}

// Snapshot is a bounded, prioritized textual representation of a repository.
// FileTree lists every file that passed filtering, including files later
// excluded by the byte budgets, so callers can still display them.
type Snapshot struct {
	RepoInfo RepoInfo              `json:"repo_info"`
	FileTree []string              `json:"file_tree"`
	Files    map[string]*FileEntry `json:"files"`
}

// ToPromptMap flattens the snapshot into a path -> content map, the shape the
// reasoning loop injects into its execution sandbox.
func (s *Snapshot) ToPromptMap() map[string]string {
	result := make(map[string]string, len(s.Files))
	for path, entry := range s.Files {
		result[path] = strings.Join(entry.TextLines, "\n")
	}
	return result
}
