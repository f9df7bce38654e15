package diff_review

import (
	"fmt"
	"strings"
)

const (
	// MaxVisibleFiles caps how many files render full content into the
	// prompt; later files get a header-only placeholder pointing at the
	// file_data side channel.
	MaxVisibleFiles = 50
	// contentCharLimit truncates each rendered file side.
	contentCharLimit = 10000
	// patchCharLimit truncates a patch rendered as content fallback.
	patchCharLimit = 5000
)

// BuildPatchContext renders a bounded textual context from raw unified-diff
// patches. Every file appears in the metadata preamble regardless of whether
// a patch is available.
func BuildPatchContext(files []ChangedFile) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("## Metadata: Analyzing %d files based on git patches:", len(files)))
	for _, f := range files {
		parts = append(parts, fmt.Sprintf("- %s (%s) +%d -%d", f.Path, f.Status, f.Additions, f.Deletions))
	}
	parts = append(parts, "---\n")

	for _, f := range files {
		parts = append(parts, fmt.Sprintf("## File: %s (%s)", f.Path, f.Status))
		parts = append(parts, fmt.Sprintf("Stats: +%d -%d", f.Additions, f.Deletions))

		if f.Patch != "" {
			parts = append(parts, "\n### Diff Patch:")
			parts = append(parts, f.Patch)
		} else {
			parts = append(parts, "\n(No patch available - likely binary or too large)")
		}

		parts = append(parts, "\n---\n")
	}

	return strings.Join(parts, "\n")
}

// BuildContentContext renders a bounded textual context from full file
// contents. All files are listed up front; only the first MaxVisibleFiles
// render content, the rest instruct the consumer to read the file_data side
// channel, so nothing is hidden from the model's awareness and the sandbox
// keeps complete data.
func BuildContentContext(files []DiffFileContext) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("## Metadata: Found %d files in this changeset (listing all):", len(files)))
	for _, f := range files {
		parts = append(parts, fmt.Sprintf("- %s (%s) +%d -%d", f.Path, f.Status, f.Additions, f.Deletions))
	}
	parts = append(parts, "\nNOTE: Full content for ALL files is available in the sandbox variable `file_data`.\n")
	parts = append(parts, "---\n")

	for i, f := range files {
		parts = append(parts, fmt.Sprintf("## File: %s (%s)", f.Path, f.Status))

		if i >= MaxVisibleFiles {
			parts = append(parts, fmt.Sprintf("(Content truncated in prompt. Read file_data[%q][\"new\"] instead)", f.Path))
			parts = append(parts, "\n---\n")
			continue
		}

		parts = append(parts, fmt.Sprintf("Changes: +%d -%d", f.Additions, f.Deletions))

		switch {
		case f.OldFile != nil && f.NewFile != nil:
			parts = append(parts, "\n### Old Version:")
			parts = append(parts, truncate(f.OldFile.Contents, contentCharLimit))
			parts = append(parts, "\n### New Version:")
			parts = append(parts, truncate(f.NewFile.Contents, contentCharLimit))
		case f.NewFile != nil:
			parts = append(parts, "\n### Added File:")
			parts = append(parts, truncate(f.NewFile.Contents, contentCharLimit))
		case f.OldFile != nil:
			parts = append(parts, "\n### Deleted File:")
			parts = append(parts, truncate(f.OldFile.Contents, contentCharLimit))
		case f.Patch != "":
			parts = append(parts, "\n### Patch:")
			parts = append(parts, truncate(f.Patch, patchCharLimit))
		}

		parts = append(parts, "\n---\n")
	}

	return strings.Join(parts, "\n")
}

// BuildFileData flattens file contexts into the side-channel map injected
// into the execution sandbox. Missing sides become empty strings so naive
// serialization never produces a null.
func BuildFileData(files []DiffFileContext) map[string]any {
	data := make(map[string]any, len(files))
	for _, f := range files {
		oldContents, newContents := "", ""
		if f.OldFile != nil {
			oldContents = f.OldFile.Contents
		}
		if f.NewFile != nil {
			newContents = f.NewFile.Contents
		}
		data[f.Path] = map[string]string{
			"old":    oldContents,
			"new":    newContents,
			"status": f.Status,
		}
	}
	return data
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
