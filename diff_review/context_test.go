package diff_review

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPatchContextListsEveryFile(t *testing.T) {
	files := []ChangedFile{
		{Path: "a.go", Status: StatusModified, Additions: 1, Deletions: 0, Patch: "@@ -1,2 +1,3 @@\n+line"},
		{Path: "image.png", Status: StatusAdded, Additions: 0, Deletions: 0},
	}

	out := BuildPatchContext(files)

	assert.Contains(t, out, "Analyzing 2 files")
	assert.Contains(t, out, "- a.go (modified) +1 -0")
	assert.Contains(t, out, "- image.png (added) +0 -0")
	assert.Contains(t, out, "@@ -1,2 +1,3 @@\n+line")
	// Files without a patch still show up with an explanation.
	assert.Contains(t, out, "(No patch available - likely binary or too large)")
}

func TestBuildContentContextVisibleWindow(t *testing.T) {
	var files []DiffFileContext
	for i := 0; i < MaxVisibleFiles+3; i++ {
		files = append(files, DiffFileContext{
			Path:    fmt.Sprintf("file%03d.go", i),
			Status:  StatusModified,
			NewFile: &FileContents{Name: fmt.Sprintf("file%03d.go", i), Contents: "content"},
		})
	}

	out := BuildContentContext(files)

	// Every file is named in the preamble.
	for _, f := range files {
		assert.Contains(t, out, "- "+f.Path)
	}
	// Files past the window render a placeholder instead of content.
	assert.Contains(t, out, fmt.Sprintf("(Content truncated in prompt. Read file_data[%q][\"new\"] instead)", files[MaxVisibleFiles].Path))
	assert.Contains(t, out, "available in the sandbox variable `file_data`")
}

func TestBuildContentContextRendersSides(t *testing.T) {
	files := []DiffFileContext{
		{Path: "mod.go", Status: StatusModified,
			OldFile: &FileContents{Contents: "old body"},
			NewFile: &FileContents{Contents: "new body"}},
		{Path: "new.go", Status: StatusAdded, NewFile: &FileContents{Contents: "added body"}},
		{Path: "gone.go", Status: StatusRemoved, OldFile: &FileContents{Contents: "removed body"}},
		{Path: "patchy.go", Status: StatusModified, Patch: "@@ -1 +1 @@\n-x\n+y"},
	}

	out := BuildContentContext(files)

	assert.Contains(t, out, "### Old Version:\nold body")
	assert.Contains(t, out, "### New Version:\nnew body")
	assert.Contains(t, out, "### Added File:\nadded body")
	assert.Contains(t, out, "### Deleted File:\nremoved body")
	assert.Contains(t, out, "### Patch:\n@@ -1 +1 @@")
}

func TestBuildContentContextTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("x", contentCharLimit+500)
	out := BuildContentContext([]DiffFileContext{
		{Path: "big.go", Status: StatusModified, NewFile: &FileContents{Contents: long}},
	})

	assert.NotContains(t, out, long)
	assert.Contains(t, out, long[:contentCharLimit])
}

func TestBuildFileDataNeverNull(t *testing.T) {
	data := BuildFileData([]DiffFileContext{
		{Path: "added.go", Status: StatusAdded, NewFile: &FileContents{Contents: "body"}},
	})

	entry, ok := data["added.go"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "", entry["old"])
	assert.Equal(t, "body", entry["new"])
	assert.Equal(t, StatusAdded, entry["status"])
}
