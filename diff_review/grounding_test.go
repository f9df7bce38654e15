package diff_review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePatch = `@@ -10,3 +10,4 @@ func example() {
 context line
-removed line
+added line one
+added line two
 trailing context`

func sampleFiles() []ChangedFile {
	return []ChangedFile{{Path: "main.go", Status: StatusModified, Patch: samplePatch}}
}

func TestBuildHunkIndexLineNumbers(t *testing.T) {
	index := BuildHunkIndex(sampleFiles())

	// Old side: context 10, removed 11, trailing context 12.
	assert.True(t, index.Visible("main.go", SideDeletions, 10))
	assert.True(t, index.Visible("main.go", SideDeletions, 11))
	assert.True(t, index.Visible("main.go", SideDeletions, 12))
	assert.False(t, index.Visible("main.go", SideDeletions, 13))

	// New side: context 10, added 11 and 12, trailing context 13.
	assert.True(t, index.Visible("main.go", SideAdditions, 11))
	assert.True(t, index.Visible("main.go", SideAdditions, 12))
	assert.True(t, index.Visible("main.go", SideAdditions, 13))
	assert.False(t, index.Visible("main.go", SideAdditions, 14))

	// Unified accepts either numbering.
	assert.True(t, index.Visible("main.go", SideUnified, 13))
	assert.False(t, index.Visible("main.go", SideUnified, 99))
}

func TestBuildHunkIndexBlankContextLines(t *testing.T) {
	// Providers that trim trailing whitespace send blank context lines as
	// "" instead of " "; they still occupy a line number on both sides.
	patch := "@@ -10,3 +10,3 @@\n first\n\n third"
	index := BuildHunkIndex([]ChangedFile{{Path: "main.go", Status: StatusModified, Patch: patch}})

	assert.True(t, index.Visible("main.go", SideAdditions, 11))
	assert.True(t, index.Visible("main.go", SideAdditions, 12))
	assert.True(t, index.Visible("main.go", SideDeletions, 12))
	assert.False(t, index.Visible("main.go", SideAdditions, 13))
}

func TestBuildHunkIndexSkipsFilesWithoutPatch(t *testing.T) {
	index := BuildHunkIndex([]ChangedFile{{Path: "binary.dat", Status: StatusModified}})
	assert.False(t, index.Visible("binary.dat", SideUnified, 1))
}

func TestGroundCitationsDropsInvalid(t *testing.T) {
	index := BuildHunkIndex(sampleFiles())

	grounded := GroundCitations([]Citation{
		{Path: "main.go", Side: SideAdditions, StartLine: 11, EndLine: 12},
		{Path: "main.go", Side: SideAdditions, StartLine: 11, EndLine: 50},  // range leaves the hunk
		{Path: "other.go", Side: SideAdditions, StartLine: 11, EndLine: 11}, // unknown file
		{Path: "main.go", Side: SideAdditions, StartLine: 12, EndLine: 11},  // inverted range
		{Path: "main.go", Side: SideAdditions, StartLine: 0, EndLine: 1},    // below 1
	}, index)

	require.Len(t, grounded, 1)
	assert.Equal(t, 11, grounded[0].StartLine)
	assert.Equal(t, 12, grounded[0].EndLine)
}

func TestGroundCitationsKeepsDeletionSide(t *testing.T) {
	index := BuildHunkIndex(sampleFiles())

	grounded := GroundCitations([]Citation{
		{Path: "main.go", Side: SideDeletions, StartLine: 11, EndLine: 11},
		{Path: "main.go", Side: SideDeletions, StartLine: 13, EndLine: 13},
	}, index)

	require.Len(t, grounded, 1)
	assert.Equal(t, SideDeletions, grounded[0].Side)
	assert.Equal(t, 11, grounded[0].StartLine)
}
