package diff_review

import (
	"regexp"
	"strconv"
	"strings"
)

// lineVisibility records which old/new line numbers of one file are literally
// rendered inside diff hunks.
type lineVisibility struct {
	oldLines map[int]bool
	newLines map[int]bool
}

// HunkIndex maps file paths to the line numbers visible in rendered hunks.
// It is the ground truth for citation validation: a line that is not in the
// index was never shown to the model.
type HunkIndex map[string]*lineVisibility

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// BuildHunkIndex parses the unified-diff patches of the given files and
// records every visible line per side. Files without a patch contribute
// nothing: their lines were never rendered.
func BuildHunkIndex(files []ChangedFile) HunkIndex {
	index := make(HunkIndex)

	for _, f := range files {
		if f.Patch == "" {
			continue
		}
		vis := index[f.Path]
		if vis == nil {
			vis = &lineVisibility{oldLines: make(map[int]bool), newLines: make(map[int]bool)}
			index[f.Path] = vis
		}

		oldLine, newLine := 0, 0
		inHunk := false
		for _, line := range strings.Split(f.Patch, "\n") {
			if m := hunkHeaderPattern.FindStringSubmatch(line); m != nil {
				oldLine, _ = strconv.Atoi(m[1])
				newLine, _ = strconv.Atoi(m[3])
				inHunk = true
				continue
			}
			if !inHunk {
				continue
			}
			marker := byte(' ')
			if line != "" {
				marker = line[0]
			}
			switch marker {
			case '+':
				vis.newLines[newLine] = true
				newLine++
			case '-':
				vis.oldLines[oldLine] = true
				oldLine++
			case ' ':
				// Some providers trim trailing whitespace, so a blank
				// context line arrives as "" rather than " ".
				vis.oldLines[oldLine] = true
				vis.newLines[newLine] = true
				oldLine++
				newLine++
			default:
				// "\ No newline at end of file" and similar markers
			}
		}
	}

	return index
}

// Visible reports whether a single line on the given side of path was
// rendered in a hunk. The unified side accepts either numbering.
func (idx HunkIndex) Visible(path, side string, line int) bool {
	vis, ok := idx[path]
	if !ok {
		return false
	}
	switch side {
	case SideAdditions:
		return vis.newLines[line]
	case SideDeletions:
		return vis.oldLines[line]
	default:
		return vis.newLines[line] || vis.oldLines[line]
	}
}

// GroundCitations keeps only citations whose path and every cited line are
// literally visible inside a rendered hunk on the cited side. Invalid
// citations are dropped, never repaired or inferred.
func GroundCitations(citations []Citation, index HunkIndex) []Citation {
	var grounded []Citation
	for _, c := range citations {
		if c.StartLine > c.EndLine || c.StartLine < 1 {
			continue
		}
		valid := true
		for line := c.StartLine; line <= c.EndLine; line++ {
			if !index.Visible(c.Path, c.Side, line) {
				valid = false
				break
			}
		}
		if valid {
			grounded = append(grounded, c)
		}
	}
	return grounded
}
