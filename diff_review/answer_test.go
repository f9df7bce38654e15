package diff_review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswerBlocksMixed(t *testing.T) {
	answer := "Intro text\n```go\nfunc main() {}\n```\nOutro"

	blocks := ParseAnswerBlocks(answer)

	require.Len(t, blocks, 3)
	assert.Equal(t, AnswerBlock{Type: "markdown", Content: "Intro text"}, blocks[0])
	assert.Equal(t, AnswerBlock{Type: "code", Content: "func main() {}", Language: "go"}, blocks[1])
	assert.Equal(t, AnswerBlock{Type: "markdown", Content: "Outro"}, blocks[2])
}

func TestParseAnswerBlocksUnterminatedFence(t *testing.T) {
	blocks := ParseAnswerBlocks("text\n```python\nprint(1)")

	require.Len(t, blocks, 2)
	assert.Equal(t, "code", blocks[1].Type)
	assert.Equal(t, "python", blocks[1].Language)
	assert.Equal(t, "print(1)", blocks[1].Content)
}

func TestParseAnswerBlocksOmitsEmpty(t *testing.T) {
	blocks := ParseAnswerBlocks("```\n```")
	assert.Empty(t, blocks)
}

func TestRenderBlocksRoundTrip(t *testing.T) {
	answer := "Before\n```go\nx := 1\n```\nAfter"
	assert.Equal(t, answer, RenderBlocks(ParseAnswerBlocks(answer)))
}

func TestParseCitationsTokens(t *testing.T) {
	citations := ParseCitations("main.go:12, pkg/util.go:3-7")

	require.Len(t, citations, 2)
	assert.Equal(t, Citation{Path: "main.go", Side: SideUnified, StartLine: 12, EndLine: 12}, citations[0])
	assert.Equal(t, Citation{Path: "pkg/util.go", Side: SideUnified, StartLine: 3, EndLine: 7}, citations[1])
}

func TestParseCitationsPathWithColon(t *testing.T) {
	citations := ParseCitations("C:/repo/main.go:5")

	require.Len(t, citations, 1)
	assert.Equal(t, "C:/repo/main.go", citations[0].Path)
	assert.Equal(t, 5, citations[0].StartLine)
}

func TestParseCitationsMalformedDroppedIndividually(t *testing.T) {
	citations := ParseCitations([]any{"good.go:1", "no-line-part", "bad.go:x-y", "inverted.go:20-10", "zero.go:0", "also.go:2-4"})

	require.Len(t, citations, 2)
	assert.Equal(t, "good.go", citations[0].Path)
	assert.Equal(t, "also.go", citations[1].Path)
}

func TestParseCitationsStructured(t *testing.T) {
	citations := ParseCitations([]any{
		map[string]any{"path": "a.go", "side": "additions", "startLine": float64(3), "endLine": float64(5)},
		map[string]any{"path": "b.go", "side": "bogus"},
	})

	require.Len(t, citations, 2)
	assert.Equal(t, Citation{Path: "a.go", Side: SideAdditions, StartLine: 3, EndLine: 5}, citations[0])
	// Unknown sides fall back to unified.
	assert.Equal(t, SideUnified, citations[1].Side)
}

func TestParseCitationsNil(t *testing.T) {
	assert.Nil(t, ParseCitations(nil))
	assert.Nil(t, ParseCitations(42))
}
