package diff_review

import (
	"strconv"
	"strings"
)

// ParseAnswerBlocks splits raw answer text into markdown and fenced code
// blocks. A trailing unterminated fence still closes its block at
// end-of-text; empty blocks are omitted.
func ParseAnswerBlocks(answer string) []AnswerBlock {
	var blocks []AnswerBlock
	var current []string
	inCode := false
	codeLang := ""

	appendBlock := func(blockType, language string) {
		content := strings.Join(current, "\n")
		if content != "" {
			blocks = append(blocks, AnswerBlock{Type: blockType, Content: content, Language: language})
		}
		current = nil
	}

	for _, line := range strings.Split(answer, "\n") {
		switch {
		case strings.HasPrefix(line, "```") && !inCode:
			appendBlock("markdown", "")
			inCode = true
			codeLang = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "```") && inCode:
			appendBlock("code", codeLang)
			inCode = false
			codeLang = ""
		default:
			current = append(current, line)
		}
	}

	if inCode {
		appendBlock("code", codeLang)
	} else {
		appendBlock("markdown", "")
	}

	return blocks
}

// RenderBlocks reconstructs answer text from parsed blocks, reinserting the
// fence markers around code blocks. For balanced-fence input with no empty
// blocks this inverts ParseAnswerBlocks.
func RenderBlocks(blocks []AnswerBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "code" {
			parts = append(parts, "```"+b.Language, b.Content, "```")
		} else {
			parts = append(parts, b.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// ParseCitations accepts either a list of structured records or a
// comma-separated string of "path:line" / "path:start-end" tokens. Malformed
// tokens are dropped individually; one bad token never fails the parse.
func ParseCitations(raw any) []Citation {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case string:
		for _, token := range strings.Split(v, ",") {
			if token = strings.TrimSpace(token); token != "" {
				items = append(items, token)
			}
		}
	default:
		return nil
	}

	var citations []Citation
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			citations = append(citations, Citation{
				Path:      stringField(v, "path"),
				Side:      sideOrDefault(stringField(v, "side")),
				StartLine: intField(v, "startLine", 1),
				EndLine:   intField(v, "endLine", 1),
				Label:     stringField(v, "label"),
				Reason:    stringField(v, "reason"),
			})
		case string:
			if c, ok := parseCitationToken(v); ok {
				citations = append(citations, c)
			}
		}
	}
	return citations
}

// parseCitationToken parses "path:line" or "path:start-end". The path may
// itself contain colons; the line part is everything after the last one.
func parseCitationToken(token string) (Citation, bool) {
	idx := strings.LastIndex(token, ":")
	if idx < 0 {
		return Citation{}, false
	}
	path, linePart := token[:idx], token[idx+1:]

	var start, end int
	if dash := strings.Index(linePart, "-"); dash >= 0 {
		var err error
		if start, err = strconv.Atoi(linePart[:dash]); err != nil {
			return Citation{}, false
		}
		if end, err = strconv.Atoi(linePart[dash+1:]); err != nil {
			return Citation{}, false
		}
	} else {
		n, err := strconv.Atoi(linePart)
		if err != nil {
			return Citation{}, false
		}
		start, end = n, n
	}
	if start < 1 || start > end {
		return Citation{}, false
	}

	return Citation{Path: path, Side: SideUnified, StartLine: start, EndLine: end}, true
}

func sideOrDefault(side string) string {
	switch side {
	case SideAdditions, SideDeletions, SideUnified:
		return side
	default:
		return SideUnified
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intField(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
