package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

var isCodeBlock = false

// RenderAndPrintMarkdownWithContext renders markdown content line by line to
// the terminal with cancellation support. Diff-style lines inside code blocks
// are colored directly; everything else goes through syntax highlighting.
func RenderAndPrintMarkdownWithContext(ctx context.Context, content string, language string, theme string) error {
	lines := strings.Split(content, "\n")

	for _, line := range lines {
		select {
		case <-ctx.Done():
			fmt.Printf("\n\n🔄 Output interrupted...\n")
			return ctx.Err()
		default:
		}

		if strings.HasPrefix(line, "```") {
			isCodeBlock = !isCodeBlock
		}

		if strings.HasPrefix(line, "+") && isCodeBlock {
			fmt.Print("\x1b[92m" + line + "\x1b[0m\n")
		} else if strings.HasPrefix(line, "-") && isCodeBlock {
			fmt.Print("\x1b[91m" + line + "\x1b[0m\n")
		} else {
			var buf bytes.Buffer
			if err := quick.Highlight(&buf, line+"\n", language, "terminal256", theme); err != nil {
				return err
			}
			fmt.Print(buf.String())
		}
	}

	return nil
}

// RenderCodeBlock highlights one standalone code snippet for terminal output.
func RenderCodeBlock(code string, language string, theme string) string {
	var buf bytes.Buffer
	if err := quick.Highlight(&buf, code, language, "terminal256", theme); err != nil {
		return code
	}
	return buf.String()
}
