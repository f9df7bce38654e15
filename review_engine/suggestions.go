package review_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	contracts "crev/providers/contracts"
	"crev/vcs_providers"
)

const suggestionsSystemPrompt = `You suggest short review questions a developer could ask about a code change. Respond with a JSON array of 3 to 5 question strings, nothing else.`

// defaultSuggestions is served when the model cannot be reached or responds
// with something unusable.
var defaultSuggestions = []string{
	"Explain changes",
	"Identify bugs",
	"Suggest tests",
	"Performance check",
}

// SuggestionGenerator proposes starter questions for a loaded merge request.
type SuggestionGenerator struct {
	provider contracts.IChatAIProvider
	manager  *vcs_providers.Manager
}

func NewSuggestionGenerator(provider contracts.IChatAIProvider, manager *vcs_providers.Manager) *SuggestionGenerator {
	return &SuggestionGenerator{provider: provider, manager: manager}
}

// Suggest returns question suggestions for the review. Model failures fall
// back to the default list and never surface as errors.
func (g *SuggestionGenerator) Suggest(ctx context.Context, reviewID string) []string {
	info, err := g.manager.GetMR(reviewID)
	if err != nil {
		return defaultSuggestions
	}

	var fileList strings.Builder
	for i, f := range info.Files {
		if i >= 30 {
			fmt.Fprintf(&fileList, "... and %d more files\n", len(info.Files)-i)
			break
		}
		fmt.Fprintf(&fileList, "- %s (%s) +%d -%d\n", f.Path, f.Status, f.Additions, f.Deletions)
	}

	userInput := fmt.Sprintf("Title: %s\n\nDescription:\n%s\n\nChanged files:\n%s", info.Title, info.Body, fileList.String())

	var sb strings.Builder
	for resp := range g.provider.ChatCompletionRequest(ctx, userInput, suggestionsSystemPrompt) {
		if resp.Err != nil {
			log.Printf("Warning: suggestion model call failed: %v", resp.Err)
			return defaultSuggestions
		}
		if resp.Done {
			break
		}
		sb.WriteString(resp.Content)
	}

	suggestions := parseSuggestions(sb.String())
	if len(suggestions) == 0 {
		return defaultSuggestions
	}
	return suggestions
}

func parseSuggestions(raw string) []string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil
	}
	var arr []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &arr); err != nil {
		return nil
	}
	var out []string
	for _, s := range arr {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
