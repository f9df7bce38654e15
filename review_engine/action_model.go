package review_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contracts "crev/providers/contracts"
)

const actionSystemPrompt = `You are a code analysis assistant that answers questions by writing and running small code snippets against prepared variables.

Respond in exactly this format:

Reasoning: <one short paragraph on what to inspect next>
Code:
` + "```" + `
<code for the execution environment>
` + "```" + `

When you have enough evidence to answer, respond with the marker ` + FinalMarker + ` followed by a single JSON object holding the requested output fields instead of a code block.`

// ChatActionModel adapts a streaming chat provider to the engine's action
// interface. Streams are drained fully before parsing.
type ChatActionModel struct {
	provider contracts.IChatAIProvider
}

func NewChatActionModel(provider contracts.IChatAIProvider) IActionModel {
	return &ChatActionModel{provider: provider}
}

func (m *ChatActionModel) GenerateAction(ctx context.Context, prompt string, history string) (Action, error) {
	userInput := prompt
	if history != "" {
		userInput = prompt + "\n\nPrevious iterations:\n" + history
	}

	raw, err := m.collect(ctx, userInput, actionSystemPrompt)
	if err != nil {
		return Action{}, err
	}
	reasoning, code := parseActionSections(raw)
	return Action{Reasoning: reasoning, Code: code, Raw: raw}, nil
}

func (m *ChatActionModel) ExtractFinal(ctx context.Context, prompt string, history string, outputFields []string) (map[string]string, error) {
	extractPrompt := fmt.Sprintf(
		"Based on the investigation below, produce your best final answer now.\n\nTask:\n%s\n\nInvestigation so far:\n%s\n\nRespond with a single JSON object with exactly these keys: %s",
		prompt, history, strings.Join(outputFields, ", "))

	raw, err := m.collect(ctx, extractPrompt, "You summarize a code investigation into a final JSON answer. Respond with a single JSON object and nothing else.")
	if err != nil {
		return nil, err
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		// Some models answer in prose when pressed; keep what we got
		// under the first output field rather than losing it.
		outputs := map[string]string{}
		for i, field := range outputFields {
			if i == 0 {
				outputs[field] = strings.TrimSpace(raw)
			} else {
				outputs[field] = ""
			}
		}
		return outputs, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse extracted answer: %v", err)
	}
	outputs := map[string]string{}
	for _, field := range outputFields {
		switch v := decoded[field].(type) {
		case nil:
			outputs[field] = ""
		case string:
			outputs[field] = v
		default:
			b, _ := json.Marshal(v)
			outputs[field] = string(b)
		}
	}
	return outputs, nil
}

func (m *ChatActionModel) collect(ctx context.Context, userInput string, systemPrompt string) (string, error) {
	var sb strings.Builder
	for resp := range m.provider.ChatCompletionRequest(ctx, userInput, systemPrompt) {
		if resp.Err != nil {
			return "", resp.Err
		}
		if resp.Done {
			break
		}
		sb.WriteString(resp.Content)
	}
	return sb.String(), nil
}

// parseActionSections splits a response into its Reasoning and Code parts and
// strips any code fence around the snippet.
func parseActionSections(raw string) (reasoning string, code string) {
	codeIdx := -1
	for _, marker := range []string{"\nCode:", "Code:"} {
		if i := strings.Index(raw, marker); i >= 0 {
			codeIdx = i
			code = raw[i+len(marker):]
			break
		}
	}
	head := raw
	if codeIdx >= 0 {
		head = raw[:codeIdx]
	}

	reasoning = strings.TrimSpace(head)
	reasoning = strings.TrimPrefix(reasoning, "Reasoning:")
	reasoning = strings.TrimSpace(reasoning)

	code = stripFence(strings.TrimSpace(code))
	return reasoning, code
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]
	if nl := strings.Index(s, "\n"); nl >= 0 {
		// Drop the optional language tag line.
		firstLine := strings.TrimSpace(s[:nl])
		if !strings.Contains(firstLine, " ") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimRight(s, "\n")
}
