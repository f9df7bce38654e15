package review_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crev/code_snapshot"
	"crev/code_snapshot/models"
	"crev/trace_store"
)

const codebasePromptTemplate = `You are answering a question about a codebase. The execution environment exposes these variables:
- codebase: mapping of relative file path to file content
- conversation_history: prior questions and answers in this session
- question: the current question

Question: %s

Requested output fields: answer, sources. "sources" is a list of the file paths your answer relies on.`

// QA is one resolved question/answer pair kept for conversational context.
type QA struct {
	Question string
	Answer   string
}

// CodebaseRunner answers questions about a repository snapshot, keeping a
// per-session conversation history and recording a trace per question.
type CodebaseRunner struct {
	engine   *Engine
	builder  *code_snapshot.Builder
	traceDir string

	repoPath string
	snapshot *models.Snapshot
	history  []QA
}

func NewCodebaseRunner(engine *Engine, builder *code_snapshot.Builder, repoPath string, traceDir string) *CodebaseRunner {
	return &CodebaseRunner{
		engine:   engine,
		builder:  builder,
		traceDir: traceDir,
		repoPath: repoPath,
	}
}

// Snapshot builds the repository snapshot on first use and reuses it for the
// rest of the session.
func (r *CodebaseRunner) Snapshot() (*models.Snapshot, error) {
	if r.snapshot != nil {
		return r.snapshot, nil
	}
	snap, err := r.builder.Build(r.repoPath)
	if err != nil {
		return nil, err
	}
	r.snapshot = snap
	return snap, nil
}

// ResetHistory drops the conversational context but keeps the snapshot.
func (r *CodebaseRunner) ResetHistory() {
	r.history = nil
}

// History returns the session's answered questions in order.
func (r *CodebaseRunner) History() []QA {
	return r.history
}

// Ask answers one question, appends it to the session history, and persists
// the run trace. The trace is saved even when the run fails.
func (r *CodebaseRunner) Ask(ctx context.Context, question string, events chan<- Event) (answer string, sources []string, err error) {
	snap, err := r.Snapshot()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build snapshot: %v", err)
	}

	recorder := trace_store.NewRecorder(r.traceDir, question, r.repoPath, "")

	vars := map[string]any{
		"codebase":             snap.ToPromptMap(),
		"conversation_history": formatHistory(r.history),
		"question":             question,
	}
	prompt := fmt.Sprintf(codebasePromptTemplate, question)

	result, runErr := r.engine.Run(ctx, prompt, vars, []string{"answer", "sources"}, events)
	for _, step := range result.Steps {
		recorder.Append(step)
	}
	if runErr != nil {
		recorder.Finish("", nil, runErr)
		recorder.SaveQuietly()
		return "", nil, runErr
	}

	answer = result.Outputs["answer"]
	sources = parseSources(result.Outputs["sources"])

	recorder.Finish(answer, sources, nil)
	recorder.SaveQuietly()

	r.history = append(r.history, QA{Question: question, Answer: answer})
	return answer, sources, nil
}

// formatHistory renders prior turns as numbered Q/A pairs.
func formatHistory(history []QA) string {
	if len(history) == 0 {
		return "(no prior questions)"
	}
	var sb strings.Builder
	for i, qa := range history {
		fmt.Fprintf(&sb, "Q%d: %s\nA%d: %s\n", i+1, qa.Question, i+1, qa.Answer)
	}
	return sb.String()
}

// parseSources accepts either a JSON array of paths or a comma/newline
// separated list.
func parseSources(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil {
		out := arr[:0]
		for _, s := range arr {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	var sources []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' }) {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"`))
		if part != "" {
			sources = append(sources, part)
		}
	}
	return sources
}
