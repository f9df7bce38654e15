package review_engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	actions        []Action
	generateErr    error
	extractOutputs map[string]string
	extractErr     error

	generateCalls int
	extractCalls  int
	histories     []string
}

func (m *fakeModel) GenerateAction(ctx context.Context, prompt string, history string) (Action, error) {
	m.histories = append(m.histories, history)
	if m.generateErr != nil {
		return Action{}, m.generateErr
	}
	idx := m.generateCalls
	m.generateCalls++
	if idx >= len(m.actions) {
		idx = len(m.actions) - 1
	}
	return m.actions[idx], nil
}

func (m *fakeModel) ExtractFinal(ctx context.Context, prompt string, history string, outputFields []string) (map[string]string, error) {
	m.extractCalls++
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return m.extractOutputs, nil
}

type fakeSandbox struct {
	outputs []string
	errs    []error
	calls   int
	codes   []string
	vars    []map[string]any
}

func (s *fakeSandbox) Execute(ctx context.Context, code string, vars map[string]any) (string, error) {
	idx := s.calls
	s.calls++
	s.codes = append(s.codes, code)
	s.vars = append(s.vars, vars)
	var out string
	var err error
	if idx < len(s.outputs) {
		out = s.outputs[idx]
	}
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	return out, err
}

func action(reasoning, code string) Action {
	return Action{Reasoning: reasoning, Code: code, Raw: fmt.Sprintf("Reasoning: %s\nCode:\n%s", reasoning, code)}
}

func finalAction(jsonObj string) Action {
	raw := FinalMarker + " " + jsonObj
	return Action{Reasoning: "done", Raw: raw}
}

func TestRunStopsOnFinalMarker(t *testing.T) {
	model := &fakeModel{actions: []Action{
		action("look at files", "print(1)"),
		finalAction(`{"answer": "it works", "sources": ["main.go"]}`),
	}}
	sb := &fakeSandbox{outputs: []string{"1"}}
	engine := NewEngine(model, sb, 0, 0)

	result, err := engine.Run(context.Background(), "question", nil, []string{"answer", "sources"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "it works", result.Outputs["answer"])
	assert.Equal(t, `["main.go"]`, result.Outputs["sources"])
	assert.False(t, result.Exhausted)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 2, result.LLMCalls)
	assert.Equal(t, 1, sb.calls)
	assert.Equal(t, 0, model.extractCalls)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "1", result.Steps[0].Output)
}

func TestRunSandboxErrorBecomesObservation(t *testing.T) {
	model := &fakeModel{actions: []Action{
		action("try something", "boom()"),
		finalAction(`{"answer": "recovered"}`),
	}}
	sb := &fakeSandbox{outputs: []string{"traceback"}, errs: []error{errors.New("exit status 1")}}
	engine := NewEngine(model, sb, 0, 0)

	result, err := engine.Run(context.Background(), "q", nil, []string{"answer"}, nil)
	require.NoError(t, err)

	// The failure is fed back, not fatal.
	assert.Contains(t, result.Steps[0].Output, "[Error] exit status 1")
	assert.Contains(t, result.Steps[0].Output, "traceback")
	assert.Contains(t, model.histories[1], "[Error]")
	assert.Equal(t, "recovered", result.Outputs["answer"])
}

func TestRunExhaustsIterationsThenExtracts(t *testing.T) {
	model := &fakeModel{
		actions:        []Action{action("keep digging", "print(1)")},
		extractOutputs: map[string]string{"answer": "best effort"},
	}
	sb := &fakeSandbox{}
	engine := NewEngine(model, sb, 3, 0)

	result, err := engine.Run(context.Background(), "q", nil, []string{"answer"}, nil)
	require.NoError(t, err)

	assert.True(t, result.Exhausted)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 1, model.extractCalls)
	assert.Equal(t, "best effort", result.Outputs["answer"])
	assert.Equal(t, 4, result.LLMCalls)
}

func TestRunRespectsCallBudget(t *testing.T) {
	model := &fakeModel{
		actions:        []Action{action("loop", "print(1)")},
		extractOutputs: map[string]string{"answer": "x"},
	}
	engine := NewEngine(model, &fakeSandbox{}, 20, 5)

	result, err := engine.Run(context.Background(), "q", nil, []string{"answer"}, nil)
	require.NoError(t, err)

	// Total model calls never exceed the budget; one call is reserved for
	// extraction.
	assert.Equal(t, 4, model.generateCalls)
	assert.Equal(t, 1, model.extractCalls)
	assert.Equal(t, 5, result.LLMCalls)
}

func TestRunModelErrorIsFatal(t *testing.T) {
	model := &fakeModel{generateErr: errors.New("connection refused")}
	engine := NewEngine(model, &fakeSandbox{}, 0, 0)

	_, err := engine.Run(context.Background(), "q", nil, []string{"answer"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunEmitsIterationEvents(t *testing.T) {
	model := &fakeModel{actions: []Action{
		action("first", "print(1)"),
		finalAction(`{"answer": "done"}`),
	}}
	engine := NewEngine(model, &fakeSandbox{outputs: []string{"out"}}, 0, 0)

	events := make(chan Event, 8)
	_, err := engine.Run(context.Background(), "q", nil, []string{"answer"}, events)
	require.NoError(t, err)
	close(events)

	var iterations []IterationEvent
	for ev := range events {
		require.Equal(t, EventIteration, ev.Type)
		iterations = append(iterations, ev.Data.(IterationEvent))
	}
	// One event per round, the terminal round included, matching the
	// persisted steps.
	require.Len(t, iterations, 2)
	assert.Equal(t, 1, iterations[0].Iteration)
	assert.Equal(t, 20, iterations[0].MaxIterations)
	assert.Equal(t, "first", iterations[0].Reasoning)
	assert.Equal(t, "out", iterations[0].Output)
	assert.Equal(t, 2, iterations[1].Iteration)
	assert.Equal(t, "", iterations[1].Output)
}

func TestParseFinal(t *testing.T) {
	outputs, ok := parseFinal(`some prose `+FinalMarker+` {"answer": "yes", "count": 3}`, []string{"answer", "count", "missing"})
	require.True(t, ok)
	assert.Equal(t, "yes", outputs["answer"])
	assert.Equal(t, "3", outputs["count"])
	assert.Equal(t, "", outputs["missing"])

	_, ok = parseFinal("no marker here", []string{"answer"})
	assert.False(t, ok)

	_, ok = parseFinal(FinalMarker+" not json", []string{"answer"})
	assert.False(t, ok)
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := extractJSONObject(`prefix {"a": {"b": "}"}, "c": 1} suffix`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}, "c": 1}`, obj)

	_, ok = extractJSONObject("no braces")
	assert.False(t, ok)

	_, ok = extractJSONObject(`{"unterminated": `)
	assert.False(t, ok)
}
