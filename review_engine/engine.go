package review_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crev/sandbox/contracts"
	"crev/trace_store"
)

// FinalMarker is the token a model emits to signal that the JSON object
// following it carries the final output fields.
const FinalMarker = "__FINAL__"

type loopState int

const (
	stateInit loopState = iota
	stateIterating
	stateDone
	stateExhausted
	stateTerminated
)

// Action is one model turn: free-form reasoning plus a code snippet to run.
// Raw keeps the unparsed response so the final marker can be detected even
// when the model skips the section structure.
type Action struct {
	Reasoning string
	Code      string
	Raw       string
}

// IActionModel produces actions and, as a fallback, extracts final outputs
// from the accumulated history.
type IActionModel interface {
	GenerateAction(ctx context.Context, prompt string, history string) (Action, error)
	ExtractFinal(ctx context.Context, prompt string, history string, outputFields []string) (map[string]string, error)
}

// Result is the terminal outcome of a Run.
type Result struct {
	Outputs    map[string]string
	Steps      []trace_store.IterationRecord
	Iterations int
	LLMCalls   int
	Exhausted  bool
}

// Engine drives the iterative reasoning/execution loop: ask the model for an
// action, run its code in the sandbox, feed the observation back, and stop on
// a final marker or when the iteration or call budget runs out.
type Engine struct {
	Model         IActionModel
	Sandbox       contracts.IExecutionSandbox
	MaxIterations int
	MaxLLMCalls   int
	OutputLimit   int
}

// NewEngine wires an engine with the standard budgets applied where the
// caller passes zero.
func NewEngine(model IActionModel, sb contracts.IExecutionSandbox, maxIterations int, maxLLMCalls int) *Engine {
	if maxIterations <= 0 {
		maxIterations = 20
	}
	if maxLLMCalls <= 0 {
		maxLLMCalls = 25
	}
	return &Engine{
		Model:         model,
		Sandbox:       sb,
		MaxIterations: maxIterations,
		MaxLLMCalls:   maxLLMCalls,
		OutputLimit:   5000,
	}
}

// Run executes the loop for one question. vars are exposed to every sandbox
// execution; outputFields name the keys the final JSON object must carry.
// Iteration events are sent to events when it is non-nil; sends never block
// past ctx cancellation.
func (e *Engine) Run(ctx context.Context, prompt string, vars map[string]any, outputFields []string, events chan<- Event) (*Result, error) {
	result := &Result{Outputs: map[string]string{}}
	state := stateIterating

	var history strings.Builder

	iter := 0
	// One call is held back so the extraction fallback can always run
	// without exceeding the call budget.
	for state == stateIterating && iter < e.MaxIterations && result.LLMCalls < e.MaxLLMCalls-1 {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled: %v", err)
		}

		action, err := e.Model.GenerateAction(ctx, prompt, history.String())
		if err != nil {
			return result, fmt.Errorf("model call failed on iteration %d: %v", iter+1, err)
		}
		result.LLMCalls++
		iter++
		result.Iterations = iter

		if outputs, ok := parseFinal(action.Raw, outputFields); ok {
			result.Outputs = outputs
			result.Steps = append(result.Steps, trace_store.IterationRecord{
				Reasoning: action.Reasoning,
				Code:      action.Code,
				Output:    "",
			})
			// The terminal round is streamed too, so events mirror the
			// persisted steps.
			emit(ctx, events, Event{Type: EventIteration, Data: IterationEvent{
				Iteration:     iter,
				MaxIterations: e.MaxIterations,
				Reasoning:     action.Reasoning,
				Code:          action.Code,
				Output:        "",
			}})
			state = stateDone
			break
		}

		output := ""
		if strings.TrimSpace(action.Code) != "" {
			out, execErr := e.Sandbox.Execute(ctx, action.Code, vars)
			output = out
			if execErr != nil {
				if ctx.Err() != nil {
					return result, fmt.Errorf("run cancelled: %v", ctx.Err())
				}
				// Execution failures are observations, not terminal
				// errors; the model gets to react to them.
				output = strings.TrimSpace("[Error] " + execErr.Error() + "\n" + out)
			}
		}
		if e.OutputLimit > 0 && len(output) > e.OutputLimit {
			output = output[:e.OutputLimit] + "\n... (output truncated)"
		}

		result.Steps = append(result.Steps, trace_store.IterationRecord{
			Reasoning: action.Reasoning,
			Code:      action.Code,
			Output:    output,
		})

		fmt.Fprintf(&history, "Iteration %d:\nReasoning: %s\nCode:\n%s\nOutput:\n%s\n\n",
			iter, action.Reasoning, action.Code, output)

		emit(ctx, events, Event{Type: EventIteration, Data: IterationEvent{
			Iteration:     iter,
			MaxIterations: e.MaxIterations,
			Reasoning:     action.Reasoning,
			Code:          action.Code,
			Output:        output,
		}})
	}

	if state == stateIterating {
		state = stateExhausted
		result.Exhausted = true
		outputs, err := e.Model.ExtractFinal(ctx, prompt, history.String(), outputFields)
		if err != nil {
			return result, fmt.Errorf("final extraction failed: %v", err)
		}
		result.LLMCalls++
		result.Outputs = outputs
	}

	return result, nil
}

// parseFinal looks for the final marker and decodes the JSON object that
// follows it. Fields absent from the object come back empty; non-string
// values are re-encoded as JSON text.
func parseFinal(raw string, outputFields []string) (map[string]string, bool) {
	idx := strings.Index(raw, FinalMarker)
	if idx < 0 {
		return nil, false
	}
	rest := raw[idx+len(FinalMarker):]
	obj, ok := extractJSONObject(rest)
	if !ok {
		return nil, false
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return nil, false
	}

	outputs := map[string]string{}
	for _, field := range outputFields {
		v, present := decoded[field]
		if !present {
			outputs[field] = ""
			continue
		}
		switch s := v.(type) {
		case string:
			outputs[field] = s
		default:
			b, err := json.Marshal(v)
			if err != nil {
				outputs[field] = fmt.Sprintf("%v", v)
			} else {
				outputs[field] = string(b)
			}
		}
	}
	return outputs, true
}

// extractJSONObject returns the first balanced top-level JSON object in s,
// respecting string literals and escapes.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// emit sends an event without blocking past context cancellation.
func emit(ctx context.Context, events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
