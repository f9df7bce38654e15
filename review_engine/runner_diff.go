package review_engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"crev/diff_review"
	"crev/trace_store"
	"crev/vcs_providers"
)

const prefetchWorkers = 8

const diffPromptTemplate = `You are answering a question about a code change under review. The execution environment exposes these variables:
- file_data: mapping of file path to {"old", "new", "status"} with full contents
- question: the current question
- conversation_history: prior questions and answers about this change

Change context:
%s
%s
Question: %s

Requested output fields: answer, citations. "citations" is a JSON list of {"path", "side", "startLine", "endLine"} objects pointing at diff lines that back your answer. Cite only lines that appear in the diff.`

// AskResult is the terminal payload of a diff question.
type AskResult struct {
	Answer    string                   `json:"answer"`
	Blocks    []diff_review.AnswerBlock `json:"blocks"`
	Citations []diff_review.Citation   `json:"citations"`
}

// DiffRunner answers questions about a loaded merge request. File contents
// are prefetched with a bounded worker pool, answers stream as events, and
// citations are validated against the rendered hunks before delivery.
type DiffRunner struct {
	engine   *Engine
	manager  *vcs_providers.Manager
	traceDir string

	mu       sync.Mutex
	history  map[string][]QA
	contexts map[string][]diff_review.DiffFileContext
}

func NewDiffRunner(engine *Engine, manager *vcs_providers.Manager, traceDir string) *DiffRunner {
	return &DiffRunner{
		engine:   engine,
		manager:  manager,
		traceDir: traceDir,
		history:  map[string][]QA{},
		contexts: map[string][]diff_review.DiffFileContext{},
	}
}

// AskStream answers a question about the review, emitting iteration, block,
// citations, and complete events on the returned channel. The channel closes
// when the run terminates; an error event is always the last event on
// failure.
func (r *DiffRunner) AskStream(ctx context.Context, reviewID string, question string, selections []diff_review.Selection) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)

		result, err := r.ask(ctx, reviewID, question, selections, events)
		if err != nil {
			emit(ctx, events, Event{Type: EventError, Data: err.Error()})
			return
		}

		for _, block := range result.Blocks {
			lang := block.Language
			if block.Type == "markdown" {
				lang = ""
			}
			emit(ctx, events, Event{Type: EventBlock, Data: BlockEvent{Lang: lang, Content: block.Content}})
		}
		emit(ctx, events, Event{Type: EventCitations, Data: result.Citations})
		emit(ctx, events, Event{Type: EventComplete, Data: result})
	}()
	return events
}

// Ask is the blocking variant of AskStream: it drains the event stream and
// returns the terminal result.
func (r *DiffRunner) Ask(ctx context.Context, reviewID string, question string, selections []diff_review.Selection) (*AskResult, error) {
	var result *AskResult
	var errMsg string
	for ev := range r.AskStream(ctx, reviewID, question, selections) {
		switch ev.Type {
		case EventComplete:
			if res, ok := ev.Data.(*AskResult); ok {
				result = res
			}
		case EventError:
			errMsg, _ = ev.Data.(string)
		}
	}
	if result == nil {
		if errMsg == "" {
			errMsg = "question cancelled before completion"
		}
		return nil, fmt.Errorf("%s", errMsg)
	}
	return result, nil
}

// ResetHistory drops the conversation for one review.
func (r *DiffRunner) ResetHistory(reviewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.history, reviewID)
}

func (r *DiffRunner) ask(ctx context.Context, reviewID string, question string, selections []diff_review.Selection, events chan<- Event) (*AskResult, error) {
	info, err := r.manager.GetMR(reviewID)
	if err != nil {
		return nil, err
	}

	contexts, err := r.fileContexts(ctx, reviewID, info)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	history := append([]QA(nil), r.history[reviewID]...)
	r.mu.Unlock()

	recorder := trace_store.NewRecorder(r.traceDir, question, info.Owner+"/"+info.Repo, reviewID)

	diffContext := diff_review.BuildContentContext(contexts)
	vars := map[string]any{
		"file_data":            diff_review.BuildFileData(contexts),
		"question":             question,
		"conversation_history": formatHistory(history),
	}
	prompt := fmt.Sprintf(diffPromptTemplate, diffContext, renderSelections(selections), question)

	runResult, runErr := r.engine.Run(ctx, prompt, vars, []string{"answer", "citations"}, events)
	for _, step := range runResult.Steps {
		recorder.Append(step)
	}
	if runErr != nil {
		recorder.Finish("", nil, runErr)
		recorder.SaveQuietly()
		return nil, runErr
	}

	answer := runResult.Outputs["answer"]
	citations := diff_review.GroundCitations(
		decodeCitations(runResult.Outputs["citations"]),
		diff_review.BuildHunkIndex(info.Files),
	)

	var sources []string
	for _, c := range citations {
		sources = append(sources, fmt.Sprintf("%s:%d-%d", c.Path, c.StartLine, c.EndLine))
	}
	recorder.Finish(answer, sources, nil)
	recorder.SaveQuietly()

	r.mu.Lock()
	r.history[reviewID] = append(r.history[reviewID], QA{Question: question, Answer: answer})
	r.mu.Unlock()

	return &AskResult{
		Answer:    answer,
		Blocks:    diff_review.ParseAnswerBlocks(answer),
		Citations: citations,
	}, nil
}

// fileContexts assembles per-file contexts for the review, fetching full
// contents for the files that render into the prompt and keeping patches for
// the rest. Results are cached per review.
func (r *DiffRunner) fileContexts(ctx context.Context, reviewID string, info *diff_review.PRInfo) ([]diff_review.DiffFileContext, error) {
	r.mu.Lock()
	if cached, ok := r.contexts[reviewID]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	contexts := make([]diff_review.DiffFileContext, len(info.Files))
	fetchCount := len(info.Files)
	if fetchCount > diff_review.MaxVisibleFiles {
		fetchCount = diff_review.MaxVisibleFiles
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < prefetchWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				f := info.Files[i]
				fc := diff_review.DiffFileContext{
					Path:      f.Path,
					Patch:     f.Patch,
					Additions: f.Additions,
					Deletions: f.Deletions,
					Status:    f.Status,
				}
				oldContents, newContents, err := r.manager.GetFileContents(ctx, reviewID, f.Path, f.Status)
				if err == nil {
					if oldContents != "" {
						fc.OldFile = &diff_review.FileContents{Name: f.Path, Contents: oldContents}
					}
					if newContents != "" {
						fc.NewFile = &diff_review.FileContents{Name: f.Path, Contents: newContents}
					}
				}
				contexts[i] = fc
			}
		}()
	}
	for i := 0; i < fetchCount; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, fmt.Errorf("file prefetch cancelled: %v", ctx.Err())
		}
	}
	close(jobs)
	wg.Wait()

	// Files past the render cap keep patch-only contexts.
	for i := fetchCount; i < len(info.Files); i++ {
		f := info.Files[i]
		contexts[i] = diff_review.DiffFileContext{
			Path:      f.Path,
			Patch:     f.Patch,
			Additions: f.Additions,
			Deletions: f.Deletions,
			Status:    f.Status,
		}
	}

	r.mu.Lock()
	r.contexts[reviewID] = contexts
	r.mu.Unlock()
	return contexts, nil
}

// decodeCitations parses the model's citations field, which may arrive as a
// JSON array, a JSON string, or a bare token list.
func decodeCitations(raw string) []diff_review.Citation {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return diff_review.ParseCitations(raw)
	}
	return diff_review.ParseCitations(decoded)
}

func renderSelections(selections []diff_review.Selection) string {
	if len(selections) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nThe user highlighted these regions:\n")
	for _, s := range selections {
		fmt.Fprintf(&sb, "- %s (%s) lines %d-%d [%s]\n", s.Path, s.Side, s.StartLine, s.EndLine, s.Mode)
	}
	return sb.String()
}
