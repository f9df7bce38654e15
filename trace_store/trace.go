package trace_store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// IterationRecord is one round of the reasoning/execution loop. Immutable
// once appended to a trace.
type IterationRecord struct {
	Step      int               `json:"step"`
	Reasoning string            `json:"reasoning"`
	Code      string            `json:"code"`
	Output    string            `json:"stdout"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// Trace is the complete record of one loop run.
type Trace struct {
	Question   string            `json:"question"`
	RepoPath   string            `json:"repo_path,omitempty"`
	SessionRef string            `json:"session_ref,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
	Steps      []IterationRecord `json:"steps"`
	Answer     string            `json:"answer"`
	Sources    []string          `json:"sources"`
	Error      string            `json:"error,omitempty"`
}

// Recorder appends iteration records to a trace and persists it exactly once
// after the loop terminates, on success or failure.
type Recorder struct {
	mu       sync.Mutex
	trace    *Trace
	dir      string
	savePath string
}

// NewRecorder starts a trace for one run. dir is the traces directory; an
// empty dir disables persistence.
func NewRecorder(dir, question, repoPath, sessionRef string) *Recorder {
	return &Recorder{
		trace: &Trace{
			Question:   question,
			RepoPath:   repoPath,
			SessionRef: sessionRef,
			StartedAt:  time.Now(),
			Sources:    []string{},
		},
		dir: dir,
	}
}

// Append adds one iteration record, assigning the next step index when the
// record carries none.
func (r *Recorder) Append(rec IterationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Step == 0 {
		rec.Step = len(r.trace.Steps) + 1
	}
	r.trace.Steps = append(r.trace.Steps, rec)
}

// Finish stamps the end of the run with its result or error.
func (r *Recorder) Finish(answer string, sources []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.trace.EndedAt = &now
	r.trace.Answer = answer
	if sources != nil {
		r.trace.Sources = sources
	}
	if err != nil {
		r.trace.Error = err.Error()
	}
}

// Trace returns the current trace state.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.trace
	return &copied
}

// Save persists the trace as one JSON document, at most once. Repeat calls
// return the original path. A save failure is reported to the caller but
// must never mask the primary result - callers log it and move on.
func (r *Recorder) Save() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.savePath != "" {
		return r.savePath, nil
	}
	if r.dir == "" {
		return "", nil
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create traces directory: %w", err)
	}

	filename := r.trace.StartedAt.Format("20060102_150405") + ".json"
	path := filepath.Join(r.dir, filename)

	data, err := json.MarshalIndent(r.trace, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write trace: %w", err)
	}

	r.savePath = path
	return path, nil
}

// SaveQuietly saves and only logs on failure, for callers on the happy or
// error path that must surface their own result.
func (r *Recorder) SaveQuietly() {
	if _, err := r.Save(); err != nil {
		log.Printf("Warning: failed to save trace: %v", err)
	}
}
