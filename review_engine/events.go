package review_engine

// EventType discriminates the streamed progress events emitted while a
// question is being answered.
type EventType string

const (
	EventIteration EventType = "iteration"
	EventBlock     EventType = "block"
	EventCitations EventType = "citations"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Event is a single streamed progress update.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// IterationEvent reports one completed reasoning/execution round.
type IterationEvent struct {
	Iteration     int    `json:"iteration"`
	MaxIterations int    `json:"maxIterations"`
	Reasoning     string `json:"reasoning"`
	Code          string `json:"code"`
	Output        string `json:"output"`
}

// BlockEvent carries one answer block as it is produced.
type BlockEvent struct {
	Lang    string `json:"lang"`
	Content string `json:"content"`
}
