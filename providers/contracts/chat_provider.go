package contracts

import (
	"context"

	"crev/providers/models"
)

// IChatAIProvider streams a chat completion for a prompt/user-input pair.
// The channel delivers content chunks, then a Done marker; any Err chunk
// terminates the stream.
type IChatAIProvider interface {
	ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse
}
