package domain

import "context"

// RetrievedChunk is a chunk returned by similarity search.
// Distance is squared L2; smaller means closer.
type RetrievedChunk struct {
	Position int
	Text     string
	Distance float32
}

// RetrievedContext is the ordered result of one retrieval, closest first.
type RetrievedContext []RetrievedChunk

// Texts returns the chunk texts in retrieval order.
func (c RetrievedContext) Texts() []string {
	out := make([]string, len(c))
	for i, rc := range c {
		out[i] = rc.Text
	}
	return out
}

// Role tags a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is one call to a language model.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completer produces one text completion for an ordered list of messages.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Chunker splits extracted document text into retrieval passages.
type Chunker interface {
	Chunk(text string) []string
}
