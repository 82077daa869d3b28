// Package tokens counts model tokens for prompt and chunk sizing.
package tokens

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with the BPE encoding of a model.
type Tiktoken struct {
	encoding string
	mu       sync.Mutex
	tke      *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for modelOrEncoding, falling back to
// cl100k_base when the name is unknown. Loading may download the BPE ranks
// on first use.
func NewTiktoken(modelOrEncoding string) (*Tiktoken, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}
	if tke, err := tiktoken.GetEncoding(modelOrEncoding); err == nil {
		return &Tiktoken{encoding: modelOrEncoding, tke: tke}, nil
	}
	if tke, err := tiktoken.EncodingForModel(modelOrEncoding); err == nil {
		return &Tiktoken{encoding: modelOrEncoding, tke: tke}, nil
	}
	tke, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", defaultEncoding, err)
	}
	return &Tiktoken{encoding: defaultEncoding, tke: tke}, nil
}

// Encoding returns the model or encoding name the counter was built for.
func (t *Tiktoken) Encoding() string { return t.encoding }

func (t *Tiktoken) Count(text string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tke.Encode(text, nil, nil))
}

// Estimate approximates four characters per token. It is used when no
// encoding can be loaded.
type Estimate struct{}

func (Estimate) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// New returns a tiktoken counter, or Estimate when the encoding is unavailable.
func New(modelOrEncoding string) (Counter, error) {
	t, err := NewTiktoken(modelOrEncoding)
	if err != nil {
		return Estimate{}, err
	}
	return t, nil
}
