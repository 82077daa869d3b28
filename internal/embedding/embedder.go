package embedding

import (
	"context"
	"fmt"

	"docqa/internal/logger"
)

// DefaultBatchSize is the number of texts per embedding group.
const DefaultBatchSize = 20

// Embedder converts free text into a fixed-dimension vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by embedders whose service accepts many
// inputs in one call. The returned vectors follow the input order.
type BatchEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Error reports a failed embedding call. Index is the position of the first
// text of the failing call within the whole batch.
type Error struct {
	Index int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding text %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Batch embeds texts in groups of batchSize, preserving input order. Any
// failure aborts the whole batch.
func Batch(ctx context.Context, e Embedder, texts []string, batchSize int, log logger.Logger) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.Discard()
	}
	batcher, native := e.(BatchEmbedder)
	groups := (len(texts) + batchSize - 1) / batchSize
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		group := texts[start:end]
		log.Info("embedding batch", "embedder", e.Name(), "batch", start/batchSize+1, "of", groups, "size", len(group))

		if native {
			vectors, err := batcher.EmbedTexts(ctx, group)
			if err != nil {
				return nil, &Error{Index: start, Err: err}
			}
			if len(vectors) != len(group) {
				return nil, &Error{Index: start, Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), len(group))}
			}
			out = append(out, vectors...)
			continue
		}
		for i, text := range group {
			v, err := e.Embed(ctx, text)
			if err != nil {
				return nil, &Error{Index: start + i, Err: err}
			}
			out = append(out, v)
		}
	}
	return out, nil
}
