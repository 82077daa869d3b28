package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/logger"
)

// lenEmbedder maps a text to [len(text), first byte].
type lenEmbedder struct {
	calls  int
	failAt string
}

func (e *lenEmbedder) Name() string { return "len" }

func (e *lenEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if text == e.failAt {
		return nil, errors.New("service unavailable")
	}
	var first float32
	if text != "" {
		first = float32(text[0])
	}
	return []float32{float32(len(text)), first}, nil
}

type groupEmbedder struct {
	lenEmbedder
	groupCalls int
	short      bool
}

func (e *groupEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.groupCalls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestBatchPreservesOrder(t *testing.T) {
	e := &lenEmbedder{}
	texts := []string{"a", "bb", "ccc"}

	got, err := Batch(context.Background(), e, texts, 2, logger.Discard())
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, text := range texts {
		want, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, want, got[i])
	}
}

func TestBatchOneCallPerTextWithoutNativeBatching(t *testing.T) {
	e := &lenEmbedder{}
	texts := strings.Split("a b c d e f g h i j k l m n o p q r s t u v w x y", " ")

	_, err := Batch(context.Background(), e, texts, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, len(texts), e.calls)
}

func TestBatchUsesNativeGroups(t *testing.T) {
	e := &groupEmbedder{}
	texts := make([]string, 45)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	got, err := Batch(context.Background(), e, texts, 20, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, e.groupCalls)
	require.Len(t, got, 45)
	for i := range texts {
		assert.Equal(t, float32(i+1), got[i][0])
	}
}

func TestBatchAbortsOnFailure(t *testing.T) {
	e := &lenEmbedder{failAt: "bad"}

	got, err := Batch(context.Background(), e, []string{"ok", "bad", "never"}, 20, logger.Discard())
	require.Error(t, err)
	assert.Nil(t, got)

	var embErr *Error
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 1, embErr.Index)
	assert.Contains(t, err.Error(), "service unavailable")
	assert.Equal(t, 2, e.calls)
}

func TestBatchRejectsShortNativeResult(t *testing.T) {
	e := &groupEmbedder{short: true}

	_, err := Batch(context.Background(), e, []string{"a", "b"}, 20, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 vectors for 2 texts")
}

func TestBatchEmpty(t *testing.T) {
	got, err := Batch(context.Background(), &lenEmbedder{}, nil, 20, logger.Discard())
	require.NoError(t, err)
	assert.Empty(t, got)
}
