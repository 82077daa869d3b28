package vectorstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/embedding"
)

// letterEmbedder maps text to letter counts for a, b and c.
type letterEmbedder struct {
	failOn string
}

func (letterEmbedder) Name() string { return "letters" }

func (e letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("service unavailable")
	}
	return []float32{
		float32(strings.Count(text, "a")),
		float32(strings.Count(text, "b")),
		float32(strings.Count(text, "c")),
	}, nil
}

type raggedEmbedder struct{}

func (raggedEmbedder) Name() string { return "ragged" }

func (raggedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return make([]float32, len(text)), nil
}

func TestBuildAndSelfRetrieval(t *testing.T) {
	chunks := []string{"aaa", "bbb", "ccc", "abc"}
	snap, err := NewBuilder(letterEmbedder{}, 2, nil).Build(context.Background(), "doc-1", chunks)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", snap.DocumentID)
	assert.NotEmpty(t, snap.Version)
	assert.Equal(t, len(chunks), snap.Index.Len())

	for j, c := range chunks {
		v, _ := letterEmbedder{}.Embed(context.Background(), c)
		got, err := snap.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, j, got[0].Position)
		assert.Equal(t, c, got[0].Text)
	}
}

func TestSearchTopK(t *testing.T) {
	snap, err := NewBuilder(letterEmbedder{}, 0, nil).Build(context.Background(), "d", []string{"a", "b", "c"})
	require.NoError(t, err)

	got, err := snap.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Text)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}

	got, err = snap.Search([]float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchDegradesToEmpty(t *testing.T) {
	snap, err := NewBuilder(letterEmbedder{}, 0, nil).Build(context.Background(), "d", []string{"a"})
	require.NoError(t, err)

	got, err := snap.Search([]float32{1, 0}, 3)
	require.Error(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	var empty *Snapshot
	got, err = empty.Search([]float32{1}, 1)
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestSearchSkipsOutOfRangePositions(t *testing.T) {
	snap, err := NewBuilder(letterEmbedder{}, 0, nil).Build(context.Background(), "d", []string{"a", "b"})
	require.NoError(t, err)
	snap.Chunks = snap.Chunks[:1]

	got, err := snap.Search([]float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Text)
}

func TestBuildEmptyChunks(t *testing.T) {
	_, err := NewBuilder(letterEmbedder{}, 0, nil).Build(context.Background(), "d", nil)
	require.ErrorIs(t, err, ErrNoChunks)
}

func TestBuildAbortsOnEmbeddingFailure(t *testing.T) {
	_, err := NewBuilder(letterEmbedder{failOn: "bad"}, 2, nil).Build(context.Background(), "d", []string{"a", "b", "bad"})
	var embErr *embedding.Error
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, 2, embErr.Index)
}

func TestBuildRejectsMixedDimensions(t *testing.T) {
	_, err := NewBuilder(raggedEmbedder{}, 0, nil).Build(context.Background(), "d", []string{"ab", "abc"})
	require.Error(t, err)
}

func TestValidateID(t *testing.T) {
	for _, ok := range []string{"doc-1", "a.b_c", "6f1c2d3e-0000-4000-8000-000000000000"} {
		assert.NoError(t, ValidateID(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", ".hidden", "a/b", "../x", "a b"} {
		assert.ErrorIs(t, ValidateID(bad), ErrInvalidID, bad)
	}
}
