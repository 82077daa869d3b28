package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/logger"
	"docqa/internal/vectorstore/memory"
)

var (
	// ErrNotFound is returned when no snapshot exists for a document.
	ErrNotFound = errors.New("snapshot not found")
	// ErrNoChunks is returned when building a snapshot from zero chunks.
	ErrNoChunks = errors.New("no chunks to index")
	// ErrInvalidID is returned for document identifiers that cannot be stored.
	ErrInvalidID = errors.New("invalid document id")
)

// Snapshot is one document's index together with the chunk list it was
// built from. Position i of the index corresponds to Chunks[i]. Snapshots
// are immutable once built.
type Snapshot struct {
	DocumentID string
	Version    string
	Index      *memory.Index
	Chunks     []string
	CreatedAt  time.Time
}

// Store persists snapshots per document.
type Store interface {
	// Save writes the snapshot atomically, replacing any previous one.
	Save(ctx context.Context, s *Snapshot) error
	// Load returns ErrNotFound when the document has no complete snapshot.
	Load(ctx context.Context, documentID string) (*Snapshot, error)
	Delete(ctx context.Context, documentID string) error
	List(ctx context.Context) ([]string, error)
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateID rejects identifiers that would escape a store's namespace.
// Leading dots are reserved for store internals.
func ValidateID(documentID string) error {
	if strings.HasPrefix(documentID, ".") || !idPattern.MatchString(documentID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, documentID)
	}
	return nil
}

// Search returns up to topK chunks closest to the query, closest first.
// Any failure yields an empty result; the error is only for logging.
func (s *Snapshot) Search(query []float32, topK int) (domain.RetrievedContext, error) {
	out := domain.RetrievedContext{}
	if s == nil || s.Index == nil {
		return out, errors.New("snapshot has no index")
	}
	hits, err := s.Index.Search(query, topK)
	if err != nil {
		return out, err
	}
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(s.Chunks) {
			continue
		}
		out = append(out, domain.RetrievedChunk{Position: h.Position, Text: s.Chunks[h.Position], Distance: h.Distance})
	}
	return out, nil
}

// Builder embeds chunks and assembles snapshots.
type Builder struct {
	embedder  embedding.Embedder
	batchSize int
	log       logger.Logger
}

// NewBuilder returns a Builder. batchSize <= 0 uses embedding.DefaultBatchSize.
func NewBuilder(e embedding.Embedder, batchSize int, log logger.Logger) *Builder {
	if log == nil {
		log = logger.Discard()
	}
	return &Builder{embedder: e, batchSize: batchSize, log: log}
}

// Build embeds every chunk and indexes the vectors in chunk order. Any
// embedding failure aborts the build.
func (b *Builder) Build(ctx context.Context, documentID string, chunks []string) (*Snapshot, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	vectors, err := embedding.Batch(ctx, b.embedder, chunks, b.batchSize, b.log)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", documentID, err)
	}
	idx, err := memory.New(len(vectors[0]))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", documentID, err)
	}
	if err := idx.Add(vectors...); err != nil {
		return nil, fmt.Errorf("build %s: %w", documentID, err)
	}
	b.log.Info("index built", "document", documentID, "chunks", len(chunks), "dimension", idx.Dimension())
	return &Snapshot{
		DocumentID: documentID,
		Version:    uuid.NewString(),
		Index:      idx,
		Chunks:     append([]string(nil), chunks...),
		CreatedAt:  time.Now().UTC(),
	}, nil
}
