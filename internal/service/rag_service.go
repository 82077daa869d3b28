package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/entities"
	"docqa/internal/logger"
	"docqa/internal/retriever"
	"docqa/internal/synth"
	"docqa/internal/vectorstore"
)

// DefaultKeyTerms is the number of key terms reported per document.
const DefaultKeyTerms = 30

// Analysis is the result of processing a document.
type Analysis struct {
	DocumentID string
	ChunkCount int
	Summary    synth.Result
	Entities   map[string][]string
	KeyTerms   []entities.Term
}

// Answer is a synthesized answer and the chunks it was based on.
type Answer struct {
	Result  synth.Result
	Sources domain.RetrievedContext
}

// Components are the collaborators a Pipeline is assembled from.
type Components struct {
	Chunker     domain.Chunker
	Builder     *vectorstore.Builder
	Store       vectorstore.Store
	Retriever   *retriever.Retriever
	Synthesizer *synth.Synthesizer
	KeyTerms    int
	Logger      logger.Logger
}

// Pipeline processes documents and answers questions about them.
type Pipeline struct {
	chunker  domain.Chunker
	builder  *vectorstore.Builder
	store    vectorstore.Store
	retr     *retriever.Retriever
	synth    *synth.Synthesizer
	keyTerms int
	log      logger.Logger
	status   *tracker
}

func NewPipeline(c Components) *Pipeline {
	if c.KeyTerms <= 0 {
		c.KeyTerms = DefaultKeyTerms
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	return &Pipeline{
		chunker:  c.Chunker,
		builder:  c.Builder,
		store:    c.Store,
		retr:     c.Retriever,
		synth:    c.Synthesizer,
		keyTerms: c.KeyTerms,
		log:      c.Logger,
		status:   newTracker(),
	}
}

// Process chunks and indexes text, persists the snapshot, extracts entities
// and generates a summary. An empty documentID gets a new UUID. Indexing
// errors abort processing; a failed summary is reported in the result.
func (p *Pipeline) Process(ctx context.Context, documentID, text string) (*Analysis, error) {
	if documentID == "" {
		documentID = uuid.NewString()
	}
	if err := vectorstore.ValidateID(documentID); err != nil {
		return nil, err
	}
	log := p.log.With("document", documentID)
	p.status.set(documentID, StageQueued)

	p.status.set(documentID, StageChunking)
	chunks := p.chunker.Chunk(text)
	log.Info("text chunked", "chunks", len(chunks))
	if len(chunks) == 0 {
		return nil, p.fail(documentID, vectorstore.ErrNoChunks)
	}

	p.status.set(documentID, StageIndexing)
	snap, err := p.builder.Build(ctx, documentID, chunks)
	if err != nil {
		return nil, p.fail(documentID, err)
	}
	if err := p.store.Save(ctx, snap); err != nil {
		return nil, p.fail(documentID, fmt.Errorf("save snapshot: %w", err))
	}

	p.status.set(documentID, StageEntities)
	found := entities.Extract(text)
	terms := entities.KeyTerms(text, p.keyTerms)

	p.status.set(documentID, StageSummary)
	summary := p.synth.Summarize(ctx, chunks, 0)
	if summary.Kind == synth.Failed {
		log.Warn("summary unavailable", "error", summary.Err)
	}

	p.status.set(documentID, StageCompleted)
	log.Info("document processed", "chunks", len(chunks))
	return &Analysis{
		DocumentID: documentID,
		ChunkCount: len(chunks),
		Summary:    summary,
		Entities:   found,
		KeyTerms:   terms,
	}, nil
}

func (p *Pipeline) fail(documentID string, err error) error {
	p.status.fail(documentID, err)
	p.log.Error("processing failed", "document", documentID, "error", err)
	return err
}

// Ask answers question from the document's snapshot. A missing document
// returns vectorstore.ErrNotFound; retrieval and model failures are
// reported in the result.
func (p *Pipeline) Ask(ctx context.Context, documentID, question string, topK int) (*Answer, error) {
	snap, err := p.store.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	rc := p.retr.Retrieve(ctx, question, snap, topK)
	return &Answer{Result: p.synth.Answer(ctx, question, rc), Sources: rc}, nil
}

// Summarize regenerates the summary of a stored document.
func (p *Pipeline) Summarize(ctx context.Context, documentID string, numChunks int) (synth.Result, error) {
	snap, err := p.store.Load(ctx, documentID)
	if err != nil {
		return synth.Result{}, err
	}
	return p.synth.Summarize(ctx, snap.Chunks, numChunks), nil
}

// Chunks returns the stored chunk list of a document.
func (p *Pipeline) Chunks(ctx context.Context, documentID string) ([]string, error) {
	snap, err := p.store.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return snap.Chunks, nil
}

// Highlights returns up to n key clauses of a stored document, ranked
// locally without calling the language model.
func (p *Pipeline) Highlights(ctx context.Context, documentID string, n int) ([]string, error) {
	snap, err := p.store.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return entities.KeySentences(strings.Join(snap.Chunks, "\n\n"), n), nil
}

// Delete removes the document's snapshot and status.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	p.status.remove(documentID)
	return p.store.Delete(ctx, documentID)
}

// Status reports the processing state recorded in this process.
func (p *Pipeline) Status(documentID string) (Status, bool) {
	return p.status.get(documentID)
}

// Documents lists stored document identifiers.
func (p *Pipeline) Documents(ctx context.Context) ([]string, error) {
	return p.store.List(ctx)
}
