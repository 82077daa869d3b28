package retriever

import (
	"context"
	"errors"

	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/logger"
	"docqa/internal/vectorstore"
)

// DefaultTopK is used when a caller passes topK <= 0.
const DefaultTopK = 5

// Retriever embeds queries and searches a document snapshot.
type Retriever struct {
	embedder embedding.Embedder
	topK     int
	log      logger.Logger
}

// New returns a Retriever. defaultTopK <= 0 falls back to DefaultTopK.
func New(e embedding.Embedder, defaultTopK int, log logger.Logger) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Retriever{embedder: e, topK: defaultTopK, log: log}
}

// Retrieve returns the chunks closest to query, closest first. Failures are
// logged and yield an empty context.
func (r *Retriever) Retrieve(ctx context.Context, query string, snap *vectorstore.Snapshot, topK int) domain.RetrievedContext {
	if topK <= 0 {
		topK = r.topK
	}
	if snap == nil {
		r.log.Error("retrieval failed", "error", errors.New("no snapshot"))
		return domain.RetrievedContext{}
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Error("query embedding failed", "document", snap.DocumentID, "error", err)
		return domain.RetrievedContext{}
	}
	found, err := snap.Search(vec, topK)
	if err != nil {
		r.log.Error("search failed", "document", snap.DocumentID, "error", err)
		return domain.RetrievedContext{}
	}
	r.log.Debug("retrieved", "document", snap.DocumentID, "top_k", topK, "hits", len(found))
	return found
}
