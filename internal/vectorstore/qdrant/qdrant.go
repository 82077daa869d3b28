// Package qdrant stores vector snapshots in a Qdrant server. Each build
// goes into its own collection and a per-document alias points at the
// current one, so readers never see a half-written index.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"docqa/internal/logger"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
)

const upsertBatch = 256

// Config configures the Qdrant REST client.
type Config struct {
	URL     string
	APIKey  string
	Prefix  string
	Timeout time.Duration
}

// Store is a vectorstore.Store backed by Qdrant collections.
type Store struct {
	client *resty.Client
	prefix string
	log    logger.Logger
}

var _ vectorstore.Store = (*Store)(nil)

type point struct {
	ID      int       `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type payload struct {
	Position int    `json:"position"`
	Text     string `json:"text"`
}

type alias struct {
	AliasName      string `json:"alias_name"`
	CollectionName string `json:"collection_name"`
}

// NewStore creates a Qdrant-backed store.
func NewStore(cfg Config, log logger.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant: url is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "docqa"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}
	return &Store{client: client, prefix: cfg.Prefix, log: log}, nil
}

func (s *Store) aliasName(documentID string) string { return s.prefix + "_" + documentID }

// Save uploads the snapshot into a fresh collection and switches the
// document alias to it. The previously aliased collection is dropped.
func (s *Store) Save(ctx context.Context, snap *vectorstore.Snapshot) error {
	if snap == nil || snap.Index == nil {
		return errors.New("qdrant: nil snapshot")
	}
	if err := vectorstore.ValidateID(snap.DocumentID); err != nil {
		return err
	}
	if snap.Index.Len() != len(snap.Chunks) {
		return fmt.Errorf("qdrant: index has %d vectors for %d chunks", snap.Index.Len(), len(snap.Chunks))
	}
	name := s.aliasName(snap.DocumentID)
	collection := name + "_" + snap.Version
	if snap.Version == "" {
		collection = fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	}

	create := map[string]any{
		"vectors": map[string]any{"size": snap.Index.Dimension(), "distance": "Euclid"},
	}
	if err := s.do(ctx, http.MethodPut, "/collections/"+collection, create, nil); err != nil {
		return err
	}
	if err := s.upload(ctx, collection, snap); err != nil {
		s.dropCollection(ctx, collection)
		return err
	}

	previous, err := s.aliasTarget(ctx, name)
	if err != nil && !errors.Is(err, vectorstore.ErrNotFound) {
		s.dropCollection(ctx, collection)
		return err
	}
	actions := []map[string]any{}
	if previous != "" {
		actions = append(actions, map[string]any{"delete_alias": map[string]any{"alias_name": name}})
	}
	actions = append(actions, map[string]any{
		"create_alias": map[string]any{"collection_name": collection, "alias_name": name},
	})
	if err := s.do(ctx, http.MethodPost, "/collections/aliases", map[string]any{"actions": actions}, nil); err != nil {
		s.dropCollection(ctx, collection)
		return err
	}
	if previous != "" && previous != collection {
		s.dropCollection(ctx, previous)
	}
	s.log.Debug("snapshot saved", "document", snap.DocumentID, "collection", collection, "chunks", len(snap.Chunks))
	return nil
}

func (s *Store) upload(ctx context.Context, collection string, snap *vectorstore.Snapshot) error {
	for start := 0; start < len(snap.Chunks); start += upsertBatch {
		end := min(start+upsertBatch, len(snap.Chunks))
		points := make([]point, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, point{
				ID:      i,
				Vector:  snap.Index.Vector(i),
				Payload: payload{Position: i, Text: snap.Chunks[i]},
			})
		}
		path := "/collections/" + collection + "/points?wait=true"
		if err := s.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Load scrolls every point of the aliased collection and rebuilds the index
// in position order.
func (s *Store) Load(ctx context.Context, documentID string) (*vectorstore.Snapshot, error) {
	if err := vectorstore.ValidateID(documentID); err != nil {
		return nil, err
	}
	name := s.aliasName(documentID)
	collection, err := s.aliasTarget(ctx, name)
	if err != nil {
		return nil, err
	}

	var points []point
	var offset any
	for {
		req := map[string]any{"limit": upsertBatch, "with_payload": true, "with_vector": true}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/scroll", req, &resp); err != nil {
			return nil, err
		}
		points = append(points, resp.Result.Points...)
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("qdrant: collection %s is empty", collection)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Payload.Position < points[j].Payload.Position })

	idx, err := memory.New(len(points[0].Vector))
	if err != nil {
		return nil, fmt.Errorf("qdrant: %w", err)
	}
	chunks := make([]string, len(points))
	for i, p := range points {
		if p.Payload.Position != i {
			return nil, fmt.Errorf("qdrant: collection %s is missing position %d", collection, i)
		}
		if err := idx.Add(p.Vector); err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		chunks[i] = p.Payload.Text
	}
	return &vectorstore.Snapshot{
		DocumentID: documentID,
		Version:    strings.TrimPrefix(collection, name+"_"),
		Index:      idx,
		Chunks:     chunks,
	}, nil
}

// Delete removes the alias and the collection behind it.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if err := vectorstore.ValidateID(documentID); err != nil {
		return err
	}
	name := s.aliasName(documentID)
	collection, err := s.aliasTarget(ctx, name)
	if err != nil {
		return err
	}
	body := map[string]any{"actions": []map[string]any{{"delete_alias": map[string]any{"alias_name": name}}}}
	if err := s.do(ctx, http.MethodPost, "/collections/aliases", body, nil); err != nil {
		return err
	}
	return s.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
}

// List returns documents that have an alias under this store's prefix.
func (s *Store) List(ctx context.Context) ([]string, error) {
	aliases, err := s.aliases(ctx)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, a := range aliases {
		if id, ok := strings.CutPrefix(a.AliasName, s.prefix+"_"); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) aliases(ctx context.Context) ([]alias, error) {
	var resp struct {
		Result struct {
			Aliases []alias `json:"aliases"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections/aliases", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Result.Aliases, nil
}

func (s *Store) aliasTarget(ctx context.Context, name string) (string, error) {
	aliases, err := s.aliases(ctx)
	if err != nil {
		return "", err
	}
	for _, a := range aliases {
		if a.AliasName == name {
			return a.CollectionName, nil
		}
	}
	return "", fmt.Errorf("%w: %s", vectorstore.ErrNotFound, strings.TrimPrefix(name, s.prefix+"_"))
}

func (s *Store) dropCollection(ctx context.Context, collection string) {
	if err := s.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil); err != nil {
		s.log.Warn("failed to drop collection", "collection", collection, "error", err)
	}
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	req := s.client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		detail := strings.TrimSpace(resp.String())
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status(), detail)
	}
	return nil
}
