package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
)

// fakeQdrant implements the handful of REST endpoints the store uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]map[int]point
	distance    map[string]string
	aliases     map[string]string
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{
		collections: map[string]map[int]point{},
		distance:    map[string]string{},
		aliases:     map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /collections/aliases", f.listAliases)
	mux.HandleFunc("POST /collections/aliases", f.updateAliases)
	mux.HandleFunc("PUT /collections/{name}", f.createCollection)
	mux.HandleFunc("DELETE /collections/{name}", f.deleteCollection)
	mux.HandleFunc("PUT /collections/{name}/points", f.upsert)
	mux.HandleFunc("POST /collections/{name}/points/scroll", f.scroll)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func ok(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "result": result})
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": map[string]string{"error": msg}})
}

func (f *fakeQdrant) resolve(name string) string {
	if c, ok := f.aliases[name]; ok {
		return c
	}
	return name
}

func (f *fakeQdrant) listAliases(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []alias{}
	for a, c := range f.aliases {
		out = append(out, alias{AliasName: a, CollectionName: c})
	}
	ok(w, map[string]any{"aliases": out})
}

func (f *fakeQdrant) updateAliases(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actions []struct {
			Create *alias `json:"create_alias"`
			Delete *alias `json:"delete_alias"`
		} `json:"actions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range body.Actions {
		switch {
		case a.Delete != nil:
			if _, exists := f.aliases[a.Delete.AliasName]; !exists {
				fail(w, http.StatusNotFound, "alias not found")
				return
			}
			delete(f.aliases, a.Delete.AliasName)
		case a.Create != nil:
			if _, exists := f.collections[a.Create.CollectionName]; !exists {
				fail(w, http.StatusNotFound, "collection not found")
				return
			}
			f.aliases[a.Create.AliasName] = a.Create.CollectionName
		}
	}
	ok(w, true)
}

func (f *fakeQdrant) createCollection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Vectors struct {
			Size     int    `json:"size"`
			Distance string `json:"distance"`
		} `json:"vectors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Vectors.Size <= 0 {
		fail(w, http.StatusBadRequest, "bad collection config")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := r.PathValue("name")
	f.collections[name] = map[int]point{}
	f.distance[name] = body.Vectors.Distance
	ok(w, true)
}

func (f *fakeQdrant) deleteCollection(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, r.PathValue("name"))
	ok(w, true)
}

func (f *fakeQdrant) upsert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points []point `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, exists := f.collections[r.PathValue("name")]
	if !exists {
		fail(w, http.StatusNotFound, "collection not found")
		return
	}
	for _, p := range body.Points {
		c[p.ID] = p
	}
	ok(w, map[string]string{"status": "completed"})
}

func (f *fakeQdrant) scroll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Limit  int  `json:"limit"`
		Offset *int `json:"offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, exists := f.collections[f.resolve(r.PathValue("name"))]
	if !exists {
		fail(w, http.StatusNotFound, "collection not found")
		return
	}
	ids := make([]int, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	start := 0
	if body.Offset != nil {
		start = sort.SearchInts(ids, *body.Offset)
	}
	end := min(start+body.Limit, len(ids))
	page := []point{}
	// return the page in reverse to make the client sort
	for i := end - 1; i >= start; i-- {
		page = append(page, c[ids[i]])
	}
	var next any
	if end < len(ids) {
		next = ids[end]
	}
	ok(w, map[string]any{"points": page, "next_page_offset": next})
}

func snapshot(t *testing.T, id, version string, n int) *vectorstore.Snapshot {
	t.Helper()
	idx, err := memory.New(3)
	require.NoError(t, err)
	chunks := make([]string, n)
	for i := 0; i < n; i++ {
		require.NoError(t, idx.Add([]float32{float32(i), 1, -float32(i)}))
		chunks[i] = strings.Repeat("x", i+1)
	}
	return &vectorstore.Snapshot{DocumentID: id, Version: version, Index: idx, Chunks: chunks}
}

func newTestStore(t *testing.T, url string) *Store {
	t.Helper()
	s, err := NewStore(Config{URL: url, Prefix: "test"}, nil)
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	f, srv := newFakeQdrant(t)
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	// more points than one scroll page
	orig := snapshot(t, "lease", "v1", upsertBatch+7)
	require.NoError(t, s.Save(ctx, orig))
	assert.Equal(t, "Euclid", f.distance["test_lease_v1"])
	assert.Equal(t, "test_lease_v1", f.aliases["test_lease"])

	got, err := s.Load(ctx, "lease")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Version)
	assert.Equal(t, orig.Chunks, got.Chunks)
	assert.Equal(t, orig.Index.Len(), got.Index.Len())
	assert.Equal(t, orig.Index.Vector(100), got.Index.Vector(100))

	q := []float32{3, 1, -3}
	hits, err := got.Search(q, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 3, hits[0].Position)
}

func TestSaveSwitchesAliasAndDropsOldCollection(t *testing.T) {
	f, srv := newFakeQdrant(t)
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, snapshot(t, "doc", "v1", 3)))
	require.NoError(t, s.Save(ctx, snapshot(t, "doc", "v2", 2)))

	assert.Equal(t, "test_doc_v2", f.aliases["test_doc"])
	_, oldExists := f.collections["test_doc_v1"]
	assert.False(t, oldExists)

	got, err := s.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)
	assert.Len(t, got.Chunks, 2)
}

func TestLoadDeleteMissing(t *testing.T) {
	_, srv := newFakeQdrant(t)
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	require.ErrorIs(t, err, vectorstore.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "missing"), vectorstore.ErrNotFound)
}

func TestDeleteAndList(t *testing.T) {
	f, srv := newFakeQdrant(t)
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, snapshot(t, "b", "v1", 1)))
	require.NoError(t, s.Save(ctx, snapshot(t, "a", "v1", 1)))
	f.mu.Lock()
	f.aliases["other_thing"] = "test_a_v1"
	f.mu.Unlock()

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Load(ctx, "a")
	require.ErrorIs(t, err, vectorstore.ErrNotFound)
	_, exists := f.collections["test_a_v1"]
	assert.False(t, exists)
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusInternalServerError, "disk full")
	}))
	t.Cleanup(srv.Close)
	s := newTestStore(t, srv.URL)

	err := s.Save(context.Background(), snapshot(t, "doc", "v1", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestNewStoreRequiresURL(t *testing.T) {
	_, err := NewStore(Config{}, nil)
	require.Error(t, err)
}
