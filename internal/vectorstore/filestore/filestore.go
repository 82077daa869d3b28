// Package filestore persists vector snapshots as one directory per
// document on the local filesystem.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"docqa/internal/logger"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
)

const (
	indexFile    = "index.gob"
	chunksFile   = "chunks.json"
	manifestFile = "manifest.json"

	lockRetry = 10 * time.Millisecond

	tmpPrefix = ".tmp-"
	oldPrefix = ".old-"
)

type manifest struct {
	DocumentID string    `json:"document_id"`
	Version    string    `json:"version"`
	Dimension  int       `json:"dimension"`
	Chunks     int       `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is a vectorstore.Store rooted at a directory.
type Store struct {
	dir   string
	cache *lru.Cache[string, *vectorstore.Snapshot]
	log   logger.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// New creates the directory if needed. cacheSize <= 0 disables caching.
func New(dir string, cacheSize int, log logger.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	if log == nil {
		log = logger.Discard()
	}
	s := &Store{dir: dir, log: log}
	if cacheSize > 0 {
		c, err := lru.New[string, *vectorstore.Snapshot](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("filestore: init cache: %w", err)
		}
		s.cache = c
	}
	if err := s.recoverInterrupted(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) docDir(id string) string { return filepath.Join(s.dir, id) }

func (s *Store) lockPath(id string) string { return filepath.Join(s.dir, "."+id+".lock") }

// acquire takes the document's lock file. Delete unlinks that file while
// holding it exclusively, so a lock that ends up on an unlinked file is
// released and taken again on the current one.
func (s *Store) acquire(ctx context.Context, id string, shared bool) (*flock.Flock, error) {
	for {
		fl := flock.New(s.lockPath(id))
		var err error
		if shared {
			_, err = fl.TryRLockContext(ctx, lockRetry)
		} else {
			_, err = fl.TryLockContext(ctx, lockRetry)
		}
		if err != nil {
			return nil, fmt.Errorf("filestore: lock %s: %w", id, err)
		}
		if _, err := os.Stat(fl.Path()); !errors.Is(err, fs.ErrNotExist) {
			return fl, nil
		}
		_ = fl.Unlock()
	}
}

// recoverInterrupted cleans up after saves that died between their two
// renames: a previous snapshot left as .old-<id>-<uuid> is moved back when
// the document has no live directory, and leftover temporary directories
// are removed. Each document is handled under its exclusive lock, so saves
// still running in other processes are left alone.
func (s *Store) recoverInterrupted() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("filestore: scan %s: %w", s.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, ok := leftoverID(e.Name())
		if !ok || vectorstore.ValidateID(id) != nil {
			continue
		}
		if err := s.recoverLeftover(id, e.Name()); err != nil {
			s.log.Warn("failed to recover interrupted save", "document", id, "entry", e.Name(), "error", err)
		}
	}
	return nil
}

func (s *Store) recoverLeftover(id, name string) error {
	fl, err := s.acquire(context.Background(), id, false)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		// finished by its owner while we waited for the lock
		return nil
	}
	if strings.HasPrefix(name, oldPrefix) {
		if _, err := os.Stat(s.docDir(id)); errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("restoring snapshot from interrupted save", "document", id)
			return os.Rename(path, s.docDir(id))
		}
	}
	return os.RemoveAll(path)
}

// leftoverID extracts the document id from .old-<id>-<uuid> and
// .tmp-<id>-<random> directory names.
func leftoverID(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, oldPrefix):
		rest := strings.TrimPrefix(name, oldPrefix)
		// "-" plus a 36 character uuid
		if len(rest) < 38 || rest[len(rest)-37] != '-' {
			return "", false
		}
		if _, err := uuid.Parse(rest[len(rest)-36:]); err != nil {
			return "", false
		}
		return rest[:len(rest)-37], true
	case strings.HasPrefix(name, tmpPrefix):
		rest := strings.TrimPrefix(name, tmpPrefix)
		i := strings.LastIndexByte(rest, '-')
		if i <= 0 {
			return "", false
		}
		return rest[:i], true
	}
	return "", false
}

// Save writes the snapshot into a temporary directory and renames it into
// place under an exclusive lock.
func (s *Store) Save(ctx context.Context, snap *vectorstore.Snapshot) error {
	if snap == nil || snap.Index == nil {
		return errors.New("filestore: nil snapshot")
	}
	if err := vectorstore.ValidateID(snap.DocumentID); err != nil {
		return err
	}
	if snap.Index.Len() != len(snap.Chunks) {
		return fmt.Errorf("filestore: index has %d vectors for %d chunks", snap.Index.Len(), len(snap.Chunks))
	}
	id := snap.DocumentID
	indexData, err := snap.Index.MarshalBinary()
	if err != nil {
		return fmt.Errorf("filestore: %w", err)
	}
	chunkData, err := json.Marshal(snap.Chunks)
	if err != nil {
		return fmt.Errorf("filestore: encode chunks: %w", err)
	}
	m := manifest{
		DocumentID: id,
		Version:    snap.Version,
		Dimension:  snap.Index.Dimension(),
		Chunks:     len(snap.Chunks),
		CreatedAt:  snap.CreatedAt,
	}
	if m.Version == "" {
		m.Version = uuid.NewString()
	}
	manifestData, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode manifest: %w", err)
	}

	fl, err := s.acquire(ctx, id, false)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	tmp, err := os.MkdirTemp(s.dir, tmpPrefix+id+"-")
	if err != nil {
		return fmt.Errorf("filestore: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	// manifest last: a directory without one is never loaded
	for _, f := range []struct {
		name string
		data []byte
	}{
		{indexFile, indexData},
		{chunksFile, chunkData},
		{manifestFile, manifestData},
	} {
		if err := os.WriteFile(filepath.Join(tmp, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("filestore: write %s: %w", f.name, err)
		}
	}

	target := s.docDir(id)
	var old string
	if _, err := os.Stat(target); err == nil {
		old = filepath.Join(s.dir, oldPrefix+id+"-"+uuid.NewString())
		if err := os.Rename(target, old); err != nil {
			return fmt.Errorf("filestore: move previous snapshot: %w", err)
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		if old != "" {
			_ = os.Rename(old, target)
		}
		return fmt.Errorf("filestore: install snapshot: %w", err)
	}
	if old != "" {
		if err := os.RemoveAll(old); err != nil {
			s.log.Warn("failed to remove previous snapshot", "document", id, "error", err)
		}
	}

	if s.cache != nil {
		stored := *snap
		stored.Version = m.Version
		s.cache.Add(id, &stored)
	}
	s.log.Debug("snapshot saved", "document", id, "version", m.Version, "chunks", m.Chunks)
	return nil
}

// Load returns the current snapshot. The cached copy is reused while its
// version matches the manifest on disk.
func (s *Store) Load(ctx context.Context, documentID string) (*vectorstore.Snapshot, error) {
	if err := vectorstore.ValidateID(documentID); err != nil {
		return nil, err
	}
	// every stored document has a lock file, so its absence means there is
	// nothing to load and no lock file needs to be created
	if _, err := os.Stat(s.lockPath(documentID)); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrNotFound, documentID)
	}
	fl, err := s.acquire(ctx, documentID, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	dir := s.docDir(documentID)

	var m manifest
	if err := readJSON(filepath.Join(dir, manifestFile), &m); err != nil {
		return nil, notFoundOr(documentID, err)
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(documentID); ok && cached.Version == m.Version {
			return cached, nil
		}
	}

	indexData, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, notFoundOr(documentID, err)
	}
	var chunks []string
	if err := readJSON(filepath.Join(dir, chunksFile), &chunks); err != nil {
		return nil, notFoundOr(documentID, err)
	}
	idx := &memory.Index{}
	if err := idx.UnmarshalBinary(indexData); err != nil {
		return nil, fmt.Errorf("filestore: %s: %w", documentID, err)
	}
	if idx.Len() != len(chunks) {
		return nil, fmt.Errorf("filestore: %s: index has %d vectors for %d chunks", documentID, idx.Len(), len(chunks))
	}
	snap := &vectorstore.Snapshot{
		DocumentID: documentID,
		Version:    m.Version,
		Index:      idx,
		Chunks:     chunks,
		CreatedAt:  m.CreatedAt,
	}
	if s.cache != nil {
		s.cache.Add(documentID, snap)
	}
	return snap, nil
}

// Delete removes the snapshot directory and its lock file.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if err := vectorstore.ValidateID(documentID); err != nil {
		return err
	}
	fl, err := s.acquire(ctx, documentID, false)
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()
	// runs before Unlock
	defer func() { _ = os.Remove(fl.Path()) }()

	if s.cache != nil {
		s.cache.Remove(documentID)
	}
	dir := s.docDir(documentID)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", vectorstore.ErrNotFound, documentID)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("filestore: delete %s: %w", documentID, err)
	}
	return nil
}

// List returns the identifiers of all stored documents in lexical order.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: list: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), manifestFile)); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func notFoundOr(id string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", vectorstore.ErrNotFound, id)
	}
	return fmt.Errorf("filestore: %s: %w", id, err)
}
