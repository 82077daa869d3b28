package service

import (
	"sync"
	"time"
)

// Stage is a step of document processing.
type Stage string

const (
	StageQueued    Stage = "queued"
	StageChunking  Stage = "chunking"
	StageIndexing  Stage = "indexing"
	StageEntities  Stage = "extracting_entities"
	StageSummary   Stage = "generating_summary"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// Status is the processing state of one document. FailedAt holds the stage
// that was running when Stage became StageFailed.
type Status struct {
	DocumentID string
	Stage      Stage
	FailedAt   Stage
	Error      string
	UpdatedAt  time.Time
}

type tracker struct {
	mu     sync.RWMutex
	states map[string]Status
}

func newTracker() *tracker {
	return &tracker{states: map[string]Status{}}
}

func (t *tracker) set(id string, stage Stage) {
	t.mu.Lock()
	t.states[id] = Status{DocumentID: id, Stage: stage, UpdatedAt: time.Now().UTC()}
	t.mu.Unlock()
}

func (t *tracker) fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{DocumentID: id, Stage: StageFailed, FailedAt: t.states[id].Stage, UpdatedAt: time.Now().UTC()}
	if err != nil {
		st.Error = err.Error()
	}
	t.states[id] = st
}

func (t *tracker) get(id string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[id]
	return st, ok
}

func (t *tracker) remove(id string) {
	t.mu.Lock()
	delete(t.states, id)
	t.mu.Unlock()
}
