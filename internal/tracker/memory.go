package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/amishk599/jobenrich/internal/model"
)

// Ensure MemoryTracker implements model.RunTracker.
var _ model.RunTracker = (*MemoryTracker)(nil)

// MemoryTracker keeps run state in process. It backs the HTTP server when
// no Redis is configured and lives only as long as the process.
type MemoryTracker struct {
	mu   sync.Mutex
	runs map[string]model.RunState
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{runs: make(map[string]model.RunState)}
}

func (t *MemoryTracker) Record(_ context.Context, state model.RunState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[state.RunID] = state
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, runID string) (model.RunState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.runs[runID]
	if !ok {
		return model.RunState{}, model.ErrRunNotFound
	}
	return state, nil
}

func (t *MemoryTracker) Recent(_ context.Context, limit int) ([]model.RunState, error) {
	t.mu.Lock()
	states := make([]model.RunState, 0, len(t.runs))
	for _, s := range t.runs {
		states = append(states, s)
	}
	t.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].StartedAt.After(states[j].StartedAt)
	})
	if limit >= 0 && len(states) > limit {
		states = states[:limit]
	}
	return states, nil
}
