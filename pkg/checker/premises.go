package checker

import (
	"sync"

	"github.com/carcara-go/alethectx/internal/term"
)

// premiseStore is the one piece of state shared by every worker beyond the
// subctx registry: a concurrent map from step id to its checked
// conclusion clause, so a step scheduled on one worker can resolve a
// premise produced by another. Waiters block on a per-id channel, closed
// by Publish, rather than polling.
type premiseStore struct {
	mu      sync.Mutex
	results map[string][]term.Ref
	waiters map[string][]chan struct{}
}

func newPremiseStore() *premiseStore {
	return &premiseStore{
		results: make(map[string][]term.Ref),
		waiters: make(map[string][]chan struct{}),
	}
}

// Publish records id's checked conclusion and wakes any worker blocked
// waiting for it.
func (s *premiseStore) Publish(id string, clause []term.Ref) {
	s.mu.Lock()
	s.results[id] = clause
	chans := s.waiters[id]
	delete(s.waiters, id)
	s.mu.Unlock()

	for _, ch := range chans {
		close(ch)
	}
}

// Wait blocks until id has been published, abort is set, or done fires. It
// returns the clause and true on success.
func (s *premiseStore) Wait(abort *abortFlag, done <-chan struct{}, id string) ([]term.Ref, bool) {
	s.mu.Lock()
	if clause, ok := s.results[id]; ok {
		s.mu.Unlock()
		return clause, true
	}
	ch := make(chan struct{})
	s.waiters[id] = append(s.waiters[id], ch)
	s.mu.Unlock()

	select {
	case <-ch:
		s.mu.Lock()
		clause, ok := s.results[id]
		s.mu.Unlock()
		return clause, ok
	case <-abort.C():
		return nil, false
	case <-done:
		return nil, false
	}
}
