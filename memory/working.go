package memory

import (
	"sync"
	"time"

	"github.com/chittyos/chittyrouter/entity"
)

type (
	workingScope struct {
		entries   []*entity.Interaction
		touchedAt time.Time
	}

	// WorkingStore keeps a bounded recent-interaction window per
	// (agent, scope). Scopes expire after a fixed TTL; an expired or
	// unknown scope reads as empty, never as an error.
	WorkingStore struct {
		mu     sync.Mutex
		scopes map[string]*workingScope

		ttl    time.Duration
		window int
		now    func() time.Time
	}
)

func NewWorkingStore(ttl time.Duration, window int) *WorkingStore {
	return &WorkingStore{
		scopes: make(map[string]*workingScope),
		ttl:    ttl,
		window: window,
		now:    time.Now,
	}
}

// SetClock replaces the time source. Tests use it to advance past the TTL.
func (s *WorkingStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *WorkingStore) Recall(agentID, scopeID string) []*entity.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := workingKey(agentID, scopeID)
	scope, ok := s.scopes[key]
	if !ok {
		return nil
	}
	if s.now().Sub(scope.touchedAt) > s.ttl {
		delete(s.scopes, key)
		return nil
	}

	entries := make([]*entity.Interaction, len(scope.entries))
	copy(entries, scope.entries)
	return entries
}

func (s *WorkingStore) Append(agentID, scopeID string, interaction *entity.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	key := workingKey(agentID, scopeID)
	scope, ok := s.scopes[key]
	if !ok {
		scope = &workingScope{}
		s.scopes[key] = scope
	}

	scope.entries = append(scope.entries, interaction)
	if len(scope.entries) > s.window {
		scope.entries = scope.entries[len(scope.entries)-s.window:]
	}
	scope.touchedAt = now
}

// sweep drops every expired scope. Called with the lock held.
func (s *WorkingStore) sweep(now time.Time) {
	for key, scope := range s.scopes {
		if now.Sub(scope.touchedAt) > s.ttl {
			delete(s.scopes, key)
		}
	}
}
