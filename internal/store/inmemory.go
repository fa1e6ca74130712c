package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stillpointhq/stillpoint/internal/session"
)

// InMemoryStore is the in-process backend for local runs and tests. All
// writes for one commit happen under a single lock acquisition, which gives
// the all-or-nothing guarantee for free.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	turns    map[string][]session.Turn
	events   map[string][]session.AuditEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*session.Session),
		turns:    make(map[string][]session.Turn),
		events:   make(map[string][]session.AuditEvent),
	}
}

func (s *InMemoryStore) CreateSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *InMemoryStore) CommitTurn(_ context.Context, commit Commit) error {
	if commit.Session == nil {
		return fmt.Errorf("commit requires a session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[commit.Session.ID]; !ok {
		return ErrNotFound
	}

	s.sessions[commit.Session.ID] = commit.Session.Clone()
	if commit.Turn != nil {
		s.turns[commit.Session.ID] = append(s.turns[commit.Session.ID], *commit.Turn)
	}
	if len(commit.Events) > 0 {
		s.events[commit.Session.ID] = append(s.events[commit.Session.ID], commit.Events...)
	}
	return nil
}

func (s *InMemoryStore) Turns(_ context.Context, sessionID string) ([]session.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := append([]session.Turn(nil), s.turns[sessionID]...)
	sort.Slice(turns, func(i, j int) bool {
		return turns[i].IterationNumber < turns[j].IterationNumber
	})
	return turns, nil
}

func (s *InMemoryStore) AuditTrail(_ context.Context, sessionID string) ([]session.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]session.AuditEvent(nil), s.events[sessionID]...), nil
}

func (s *InMemoryStore) Close() error { return nil }
