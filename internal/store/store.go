// Package store persists sessions, turns, and audit events. Every backend
// applies one processed input's writes as a single all-or-nothing commit.
package store

import (
	"context"
	"errors"

	"github.com/stillpointhq/stillpoint/internal/session"
)

var ErrNotFound = errors.New("session not found")

// Commit is the unit of persistence for one processed input: the updated
// session snapshot, at most one new turn, and the audit events the branch
// produced. A backend must apply all of it or none of it.
type Commit struct {
	Session *session.Session
	Turn    *session.Turn
	Events  []session.AuditEvent
}

// Store is the storage port consumed by the orchestrator.
type Store interface {
	CreateSession(ctx context.Context, sess *session.Session) error
	GetSession(ctx context.Context, id string) (*session.Session, error)
	CommitTurn(ctx context.Context, commit Commit) error
	Turns(ctx context.Context, sessionID string) ([]session.Turn, error)
	AuditTrail(ctx context.Context, sessionID string) ([]session.AuditEvent, error)
	Close() error
}
