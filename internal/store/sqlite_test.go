package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stillpointhq/stillpoint/internal/session"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stillpoint.db")
	s, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	sess := testSession("sess-sql-1")
	sess.PendingQuestion = "What is present for you right now?"
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, "sess-sql-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.State != session.StateEmergenceCycle || got.Space != session.SpaceHere {
		t.Fatalf("GetSession() state=%q space=%q, want emergence_cycle/here", got.State, got.Space)
	}
	if got.PendingQuestion != sess.PendingQuestion {
		t.Fatalf("PendingQuestion = %q, want %q", got.PendingQuestion, sess.PendingQuestion)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(*sess.StartedAt) {
		t.Fatalf("StartedAt = %v, want %v", got.StartedAt, sess.StartedAt)
	}
	if !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, sess.CreatedAt)
	}
}

func TestSQLiteNullStartedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	sess := testSession("sess-sql-2")
	sess.StartedAt = nil
	sess.State = session.StateWelcome
	sess.Space = ""
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, "sess-sql-2")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.StartedAt != nil {
		t.Fatalf("StartedAt = %v, want nil", got.StartedAt)
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	s := newTestSQLite(t)
	if _, err := s.GetSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteCommitTurn(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	sess := testSession("sess-sql-3")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	updated := sess.Clone()
	updated.IterationCount = 1
	updated.DepthScore = 0.4
	updated.ReflectedWords = "heaviness chest"
	updated.UpdatedAt = sess.UpdatedAt.Add(time.Minute)

	commit := Commit{
		Session: updated,
		Turn: &session.Turn{
			ID:              "turn-sql-1",
			SessionID:       "sess-sql-3",
			IterationNumber: 1,
			QuestionAsked:   "What is present for you right now?",
			UserResponse:    "a heaviness in my chest",
			ReflectedWords:  "heaviness chest",
			SpaceExplored:   string(session.SpaceHere),
			DepthScoreAtEnd: 0.4,
			CreatedAt:       updated.UpdatedAt,
		},
		Events: []session.AuditEvent{{
			ID:            "ev-sql-1",
			SessionID:     "sess-sql-3",
			EventType:     session.AuditGroundingInserted,
			DepthScore:    0.4,
			ResponseTaken: "grounding_offered",
			CreatedAt:     updated.UpdatedAt,
		}},
	}
	if err := s.CommitTurn(ctx, commit); err != nil {
		t.Fatalf("CommitTurn() error = %v", err)
	}

	got, err := s.GetSession(ctx, "sess-sql-3")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.IterationCount != 1 || got.ReflectedWords != "heaviness chest" {
		t.Fatalf("session after commit = %+v, want updated fields", got)
	}

	turns, err := s.Turns(ctx, "sess-sql-3")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 1 || turns[0].QuestionAsked != "What is present for you right now?" {
		t.Fatalf("Turns() = %+v, want the committed turn", turns)
	}
	if !turns[0].CreatedAt.Equal(updated.UpdatedAt) {
		t.Fatalf("turn CreatedAt = %v, want %v", turns[0].CreatedAt, updated.UpdatedAt)
	}

	trail, err := s.AuditTrail(ctx, "sess-sql-3")
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if len(trail) != 1 || trail[0].ResponseTaken != "grounding_offered" {
		t.Fatalf("AuditTrail() = %+v, want one grounding event", trail)
	}
}

func TestSQLiteCommitTurnUnknownSession(t *testing.T) {
	s := newTestSQLite(t)

	err := s.CommitTurn(context.Background(), Commit{Session: testSession("ghost")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CommitTurn() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteDuplicateIterationRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	sess := testSession("sess-sql-4")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	turn := &session.Turn{
		ID:              "turn-dup-1",
		SessionID:       "sess-sql-4",
		IterationNumber: 1,
		CreatedAt:       sess.UpdatedAt,
	}
	if err := s.CommitTurn(ctx, Commit{Session: sess, Turn: turn}); err != nil {
		t.Fatalf("CommitTurn() first error = %v", err)
	}

	dup := *turn
	dup.ID = "turn-dup-2"
	if err := s.CommitTurn(ctx, Commit{Session: sess, Turn: &dup}); err == nil {
		t.Fatalf("CommitTurn() duplicate iteration error = nil, want error")
	}

	turns, err := s.Turns(ctx, "sess-sql-4")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1 after rejected duplicate", len(turns))
	}
}
