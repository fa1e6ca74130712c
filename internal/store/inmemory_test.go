package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stillpointhq/stillpoint/internal/session"
)

func testSession(id string) *session.Session {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	started := now.Add(2 * time.Minute)
	return &session.Session{
		ID:         id,
		OwnerID:    "owner-1",
		State:      session.StateEmergenceCycle,
		Space:      session.SpaceHere,
		Region:     "intl",
		StartedAt:  &started,
		DepthScore: 0.2,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	defer s.Close()

	sess := testSession("sess-1")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.OwnerID != "owner-1" || got.State != session.StateEmergenceCycle {
		t.Fatalf("GetSession() = %+v, want stored session", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.IterationCount = 99
	again, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() second error = %v", err)
	}
	if again.IterationCount != 0 {
		t.Fatalf("IterationCount after caller mutation = %d, want 0", again.IterationCount)
	}
}

func TestInMemoryCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	defer s.Close()

	if err := s.CreateSession(ctx, testSession("sess-1")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := s.CreateSession(ctx, testSession("sess-1")); err == nil {
		t.Fatalf("CreateSession() duplicate error = nil, want error")
	}
}

func TestInMemoryGetMissing(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	if _, err := s.GetSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSession() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryCommitTurn(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	defer s.Close()

	sess := testSession("sess-1")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	updated := sess.Clone()
	updated.IterationCount = 1
	updated.DepthScore = 0.35
	updated.UpdatedAt = sess.UpdatedAt.Add(time.Minute)

	turn := &session.Turn{
		ID:              "turn-1",
		SessionID:       "sess-1",
		IterationNumber: 1,
		QuestionAsked:   "What is present for you right now?",
		UserResponse:    "a heaviness in my chest",
		ReflectedWords:  "heaviness chest",
		SpaceExplored:   string(session.SpaceHere),
		DepthScoreAtEnd: 0.35,
		CreatedAt:       updated.UpdatedAt,
	}
	events := []session.AuditEvent{{
		ID:            "ev-1",
		SessionID:     "sess-1",
		EventType:     session.AuditGroundingInserted,
		DepthScore:    0.35,
		ResponseTaken: "grounding_offered",
		CreatedAt:     updated.UpdatedAt,
	}}

	if err := s.CommitTurn(ctx, Commit{Session: updated, Turn: turn, Events: events}); err != nil {
		t.Fatalf("CommitTurn() error = %v", err)
	}

	got, err := s.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.IterationCount != 1 || got.DepthScore != 0.35 {
		t.Fatalf("session after commit = iter %d score %v, want 1 and 0.35", got.IterationCount, got.DepthScore)
	}

	turns, err := s.Turns(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 1 || turns[0].ReflectedWords != "heaviness chest" {
		t.Fatalf("Turns() = %+v, want the committed turn", turns)
	}

	trail, err := s.AuditTrail(ctx, "sess-1")
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if len(trail) != 1 || trail[0].EventType != session.AuditGroundingInserted {
		t.Fatalf("AuditTrail() = %+v, want one grounding event", trail)
	}
}

func TestInMemoryCommitTurnUnknownSession(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	err := s.CommitTurn(context.Background(), Commit{Session: testSession("ghost")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CommitTurn() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryCommitTurnNilSession(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	if err := s.CommitTurn(context.Background(), Commit{}); err == nil {
		t.Fatalf("CommitTurn() nil session error = nil, want error")
	}
}

func TestInMemoryTurnsOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	defer s.Close()

	sess := testSession("sess-1")
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	for _, n := range []int{3, 1, 2} {
		sess.IterationCount = n
		err := s.CommitTurn(ctx, Commit{
			Session: sess,
			Turn: &session.Turn{
				ID:              string(rune('a' + n)),
				SessionID:       "sess-1",
				IterationNumber: n,
				CreatedAt:       sess.UpdatedAt,
			},
		})
		if err != nil {
			t.Fatalf("CommitTurn(%d) error = %v", n, err)
		}
	}

	turns, err := s.Turns(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("len(turns) = %d, want 3", len(turns))
	}
	for i, turn := range turns {
		if turn.IterationNumber != i+1 {
			t.Fatalf("turns[%d].IterationNumber = %d, want %d", i, turn.IterationNumber, i+1)
		}
	}
}
