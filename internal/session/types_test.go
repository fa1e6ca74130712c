package session

import (
	"errors"
	"testing"
	"time"
)

func TestParseSpace(t *testing.T) {
	for _, raw := range []string{"here", "Body", "FEELINGS", " thoughts ", "relationships", "meaning"} {
		if _, err := ParseSpace(raw); err != nil {
			t.Fatalf("ParseSpace(%q) error = %v", raw, err)
		}
	}

	for _, raw := range []string{"", "soul", "body feelings", "integration"} {
		if _, err := ParseSpace(raw); !errors.Is(err, ErrInvalidSpace) {
			t.Fatalf("ParseSpace(%q) error = %v, want ErrInvalidSpace", raw, err)
		}
	}
}

func TestSessionCloneIsIndependent(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &Session{ID: "s1", State: StateEmergenceCycle, IterationCount: 2, StartedAt: &started}

	c := s.Clone()
	c.IterationCount = 5
	*c.StartedAt = c.StartedAt.Add(time.Hour)

	if s.IterationCount != 2 {
		t.Fatalf("clone mutation leaked into IterationCount = %d", s.IterationCount)
	}
	if !s.StartedAt.Equal(started) {
		t.Fatalf("clone mutation leaked into StartedAt = %v", s.StartedAt)
	}
}

func TestSessionElapsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	s := &Session{}
	if got := s.Elapsed(now); got != 0 {
		t.Fatalf("Elapsed() with no StartedAt = %v, want 0", got)
	}

	started := now.Add(-12 * time.Minute)
	s.StartedAt = &started
	if got := s.Elapsed(now); got != 12*time.Minute {
		t.Fatalf("Elapsed() = %v, want 12m", got)
	}

	future := now.Add(time.Minute)
	s.StartedAt = &future
	if got := s.Elapsed(now); got != 0 {
		t.Fatalf("Elapsed() with future StartedAt = %v, want 0", got)
	}
}

func TestSessionCanContinue(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	startedAt := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{"fresh cycle", Session{IterationCount: 0, StartedAt: startedAt(time.Minute)}, true},
		{"under both limits", Session{IterationCount: 5, StartedAt: startedAt(29*time.Minute + 59*time.Second)}, true},
		{"iteration limit", Session{IterationCount: MaxIterations, StartedAt: startedAt(time.Minute)}, false},
		{"exactly thirty minutes", Session{IterationCount: 1, StartedAt: startedAt(30 * time.Minute)}, false},
		{"over time limit", Session{IterationCount: 1, StartedAt: startedAt(31 * time.Minute)}, false},
	}

	for _, tt := range tests {
		if got := tt.sess.CanContinue(now); got != tt.want {
			t.Fatalf("%s: CanContinue() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
