package observability

import "testing"

func TestTurnStageWindowSnapshot(t *testing.T) {
	w := newTurnStageWindow(8)
	w.Observe("commit", 20)
	w.Observe("commit", 40)
	w.Observe("commit", 60)
	w.ObserveIndicator("soft_limit_warned")
	w.ObserveIndicator("soft_limit_warned")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "commit" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "commit")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 60 {
		t.Fatalf("LastMS = %.2f, want 60", s.LastMS)
	}
	if s.P50MS != 40 {
		t.Fatalf("P50MS = %.2f, want 40", s.P50MS)
	}
	if s.P95MS <= 40 || s.P95MS > 60 {
		t.Fatalf("P95MS = %.2f, want (40,60]", s.P95MS)
	}
	if s.TargetP95MS != 150 {
		t.Fatalf("TargetP95MS = %.2f, want 150", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "soft_limit_warned" {
		t.Fatalf("Indicators[0].Name = %q, want %q", snap.Indicators[0].Name, "soft_limit_warned")
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want %d", snap.Indicators[0].Count, 2)
	}
}

func TestTurnStageWindowWraps(t *testing.T) {
	w := newTurnStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("assess", float64(i))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("Samples = %d, want 4 after wrap", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 9 {
		t.Fatalf("LastMS = %.2f, want 9", snap.Stages[0].LastMS)
	}
}

func TestTurnStageWindowReset(t *testing.T) {
	w := newTurnStageWindow(8)
	w.Observe("turn_total", 100)
	w.ObserveIndicator("integration_cause_time_limit")
	w.Reset()

	snap := w.Snapshot()
	if len(snap.Stages) != 0 {
		t.Fatalf("len(Stages) = %d after reset, want 0", len(snap.Stages))
	}
	if len(snap.Indicators) != 0 {
		t.Fatalf("len(Indicators) = %d after reset, want 0", len(snap.Indicators))
	}
}
