package taskmodel

import "testing"

func TestStatusTransitionsMonotonic(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusCompleted, StatusPending, false},
		{StatusFailed, StatusInProgress, false},
		{StatusPending, StatusFailed, true},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestLoopGuard(t *testing.T) {
	task := NewTask("do the thing")
	for i := 0; i < MaxFeedbackEntries; i++ {
		task.AppendFeedback("note")
	}
	if task.LoopDetected() {
		t.Fatalf("expected no loop at exactly the threshold")
	}
	task.AppendFeedback("one more")
	if !task.LoopDetected() {
		t.Fatalf("expected loop detected beyond threshold")
	}
}

func TestIntentSet(t *testing.T) {
	s := make(IntentSet)
	s.Set(ContextIntent, true)
	if !s.Has(ContextIntent) {
		t.Fatalf("expected ContextIntent set")
	}
	s.Set(ContextIntent, false)
	if s.Has(ContextIntent) {
		t.Fatalf("expected ContextIntent cleared")
	}
}
