package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSuccessRateDefaultsOptimistic(t *testing.T) {
	l := openTestLedger(t)
	if got := l.SuccessRate("nonexistent_tool", 24*time.Hour); got != 1.0 {
		t.Fatalf("expected optimistic default 1.0, got %v", got)
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	l := openTestLedger(t)
	id := uuid.New().String()
	ev := taskmodel.TelemetryEvent{
		ID: id, Timestamp: time.Now(), Type: taskmodel.EventToolUse,
		Tool: "git_commit", Success: true, DurationMS: 100,
	}
	l.Append(ev)
	l.Append(ev) // redelivery with same id

	rows, err := l.queryToolEvents("git_commit", 24*time.Hour)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one stored row after redelivery, got %d", len(rows))
	}
}

func TestToolStatusThresholds(t *testing.T) {
	l := openTestLedger(t)
	// 2 successes, 8 failures -> rate 0.2 -> TRIPPED
	for i := 0; i < 2; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.New().String(), Timestamp: time.Now(), Type: taskmodel.EventToolUse, Tool: "flaky", Success: true})
	}
	for i := 0; i < 8; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.New().String(), Timestamp: time.Now(), Type: taskmodel.EventToolUse, Tool: "flaky", Success: false})
	}
	if got := l.ToolStatus("flaky"); got != StatusTripped {
		t.Fatalf("expected TRIPPED, got %v", got)
	}
}

func TestProblematicToolsRequiresMinimumAttempts(t *testing.T) {
	l := openTestLedger(t)
	for i := 0; i < 3; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.New().String(), Timestamp: time.Now(), Type: taskmodel.EventToolUse, Tool: "rare", Success: false})
	}
	tools, err := l.ProblematicTools(0.7, 24*time.Hour)
	if err != nil {
		t.Fatalf("ProblematicTools: %v", err)
	}
	for _, pt := range tools {
		if pt.Tool == "rare" {
			t.Fatalf("tool with only 3 attempts should not qualify as problematic")
		}
	}
}

func TestChronicFailurePatternsRanksByFrequency(t *testing.T) {
	l := openTestLedger(t)
	for i := 0; i < 5; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.New().String(), Timestamp: time.Now(), Type: taskmodel.EventError, Tool: "build", Success: false, ErrorCategory: "compile_error"})
	}
	for i := 0; i < 2; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.New().String(), Timestamp: time.Now(), Type: taskmodel.EventError, Tool: "test", Success: false, ErrorCategory: "flaky_assertion"})
	}
	l.Append(taskmodel.TelemetryEvent{ID: uuid.New().String(), Timestamp: time.Now(), Type: taskmodel.EventToolUse, Tool: "build", Success: true})

	patterns, err := l.ChronicFailurePatterns(24*time.Hour, 3)
	if err != nil {
		t.Fatalf("ChronicFailurePatterns: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %+v", patterns)
	}
	if patterns[0].ErrorCategory != "compile_error" || patterns[0].Count != 5 {
		t.Fatalf("expected compile_error (5) ranked first, got %+v", patterns[0])
	}
}
