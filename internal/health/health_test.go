package health

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
	"github.com/swarmkernel/orchestrator/internal/telemetry"
)

func openTestMonitor(t *testing.T) (*Monitor, *telemetry.Ledger) {
	t.Helper()
	l, err := telemetry.Open(filepath.Join(t.TempDir(), "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("telemetry.Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	m, err := NewMonitor(l, nil)
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return m, l
}

func appendToolEvents(l *telemetry.Ledger, tool string, successes, failures int) {
	for i := 0; i < successes; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.NewString(), Timestamp: time.Now(), Type: taskmodel.EventToolUse, Tool: tool, Success: true})
	}
	for i := 0; i < failures; i++ {
		l.Append(taskmodel.TelemetryEvent{ID: uuid.NewString(), Timestamp: time.Now(), Type: taskmodel.EventToolUse, Tool: tool, Success: false})
	}
}

func TestCheckHealthHealthyWithNoProblems(t *testing.T) {
	m, _ := openTestMonitor(t)
	report, err := m.CheckHealth()
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if report.Status != StatusHealthy {
		t.Fatalf("expected HEALTHY, got %v", report.Status)
	}
}

func TestCheckHealthDegradedWithOneProblematicTool(t *testing.T) {
	m, l := openTestMonitor(t)
	appendToolEvents(l, "flaky_tool", 2, 8) // rate 0.2, 10 attempts > 5

	report, err := m.CheckHealth()
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Fatalf("expected DEGRADED with a single problematic tool, got %v", report.Status)
	}
	if len(report.ProblematicTools) != 1 || report.ProblematicTools[0].Tool != "flaky_tool" {
		t.Fatalf("expected flaky_tool reported as problematic, got %+v", report.ProblematicTools)
	}
	if report.RecommendedActions["flaky_tool"] != "skip_tool" {
		t.Fatalf("expected skip_tool for a TRIPPED (rate<0.3) tool, got %q", report.RecommendedActions["flaky_tool"])
	}
}

func TestCheckHealthCriticalWithThreeProblematicTools(t *testing.T) {
	m, l := openTestMonitor(t)
	appendToolEvents(l, "tool_a", 1, 9)
	appendToolEvents(l, "tool_b", 1, 9)
	appendToolEvents(l, "tool_c", 1, 9)

	report, err := m.CheckHealth()
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if report.Status != StatusCritical {
		t.Fatalf("expected CRITICAL with 3 problematic tools, got %v", report.Status)
	}
}

func TestCheckHealthWarningToolRecommendsRetry(t *testing.T) {
	m, l := openTestMonitor(t)
	// rate 0.5: below 0.7 problematic threshold, above 0.3 tripped threshold -> WARNING
	appendToolEvents(l, "sometimes_flaky", 5, 5)

	report, err := m.CheckHealth()
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if report.RecommendedActions["sometimes_flaky"] != "retry_with_backoff" {
		t.Fatalf("expected retry_with_backoff for a WARNING tool, got %q", report.RecommendedActions["sometimes_flaky"])
	}
}

func TestShouldSkipRoleBelowHardThreshold(t *testing.T) {
	m, l := openTestMonitor(t)
	for i := 0; i < 10; i++ {
		l.Append(taskmodel.TelemetryEvent{
			ID: uuid.NewString(), Timestamp: time.Now(), Type: taskmodel.EventTaskRouting,
			Role: taskmodel.RoleFeatureScout, Success: false, DurationMS: 100,
		})
	}
	if !m.ShouldSkipRole(taskmodel.RoleFeatureScout) {
		t.Fatalf("expected ShouldSkipRole true for an all-failing role (PI well below 0.3)")
	}
}

func TestShouldSkipRoleDefaultsOptimisticForUnknownRole(t *testing.T) {
	m, _ := openTestMonitor(t)
	if m.ShouldSkipRole(taskmodel.RoleAuditor) {
		t.Fatalf("expected ShouldSkipRole false when no events exist (optimistic default PI=1.0)")
	}
}

func TestRecordFailureIncrementsCountAndRecordSuccessResets(t *testing.T) {
	m, _ := openTestMonitor(t)
	m.RecordFailure("git_push", errors.New("network timeout"))
	m.RecordFailure("git_push", errors.New("network timeout"))
	if got := m.FailureCount("git_push"); got != 2 {
		t.Fatalf("expected failure count 2, got %d", got)
	}
	m.RecordSuccess("git_push")
	if got := m.FailureCount("git_push"); got != 0 {
		t.Fatalf("expected failure count reset to 0 after success, got %d", got)
	}
}

func TestChronicPatternRecommendsCreateIssue(t *testing.T) {
	m, l := openTestMonitor(t)
	for i := 0; i < 4; i++ {
		l.Append(taskmodel.TelemetryEvent{
			ID: uuid.NewString(), Timestamp: time.Now(), Type: taskmodel.EventError,
			Tool: "build", Success: false, ErrorCategory: "compile_error",
		})
	}
	report, err := m.CheckHealth()
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if report.RecommendedActions["compile_error"] != "create_issue" {
		t.Fatalf("expected create_issue for a chronic failure pattern, got %q", report.RecommendedActions["compile_error"])
	}
}
