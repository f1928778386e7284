package gitroles

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swarmkernel/orchestrator/internal/health"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
	"github.com/swarmkernel/orchestrator/internal/telemetry"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *telemetry.Ledger) {
	t.Helper()
	l, err := telemetry.Open(filepath.Join(t.TempDir(), "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("telemetry.Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	m, err := health.NewMonitor(l, nil)
	if err != nil {
		t.Fatalf("health.NewMonitor: %v", err)
	}
	return New(m, nil), l
}

func TestFeatureScoutTriggersOnIntentOrPeriodic(t *testing.T) {
	r := featureScout{}
	task := taskmodel.NewTask("scan for features")
	if r.TriggerCheck(task, Context{}) {
		t.Fatalf("expected no trigger without intent or periodic flag")
	}
	task.Intents.Set(taskmodel.FeatureScoutIntent, true)
	if !r.TriggerCheck(task, Context{}) {
		t.Fatalf("expected trigger on feature_discovery intent")
	}
	task2 := taskmodel.NewTask("periodic scan")
	if !r.TriggerCheck(task2, Context{PeriodicScout: true}) {
		t.Fatalf("expected trigger on periodic scout flag")
	}
}

func TestBranchManagerTriggersOnApprovalAndCI(t *testing.T) {
	r := branchManager{}
	task := taskmodel.NewTask("ship stacked branch")
	if r.TriggerCheck(task, Context{PRApproved: true, CIPassed: false}) {
		t.Fatalf("expected no trigger when CI has not passed")
	}
	if !r.TriggerCheck(task, Context{PRApproved: true, CIPassed: true}) {
		t.Fatalf("expected trigger on approval+CI pass")
	}
	task2 := taskmodel.NewTask("stacked update")
	task2.Intents.Set(taskmodel.BranchManagerIntent, true)
	if !r.TriggerCheck(task2, Context{}) {
		t.Fatalf("expected trigger on stacked_update intent alone")
	}
}

func TestIssueTriageTriggersOnNewIssuesCount(t *testing.T) {
	r := issueTriage{}
	task := taskmodel.NewTask("triage")
	task.NewIssuesCount = 3
	if !r.TriggerCheck(task, Context{}) {
		t.Fatalf("expected trigger on non-zero new_issues_count")
	}
}

func TestDispatchSkipsCircuitBrokenRole(t *testing.T) {
	d, l := newTestDispatcher(t)
	// Drive feature_scout's role-performance index below the hard skip
	// threshold (0.3) with 20 failing task_routing events.
	for i := 0; i < 20; i++ {
		l.Append(taskmodel.TelemetryEvent{
			ID: "fs-fail-" + strconv.Itoa(i), Timestamp: time.Now(), Type: taskmodel.EventTaskRouting,
			Role: taskmodel.RoleFeatureScout, Success: false, DurationMS: 5000,
		})
	}

	profile := taskmodel.NewProfile()
	task := taskmodel.NewTask("scan")
	task.Intents.Set(taskmodel.FeatureScoutIntent, true)

	reports, err := d.Dispatch(profile, task, Context{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected exactly 1 report (only feature_scout triggered), got %d", len(reports))
	}
	if reports[0].Status != taskmodel.HandoffSkipped {
		t.Fatalf("expected SKIPPED due to circuit breaker, got %v", reports[0])
	}
	if len(profile.ProvenanceLog) != 1 {
		t.Fatalf("expected 1 provenance entry recorded, got %d", len(profile.ProvenanceLog))
	}
}

func TestFeatureScoutFindsTODOComments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handler.go"), []byte("package x\n\n// TODO: validate input before dispatch\nfunc f() {}\n"), 0o644))

	task := taskmodel.NewTask("scout")
	report := featureScout{}.Execute(task, Context{Workspace: dir})

	require.Equal(t, taskmodel.HandoffCompleted, report.Status)
	require.Contains(t, report.RemainingWork, "TODO in handler.go")
	require.Contains(t, report.FilesTouched, "handler.go")
}

func TestCodeAuditorFlagsHardcodedSecretAndTODO(t *testing.T) {
	dir := t.TempDir()
	content := "package x\n\napiKey := \"sk-abc123\"\napi_key = \"sk-abc123\"\n// TODO: rotate this\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.go"), []byte(content), 0o644))

	task := taskmodel.NewTask("audit")
	task.OutputFiles = []string{"config.go"}
	report := codeAuditor{}.Execute(task, Context{Workspace: dir})

	require.Equal(t, taskmodel.HandoffCompleted, report.Status)
	require.True(t, strings.Contains(report.RemainingWork, "1 critical"), "expected the hardcoded API key to be flagged critical, got %q", report.RemainingWork)
}

func TestDispatchExecutesTriggeredRole(t *testing.T) {
	d, _ := newTestDispatcher(t)
	profile := taskmodel.NewProfile()
	task := taskmodel.NewTask("triage issues")
	task.NewIssuesCount = 1

	reports, err := d.Dispatch(profile, task, Context{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(reports) != 1 || reports[0].Status != taskmodel.HandoffCompleted {
		t.Fatalf("expected 1 COMPLETED report for issue_triage, got %+v", reports)
	}
}
