package kernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/swarmkernel/orchestrator/internal/blackboard"
	"github.com/swarmkernel/orchestrator/internal/config"
	"github.com/swarmkernel/orchestrator/internal/fault"
	"github.com/swarmkernel/orchestrator/internal/gitadapter"
	"github.com/swarmkernel/orchestrator/internal/gitroles"
	"github.com/swarmkernel/orchestrator/internal/health"
	"github.com/swarmkernel/orchestrator/internal/pruner"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
	"github.com/swarmkernel/orchestrator/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// fakeClient replays a scripted sequence of raw LLM responses and counts
// how many times it was called, so tests can assert "no LLM call was
// issued".
type fakeClient struct {
	responses []string
	calls     int
}

func (f *fakeClient) Complete(_ context.Context, _ string) (string, error) {
	return f.CompleteWithSystem(context.Background(), "", "")
}

func (f *fakeClient) CompleteWithSystem(_ context.Context, _, _ string) (string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	return f.responses[i], nil
}

func newTestKernel(t *testing.T, dir string, client *fakeClient) (*Kernel, *blackboard.Store) {
	t.Helper()

	// State files live outside the git workspace so they never count as
	// uncommitted changes for the strict-git check.
	state := t.TempDir()
	ledger, err := telemetry.Open(filepath.Join(state, "telemetry.db"), nil)
	if err != nil {
		t.Fatalf("telemetry.Open: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	monitor, err := health.NewMonitor(ledger, nil)
	if err != nil {
		t.Fatalf("health.NewMonitor: %v", err)
	}

	store := blackboard.New(filepath.Join(state, "blackboard.json"), 0, 0)
	prune := pruner.New(pruner.KeywordEmbedder{}, nil)
	roles := gitroles.New(monitor, nil)
	runner := fault.NewRunner(fault.NoOpCollector{}, 0, nil)
	git := gitadapter.New(dir, 0, nil)

	cfg := config.Default()
	cfg.Workspace = dir
	cfg.Plan.FilePath = filepath.Join(state, "PLAN.md")
	cfg.GitFlags.StrictGit = true

	return New(store, ledger, monitor, prune, roles, runner, nil, client, git, nil, cfg, nil), store
}

func initRepo(t *testing.T, dir string) *gitadapter.Adapter {
	t.Helper()
	git := gitadapter.New(dir, 0, nil)
	ctx := context.Background()
	if _, err := git.RunCommand(ctx, []string{"git", "init"}); err != nil {
		t.Fatalf("git init: %v", err)
	}
	if _, err := git.RunCommand(ctx, []string{"git", "config", "user.email", "test@example.com"}); err != nil {
		t.Fatalf("git config email: %v", err)
	}
	if _, err := git.RunCommand(ctx, []string{"git", "config", "user.name", "Test"}); err != nil {
		t.Fatalf("git config name: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("seed"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if _, err := git.RunCommand(ctx, []string{"git", "add", "README.md"}); err != nil {
		t.Fatalf("git add: %v", err)
	}
	if _, err := git.RunCommand(ctx, []string{"git", "commit", "-m", "seed"}); err != nil {
		t.Fatalf("git commit: %v", err)
	}
	return git
}

func TestLoopGuardFailsTaskWithoutDispatch(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	client := &fakeClient{responses: []string{`{"status":"SUCCESS","validation_score":1}`}}
	k, store := newTestKernel(t, dir, client)

	profile := taskmodel.NewProfile()
	task := taskmodel.NewTask("do the thing")
	for i := 0; i < 21; i++ {
		task.AppendFeedback("note")
	}
	profile.Tasks[task.ID] = task
	require.NoError(t, store.Save("s1", profile, "test"))

	require.NoError(t, k.ProcessTask(context.Background(), "s1", task.ID))

	reloaded, err := store.Load("s1")
	require.NoError(t, err)
	got := reloaded.Tasks[task.ID]
	require.Equal(t, taskmodel.StatusFailed, got.Status)
	require.Len(t, got.Feedback, 22, "expected exactly one new feedback entry")
	require.Zero(t, client.calls, "expected no LLM call")
}

func TestStrictGitInvariantDefersCompletionUntilCommitted(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	client := &fakeClient{responses: []string{
		`{"status":"SUCCESS","validation_score":1}`,
		`{"status":"SUCCESS","validation_score":1,"tool_calls":[{"name":"git_add","args":{"files":"x.py"}},{"name":"git_commit","args":{"message":"implement x"}}]}`,
	}}
	k, store := newTestKernel(t, dir, client)

	profile := taskmodel.NewProfile()
	task := taskmodel.NewTask("implement x.py")
	task.OutputFiles = []string{"x.py"}
	profile.Tasks[task.ID] = task
	if err := store.Save("s2", profile, "test"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "x.py"), []byte("print(1)\n"), 0o644); err != nil {
		t.Fatalf("write x.py: %v", err)
	}

	if err := k.ProcessTask(context.Background(), "s2", task.ID); err != nil {
		t.Fatalf("tick 1 ProcessTask: %v", err)
	}
	afterTick1, err := store.Load("s2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t1 := afterTick1.Tasks[task.ID]
	if t1.Status != taskmodel.StatusPending {
		t.Fatalf("expected PENDING after tick 1, got %s", t1.Status)
	}
	if !t1.Intents.Has(taskmodel.GitCommitIntent) {
		t.Fatalf("expected git_commit_ready=true after tick 1")
	}
	for _, sig := range afterTick1.ProvenanceLog {
		if sig.Action == "task_completed" {
			t.Fatalf("did not expect task_completed provenance after tick 1")
		}
	}

	if err := k.ProcessTask(context.Background(), "s2", task.ID); err != nil {
		t.Fatalf("tick 2 ProcessTask: %v", err)
	}
	afterTick2, err := store.Load("s2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t2 := afterTick2.Tasks[task.ID]
	if t2.Status != taskmodel.StatusCompleted {
		t.Fatalf("expected COMPLETED after tick 2, got %s", t2.Status)
	}
	var sawCommit, sawCompleted bool
	for _, sig := range afterTick2.ProvenanceLog {
		if sig.Action == "git_commit" {
			sawCommit = true
		}
		if sig.Action == "task_completed" {
			sawCompleted = true
		}
	}
	if !sawCommit || !sawCompleted {
		t.Fatalf("expected both git_commit and task_completed provenance entries, got %+v", afterTick2.ProvenanceLog)
	}
}

func TestContextDispatchWithoutGraphIsContractViolation(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)
	client := &fakeClient{responses: []string{`{"status":"SUCCESS","validation_score":1}`}}
	k, store := newTestKernel(t, dir, client)

	profile := taskmodel.NewProfile()
	task := taskmodel.NewTask("needs context")
	task.Intents.Set(taskmodel.ContextIntent, true)
	profile.Tasks[task.ID] = task
	if err := store.Save("s3", profile, "test"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := k.ProcessTask(context.Background(), "s3", task.ID); err == nil {
		t.Fatalf("expected a contract-violation error when the graph is not built")
	}
}
