// Package kernel implements C10: the orchestrator kernel that drives one
// task through algorithm dispatch or the classical LLM-worker flow each
// tick, including the git workflow and the
// strict-git completion invariant.
package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/blackboard"
	"github.com/swarmkernel/orchestrator/internal/config"
	"github.com/swarmkernel/orchestrator/internal/consensus"
	"github.com/swarmkernel/orchestrator/internal/errs"
	"github.com/swarmkernel/orchestrator/internal/fault"
	"github.com/swarmkernel/orchestrator/internal/gitadapter"
	"github.com/swarmkernel/orchestrator/internal/gitroles"
	"github.com/swarmkernel/orchestrator/internal/graph"
	"github.com/swarmkernel/orchestrator/internal/health"
	"github.com/swarmkernel/orchestrator/internal/llm"
	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/planbridge"
	"github.com/swarmkernel/orchestrator/internal/pruner"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
	"github.com/swarmkernel/orchestrator/internal/telemetry"
)

// maxLLMRetries is §7's default retry budget for a TransientExternal LLM
// failure before the task is surfaced as FAILED.
const maxLLMRetries = 3

// contextWindowSize is the sliding window of recent provenance entries
// injected into the classical worker prompt.
const contextWindowSize = 10

// handoffRe extracts a structured handoff directive from a worker's
// reasoning trace, e.g. `<handoff_to role="auditor">`.
var handoffRe = regexp.MustCompile(`<handoff_to\s+role="([^"]+)"`)

// Kernel bundles every component C10 composes, constructed once per
// process and shared across every tick of a session.
type Kernel struct {
	Store       *blackboard.Store
	Ledger      *telemetry.Ledger
	Monitor     *health.Monitor
	Pruner      *pruner.Pruner
	gitroles    *gitroles.Dispatcher
	faultRunner *fault.Runner
	verifier    Verifier
	llm         llm.Client
	git         *gitadapter.Adapter
	cfg         *config.Config
	workspace   string
	agentID     string
	log         *zap.Logger

	graph *graph.Graph // nil until built; context_needed dispatch then raises ContractViolation

	consensusEngine *consensus.Engine
	debates         map[string]*consensus.Debate
}

// New constructs a Kernel. graph may be nil (built lazily elsewhere);
// verifier may be nil, in which case StubVerifier is used.
func New(
	store *blackboard.Store,
	ledger *telemetry.Ledger,
	monitor *health.Monitor,
	prune *pruner.Pruner,
	roles *gitroles.Dispatcher,
	faultRunner *fault.Runner,
	verifier Verifier,
	client llm.Client,
	git *gitadapter.Adapter,
	g *graph.Graph,
	cfg *config.Config,
	log *zap.Logger,
) *Kernel {
	if verifier == nil {
		verifier = StubVerifier{}
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Kernel{
		Store: store, Ledger: ledger, Monitor: monitor, Pruner: prune,
		gitroles: roles, faultRunner: faultRunner, verifier: verifier,
		llm: client, git: git, graph: g, cfg: cfg,
		workspace: cfg.Workspace, agentID: "orchestrator",
		log:             logging.For(log, logging.CategoryKernel),
		consensusEngine: consensus.NewEngine(),
		debates:         make(map[string]*consensus.Debate),
	}
}

// SetGraph installs (or replaces) the knowledge graph, e.g. once C4's
// initial build finishes asynchronously at startup.
func (k *Kernel) SetGraph(g *graph.Graph) { k.graph = g }

// ProcessTask runs one tick of the processTask(id) algorithm
// against the named task in session. Only ContractViolation, LockContention,
// and unhandled state-load failures propagate as an error; everything else
// degrades into the task's own feedback log and provenance entries.
func (k *Kernel) ProcessTask(ctx context.Context, session, taskID string) error {
	// Step 1: reload.
	profile, err := k.Store.Load(session)
	if err != nil {
		return err
	}
	k.readPlan(profile)

	task, ok := profile.Tasks[taskID]
	// Step 2.
	if !ok || task.Status == taskmodel.StatusCompleted {
		return nil
	}

	// Step 3: loop guard.
	if task.LoopDetected() {
		task.Status = taskmodel.StatusFailed
		task.AppendFeedback("loop guard: feedback log exceeded 20 entries")
		return k.save(session, profile)
	}

	// Step 4: best-effort prune.
	if k.Pruner != nil {
		profile.ProvenanceLog = k.Pruner.Prune(ctx, profile.ProvenanceLog, task.Description, k.cfg.Pruner.KeepTail, k.cfg.Pruner.KeepRelevant)
	}

	// Step 5: algorithm dispatch.
	handled, err := k.dispatchAlgorithm(ctx, profile, task)
	if err != nil {
		return err
	}
	if !handled {
		// Step 6: classical flow.
		k.classicalFlow(ctx, profile, task)
	}

	// Step 7: save + outbound bridge.
	return k.save(session, profile)
}

func (k *Kernel) save(session string, profile *taskmodel.ProjectProfile) error {
	if err := k.Store.Save(session, profile, k.agentID); err != nil {
		return err
	}
	k.writePlan(profile)
	return nil
}

// writePlan runs C11's outbound Markdown bridge.
// A write failure never blocks task persistence — the blackboard file is
// the durable source of truth, the plan file is a projection of it.
func (k *Kernel) writePlan(profile *taskmodel.ProjectProfile) {
	if k.cfg.Plan.FilePath == "" {
		return
	}
	doc := planbridge.Generate(profile)
	path := k.cfg.Plan.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(k.workspace, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		k.log.Warn("kernel: plan bridge mkdir failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		k.log.Warn("kernel: plan bridge write failed", zap.Error(err))
	}
}

// readPlan runs C11's inbound Markdown bridge: a human editing the plan
// file between ticks has their edits merged into the blackboard before
// dispatch. A missing plan file (first tick, or FilePath unset) is not
// an error — there is simply nothing to reconcile yet.
func (k *Kernel) readPlan(profile *taskmodel.ProjectProfile) {
	if k.cfg.Plan.FilePath == "" {
		return
	}
	path := k.cfg.Plan.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(k.workspace, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			k.log.Warn("kernel: plan bridge read failed", zap.Error(err))
		}
		return
	}
	parsed, freeText := planbridge.Parse(string(data))
	planbridge.MergeInbound(profile, parsed)
	profile.PlanFreeText = freeText
}

// classicalFlow implements the classical LLM-worker flow.
func (k *Kernel) classicalFlow(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) {
	task.Status = taskmodel.StatusInProgress
	window := slidingWindow(profile.ProvenanceLog, contextWindowSize)
	warningTools, blockedTools := k.telemetryAlerts()

	role := selectWorkerRole(task)
	task.AssignedRole = role

	prompt, err := renderWorkerPrompt(task, role, window, warningTools, blockedTools)
	if err != nil {
		task.Status = taskmodel.StatusFailed
		task.AppendFeedback("prompt render failed: " + err.Error())
		return
	}

	resp, model, err := k.dispatchWithRetry(ctx, prompt)
	if err != nil {
		task.Status = taskmodel.StatusFailed
		task.AppendFeedback("llm dispatch failed after retries: " + err.Error())
		profile.AppendProvenance(taskmodel.AuthorSignature{Action: "llm_failed", TaskID: task.ID, Role: role, Artifact: err.Error()})
		return
	}

	if handoffTo := handoffRe.FindStringSubmatch(resp.ReasoningTrace); handoffTo != nil {
		k.createHandoff(profile, task, taskmodel.Role(handoffTo[1]))
		return
	}

	switch resp.Status {
	case llm.StatusSuccess:
		k.completeTask(ctx, profile, task, role, model)
	case llm.StatusNeedsClarification:
		task.Status = taskmodel.StatusPending
		task.AppendFeedback("needs clarification: " + resp.ReasoningTrace)
	default:
		task.Status = taskmodel.StatusFailed
		task.AppendFeedback("worker returned " + string(resp.Status))
		profile.AppendProvenance(taskmodel.AuthorSignature{Action: "task_failed", TaskID: task.ID, Role: role, Artifact: string(resp.Status)})
	}
}

// completeTask implements step 6e, including the strict-git completion
// invariant: a task whose output files were modified may not be marked
// COMPLETED until a commit exists as a provenance entry.
func (k *Kernel) completeTask(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task, role taskmodel.Role, model string) {
	dirty := false
	if len(task.OutputFiles) > 0 && k.cfg.GitFlags.StrictGit && k.git != nil {
		var err error
		dirty, err = k.git.HasUncommittedChanges(ctx)
		if err != nil {
			k.log.Warn("kernel: strict-git status check failed, treating as clean", zap.Error(err))
			dirty = false
		}
	}

	if dirty {
		task.Status = taskmodel.StatusPending
		task.Intents.Set(taskmodel.GitCommitIntent, true)
		task.AppendFeedback("strict-git: commit required before completion")
		return
	}

	profile.AppendProvenance(taskmodel.AuthorSignature{
		Action: "task_completed", TaskID: task.ID, Role: role, ContributingModel: model,
	})
	task.Status = taskmodel.StatusCompleted
}

func (k *Kernel) createHandoff(profile *taskmodel.ProjectProfile, task *taskmodel.Task, to taskmodel.Role) {
	next := taskmodel.NewTask(task.Description)
	next.AssignedRole = to
	next.AssignedWorker = string(to)
	next.InputFiles = task.InputFiles
	next.OutputFiles = task.OutputFiles
	next.Intents = task.Intents.Clone()
	profile.Tasks[next.ID] = next

	task.Status = taskmodel.StatusFailed
	task.AppendFeedback(fmt.Sprintf("handed off to %s as task %s", to, next.ID))
	profile.AppendProvenance(taskmodel.AuthorSignature{Action: "handoff", TaskID: task.ID, Role: to, Artifact: next.ID})
}

// dispatchWithRetry retries a TransientExternal LLM failure up to
// maxLLMRetries times before giving up.
func (k *Kernel) dispatchWithRetry(ctx context.Context, prompt string) (llm.AgentResponse, string, error) {
	model := k.workerModel()
	var lastErr error
	for attempt := 0; attempt <= maxLLMRetries; attempt++ {
		resp, err := llm.Dispatch(ctx, k.llm, workerSystemPrompt, prompt)
		if err == nil {
			return resp, model, nil
		}
		lastErr = err
		k.log.Warn("kernel: llm dispatch failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return llm.AgentResponse{}, model, errs.Wrap(errs.TransientExternal, "kernel.dispatchWithRetry", lastErr)
}

func (k *Kernel) workerModel() string {
	return "default"
}

// telemetryAlerts reports WARNING and TRIPPED tool names over the default
// 24h window. TRIPPED tools are returned
// separately as the BLOCKED_TOOLS list.
func (k *Kernel) telemetryAlerts() (warning, blocked []string) {
	if k.Ledger == nil {
		return nil, nil
	}
	problems, err := k.Ledger.ProblematicTools(0.7, 24*time.Hour)
	if err != nil {
		k.log.Warn("kernel: telemetry alert query failed", zap.Error(err))
		return nil, nil
	}
	for _, p := range problems {
		switch k.Ledger.ToolStatus(p.Tool) {
		case telemetry.StatusTripped:
			blocked = append(blocked, p.Tool)
		case telemetry.StatusWarning:
			warning = append(warning, p.Tool)
		}
	}
	return warning, blocked
}

// selectWorkerRole picks assigned_worker if set, else a keyword heuristic
// over the description.
func selectWorkerRole(task *taskmodel.Task) taskmodel.Role {
	if task.AssignedWorker != "" {
		return taskmodel.Role(task.AssignedWorker)
	}
	if task.AssignedRole != "" {
		return task.AssignedRole
	}
	desc := strings.ToLower(task.Description)
	switch {
	case strings.Contains(desc, "audit") || strings.Contains(desc, "review") || strings.Contains(desc, "security"):
		return taskmodel.RoleAuditor
	case strings.Contains(desc, "design") || strings.Contains(desc, "architecture") || strings.Contains(desc, "plan"):
		return taskmodel.RoleArchitect
	default:
		return taskmodel.RoleEngineer
	}
}

// slidingWindow formats the last n provenance entries as short strings.
func slidingWindow(log []taskmodel.AuthorSignature, n int) []string {
	if len(log) > n {
		log = log[len(log)-n:]
	}
	out := make([]string, 0, len(log))
	for _, sig := range log {
		out = append(out, fmt.Sprintf("%s %s: %s", sig.TaskID, sig.Action, sig.Artifact))
	}
	return out
}
