package kernel

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/gitroles"
	"github.com/swarmkernel/orchestrator/internal/llm"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// allowedCommitTools is the subset of tool calls a commit-message/PR LLM
// response is permitted to request.
var allowedCommitTools = map[string]bool{
	"git_add":     true,
	"git_commit":  true,
	"git_push":    true,
	"run_command": true,
}

// runGitWorkflow drives the git-role handoff flow. A role-triggered task delegates
// to C9 and returns; otherwise it runs the Branch/Commit/Push/PR steps in
// order, wrapping every subprocess/LLM call so a failure degrades to a
// `git_error` provenance entry and the workflow continues.
func (k *Kernel) runGitWorkflow(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) (bool, error) {
	if roleTriggered(task) {
		if _, err := k.gitroles.Dispatch(profile, task, k.gitRoleContext(profile)); err != nil {
			return false, err
		}
		return true, nil
	}

	k.branchStep(ctx, profile, task)
	k.commitStep(ctx, profile, task)
	k.pushStep(ctx, profile, task)
	k.prStep(ctx, profile, task)
	return true, nil
}

func roleTriggered(task *taskmodel.Task) bool {
	for _, kind := range []taskmodel.IntentKind{
		taskmodel.FeatureScoutIntent, taskmodel.CodeAuditIntent, taskmodel.IssueTriageIntent,
		taskmodel.BranchManagerIntent, taskmodel.ProjectLifecycleIntent,
	} {
		if task.Intents.Has(kind) {
			return true
		}
	}
	return false
}

func (k *Kernel) gitRoleContext(profile *taskmodel.ProjectProfile) gitroles.Context {
	return gitroles.Context{
		PRApproved:    profile.ActiveContext["pr_approved"] == "true",
		CIPassed:      profile.ActiveContext["ci_passed"] == "true",
		PeriodicScout: profile.ActiveContext["periodic_scout"] == "true",
		PeriodicAudit: profile.ActiveContext["periodic_audit"] == "true",
		GitHubReady:   k.cfg.GitFlags.GitHubToken != "",
		Graph:         k.graph,
		Workspace:     k.workspace,
	}
}

func gitError(profile *taskmodel.ProjectProfile, task *taskmodel.Task, op string, err error) {
	profile.AppendProvenance(taskmodel.AuthorSignature{
		Action: "git_error", TaskID: task.ID, Artifact: fmt.Sprintf("%s: %v", op, err),
	})
}

func (k *Kernel) branchStep(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) {
	branch := task.Git.BranchName
	if branch == "" || seenInFeedback(task, "branch:"+branch) {
		return
	}
	if _, err := k.git.CreateBranch(ctx, branch); err != nil {
		gitError(profile, task, "create_branch", err)
		return
	}
	task.AppendFeedback("branch:" + branch)
	profile.AppendProvenance(taskmodel.AuthorSignature{Action: "git_branch", TaskID: task.ID, Artifact: branch})
}

func (k *Kernel) commitStep(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) {
	if !task.Intents.Has(taskmodel.GitCommitIntent) {
		return
	}
	dirty, err := k.git.HasUncommittedChanges(ctx)
	if err != nil {
		gitError(profile, task, "status", err)
		return
	}
	if !dirty {
		return
	}

	push := task.Intents.Has(taskmodel.GitAutoPushIntent) || task.Intents.Has(taskmodel.GitPRIntent)
	prompt, err := renderCommitPrompt(task, push)
	if err != nil {
		gitError(profile, task, "render_commit_prompt", err)
		return
	}
	resp, err := llm.Dispatch(ctx, k.llm, workerSystemPrompt, prompt)
	if err != nil {
		gitError(profile, task, "commit_llm", err)
		return
	}

	for _, call := range resp.ToolCalls {
		k.executeGitToolCall(ctx, profile, task, call)
	}

	k.settleStrictGit(ctx, profile, task)
}

// settleStrictGit completes the strict-git completion invariant once the
// workspace is clean: a task that was reverted to PENDING with
// git_commit_ready=true transitions to
// COMPLETED, with task_completed recorded, only once the commit it was
// waiting on actually lands.
func (k *Kernel) settleStrictGit(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) {
	if task.Status != taskmodel.StatusPending {
		return
	}
	stillDirty, err := k.git.HasUncommittedChanges(ctx)
	if err != nil || stillDirty {
		return
	}
	task.Intents.Set(taskmodel.GitCommitIntent, false)
	task.Status = taskmodel.StatusCompleted
	profile.AppendProvenance(taskmodel.AuthorSignature{
		Action: "task_completed", TaskID: task.ID, Role: task.AssignedRole,
	})
}

func (k *Kernel) executeGitToolCall(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task, call llm.ToolCall) {
	if !allowedCommitTools[call.Name] {
		gitError(profile, task, call.Name, fmt.Errorf("tool call not permitted"))
		return
	}

	var err error
	switch call.Name {
	case "git_add":
		_, err = k.git.GitAdd(ctx, strings.Fields(call.Args["files"]))
	case "git_commit":
		_, err = k.git.GitCommit(ctx, call.Args["message"])
		if err == nil {
			profile.AppendProvenance(taskmodel.AuthorSignature{Action: "git_commit", TaskID: task.ID, Artifact: call.Args["message"]})
		}
	case "git_push":
		remote, branch := call.Args["remote"], call.Args["branch"]
		if remote == "" {
			remote = "origin"
		}
		if branch == "" {
			branch = task.Git.BranchName
		}
		_, err = k.git.GitPush(ctx, remote, branch)
	case "run_command":
		_, err = k.git.RunCommand(ctx, strings.Fields(call.Args["command"]))
	}
	if err != nil {
		gitError(profile, task, call.Name, err)
	}
}

func (k *Kernel) pushStep(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) {
	if !(task.Intents.Has(taskmodel.GitAutoPushIntent) || task.Intents.Has(taskmodel.GitPRIntent)) {
		return
	}
	if task.Git.BranchName == "" {
		return
	}
	dirty, err := k.git.HasUncommittedChanges(ctx)
	if err != nil {
		gitError(profile, task, "status", err)
		return
	}
	if dirty {
		return
	}
	if _, err := k.git.GitPush(ctx, "origin", task.Git.BranchName); err != nil {
		gitError(profile, task, "push", err)
		return
	}
	profile.AppendProvenance(taskmodel.AuthorSignature{Action: "git_push", TaskID: task.ID, Artifact: task.Git.BranchName})
}

func (k *Kernel) prStep(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) {
	autoPR := task.Status == taskmodel.StatusCompleted && task.Git.BranchName != "" && k.cfg.GitFlags.GitHubToken != ""
	if !(task.Intents.Has(taskmodel.GitPRIntent) || autoPR) {
		return
	}
	if k.cfg.GitFlags.GitHubToken == "" {
		profile.AppendProvenance(taskmodel.AuthorSignature{Action: "git_pr_blocked", TaskID: task.ID, Artifact: "GITHUB_TOKEN not set"})
		return
	}
	prompt, err := renderPRPrompt(task)
	if err != nil {
		gitError(profile, task, "render_pr_prompt", err)
		return
	}
	resp, err := llm.Dispatch(ctx, k.llm, workerSystemPrompt, prompt)
	if err != nil {
		gitError(profile, task, "pr_llm", err)
		return
	}
	profile.AppendProvenance(taskmodel.AuthorSignature{Action: "git_pr", TaskID: task.ID, Artifact: resp.ReasoningTrace})
	k.log.Info("kernel: PR drafted", zap.String("task_id", task.ID))
}

func seenInFeedback(task *taskmodel.Task, marker string) bool {
	for _, f := range task.Feedback {
		if f == marker {
			return true
		}
	}
	return false
}
