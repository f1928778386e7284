// Package taskmodel defines the entities shared by every other component:
// Task, AuthorSignature, ProjectProfile, ASTNode, KnowledgeGraph node/edge
// shapes, TelemetryEvent, CoverageSpectrum, DeliberationResult and
// HandoffProtocol/ExitReport.
// The original ~15-boolean flag bag is modeled here as a tagged-variant
// IntentKind set rather than a struct of booleans, plus a separate
// GitMeta struct for branch/base/title/body.
package taskmodel

import (
	"time"

	"github.com/google/uuid"
)

// Status is a Task's lifecycle state. Transitions are monotonic:
// PENDING -> IN_PROGRESS -> {COMPLETED, FAILED}.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// CanTransitionTo reports whether moving from s to next is monotonic.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCompleted || next == StatusFailed || next == StatusPending
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed || next == StatusInProgress
	case StatusCompleted, StatusFailed:
		return next == s
	default:
		return false
	}
}

// Role enumerates the agent roles.
type Role string

const (
	RoleArchitect        Role = "architect"
	RoleEngineer         Role = "engineer"
	RoleAuditor          Role = "auditor"
	RoleSystem           Role = "system"
	RoleFeatureScout     Role = "feature_scout"
	RoleCodeAuditor      Role = "code_auditor"
	RoleIssueTriage      Role = "issue_triage"
	RoleBranchManager    Role = "branch_manager"
	RoleProjectLifecycle Role = "project_lifecycle"
	RoleGitWriter        Role = "git-writer"
)

// GitRoles is the fixed ordered set C9 dispatches over.
var GitRoles = []Role{RoleFeatureScout, RoleCodeAuditor, RoleIssueTriage, RoleBranchManager, RoleProjectLifecycle}

// IntentKind is one flag from the source's boolean bag, tagged so the
// orchestrator dispatches on a typed set instead of ad hoc field checks.
type IntentKind string

const (
	ContextIntent          IntentKind = "context_needed"
	ConsensusIntent        IntentKind = "requires_consensus"
	DebateIntent           IntentKind = "requires_debate"
	VerifyIntent           IntentKind = "verification_required"
	DebugIntent            IntentKind = "tests_failing"
	GitCommitIntent        IntentKind = "git_commit_ready"
	GitAutoPushIntent      IntentKind = "git_auto_push"
	GitPRIntent            IntentKind = "git_create_pr"
	FeatureScoutIntent     IntentKind = "feature_discovery"
	CodeAuditIntent        IntentKind = "code_audit"
	IssueTriageIntent      IntentKind = "issue_triage_needed"
	BranchManagerIntent    IntentKind = "stacked_update"
	ProjectLifecycleIntent IntentKind = "project_bootstrap"
)

// IntentSet is the tagged-variant replacement for the source's boolean bag.
type IntentSet map[IntentKind]bool

// Has reports whether kind is set.
func (s IntentSet) Has(kind IntentKind) bool { return s != nil && s[kind] }

// Set marks kind as present (or absent, if value is false).
func (s IntentSet) Set(kind IntentKind, value bool) {
	if value {
		s[kind] = true
	} else {
		delete(s, kind)
	}
}

// Clone returns an independent copy.
func (s IntentSet) Clone() IntentSet {
	out := make(IntentSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GitMeta carries the branch/PR metadata the source kept inline on Task.
type GitMeta struct {
	BranchName string `json:"branch_name,omitempty"`
	BaseBranch string `json:"base_branch,omitempty"`
	PRTitle    string `json:"pr_title,omitempty"`
	PRBody     string `json:"pr_body,omitempty"`
}

// MaxFeedbackEntries is the loop-guard threshold: a feedback log
// exceeding this length forces the task to FAILED.
const MaxFeedbackEntries = 20

// Task is the unit of work routed through the orchestrator.
type Task struct {
	ID             string     `json:"id"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	AssignedRole   Role       `json:"assigned_role,omitempty"`
	AssignedWorker string     `json:"assigned_worker,omitempty"`
	DependsOn      []string   `json:"depends_on,omitempty"`
	InputFiles     []string   `json:"input_files,omitempty"`
	OutputFiles    []string   `json:"output_files,omitempty"`
	Intents        IntentSet  `json:"intents"`
	Git            GitMeta    `json:"git"`
	Feedback       []string   `json:"feedback,omitempty"`
	NewIssuesCount int        `json:"new_issues_count,omitempty"`
	TaskType       string     `json:"task_type,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewTask creates a PENDING task with a fresh canonical UUID.
func NewTask(description string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusPending,
		Intents:     make(IntentSet),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AppendFeedback records a short human-readable trail entry.
func (t *Task) AppendFeedback(note string) {
	t.Feedback = append(t.Feedback, note)
	t.UpdatedAt = time.Now().UTC()
}

// LoopDetected reports whether the feedback log has exceeded the guard
// threshold.
func (t *Task) LoopDetected() bool {
	return len(t.Feedback) > MaxFeedbackEntries
}

// AuthorSignature is a single append-only provenance entry.
type AuthorSignature struct {
	AgentID            string    `json:"agent_id"`
	Role               Role      `json:"role"`
	Action             string    `json:"action"`
	ContributingModel  string    `json:"contributing_model,omitempty"`
	Artifact           string    `json:"artifact,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	TaskID             string    `json:"task_id,omitempty"`
}

// ProjectProfile is the durable blackboard state for one session.
type ProjectProfile struct {
	SchemaVersion    int                       `json:"schema_version"`
	Tasks            map[string]*Task          `json:"tasks"`
	ProvenanceLog    []AuthorSignature         `json:"provenance_log"`
	ActiveContext    map[string]string         `json:"active_context"`
	MemoryBank       map[string]string         `json:"memory_bank"`
	WorkerModels     map[string]string         `json:"worker_models"`
	StackFingerprint string                    `json:"stack_fingerprint,omitempty"`
	ToolchainConfig  map[string]string         `json:"toolchain_config,omitempty"`

	// PlanFreeText holds prose the Markdown bridge found between its
	// recognized grammar elements, keyed by the section header it
	// followed ("" for anything before the first header). It has no
	// meaning to the orchestrator; it exists only so Generate can
	// re-emit it and a human editing docs/ai/PLAN.md doesn't lose notes
	// on the next tick.
	PlanFreeText map[string][]string `json:"plan_free_text,omitempty"`
}

// CurrentSchemaVersion is bumped whenever the on-disk shape changes in a
// way that is not backward compatible (see internal/blackboard.Load).
const CurrentSchemaVersion = 1

// NewProfile returns an empty profile with the required worker_models
// default key populated.
func NewProfile() *ProjectProfile {
	return &ProjectProfile{
		SchemaVersion: CurrentSchemaVersion,
		Tasks:         make(map[string]*Task),
		ProvenanceLog: nil,
		ActiveContext: make(map[string]string),
		MemoryBank:    make(map[string]string),
		WorkerModels:  map[string]string{"default": "default"},
	}
}

// AppendProvenance appends a signature, preserving chronological order.
func (p *ProjectProfile) AppendProvenance(sig AuthorSignature) {
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now().UTC()
	}
	p.ProvenanceLog = append(p.ProvenanceLog, sig)
}
