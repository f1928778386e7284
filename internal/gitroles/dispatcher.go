// Package gitroles implements C9: the fixed set of autonomous git-workflow
// roles and the dispatcher that invokes them in performance-weighted order.
// It follows an interface-plus-ordered-loop shape: each role satisfies a
// single Execute method, and the dispatcher walks a fixed roster gated by
// C8 health rather than routing on a single intent.
package gitroles

import (
	"time"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/graph"
	"github.com/swarmkernel/orchestrator/internal/health"
	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// Context is the ambient dispatch context passed to every role's
// TriggerCheck/Execute, carrying signals that live outside the Task/
// ProjectProfile schema.
type Context struct {
	PRApproved    bool
	CIPassed      bool
	PeriodicScout bool
	PeriodicAudit bool
	GitHubReady   bool

	// Graph is C4's knowledge graph, used by featureScout to find
	// zero-out-degree nodes. Nil until the initial build finishes.
	Graph *graph.Graph
	// Workspace is the repository root featureScout/codeAuditor scan.
	Workspace string
}

// Role is one autonomous git-workflow role.
type Role interface {
	Name() taskmodel.Role
	TriggerCheck(task *taskmodel.Task, ctx Context) bool
	Execute(task *taskmodel.Task, ctx Context) taskmodel.ExitReport
}

// Dispatcher holds the fixed roster and invokes triggered roles in
// performanceIndex-descending order, gated by C8's circuit breaker.
type Dispatcher struct {
	roles   []Role
	monitor *health.Monitor
	log     *zap.Logger
}

// New constructs a Dispatcher over the default roster (feature_scout,
// code_auditor, issue_triage, branch_manager, project_lifecycle).
func New(monitor *health.Monitor, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = logging.NewNop()
	}
	return &Dispatcher{
		roles: []Role{
			&featureScout{},
			&codeAuditor{},
			&issueTriage{},
			&branchManager{},
			&projectLifecycle{},
		},
		monitor: monitor,
		log:     logging.For(log, logging.CategoryGitRoles),
	}
}

// Dispatch snapshots health, orders the roster by performanceIndex
// descending, and for every role whose trigger fires either skips it
// (circuit breaker tripped) or executes it, recording the outcome to C8
// and to the profile's provenance log.
func (d *Dispatcher) Dispatch(profile *taskmodel.ProjectProfile, task *taskmodel.Task, ctx Context) ([]taskmodel.ExitReport, error) {
	if _, err := d.monitor.CheckHealth(); err != nil {
		return nil, err
	}

	ordered := d.orderByPerformance()

	var reports []taskmodel.ExitReport
	for _, r := range ordered {
		if !r.TriggerCheck(task, ctx) {
			continue
		}

		roleName := r.Name()
		if d.monitor.ShouldSkipRole(roleName) {
			report := taskmodel.ExitReport{
				TaskID:   task.ID,
				Status:   taskmodel.HandoffSkipped,
				Warnings: []string{"circuit breaker"},
			}
			d.record(profile, task, roleName, report)
			reports = append(reports, report)
			continue
		}

		report := d.runSafely(r, task, ctx)
		if report.Status == taskmodel.HandoffFailed {
			d.monitor.RecordFailure(string(roleName), failureCause(report))
		} else {
			d.monitor.RecordSuccess(string(roleName))
		}
		d.record(profile, task, roleName, report)
		reports = append(reports, report)
	}

	return reports, nil
}

// orderByPerformance sorts the fixed roster by taskmodel.GitRoles'
// performanceIndex descending. Ties keep roster
// order (stable sort), matching the fixed-order tie-break used elsewhere
// in this system (e.g. C6's first-encountered tie-break).
func (d *Dispatcher) orderByPerformance() []Role {
	ordered := make([]Role, len(d.roles))
	copy(ordered, d.roles)

	pi := make(map[taskmodel.Role]float64, len(ordered))
	for _, r := range ordered {
		pi[r.Name()] = d.monitor.RolePerformanceIndex(r.Name())
	}

	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && pi[ordered[j].Name()] > pi[ordered[j-1].Name()]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// runSafely executes a role's Execute, converting a panic into a FAILED
// ExitReport rather than propagating it.
func (d *Dispatcher) runSafely(r Role, task *taskmodel.Task, ctx Context) (report taskmodel.ExitReport) {
	defer func() {
		if rec := recover(); rec != nil {
			report = taskmodel.ExitReport{
				TaskID:   task.ID,
				Status:   taskmodel.HandoffFailed,
				Warnings: []string{"panic: " + toString(rec)},
			}
		}
	}()
	return r.Execute(task, ctx)
}

func (d *Dispatcher) record(profile *taskmodel.ProjectProfile, task *taskmodel.Task, role taskmodel.Role, report taskmodel.ExitReport) {
	profile.ProvenanceLog = append(profile.ProvenanceLog, taskmodel.AuthorSignature{
		AgentID:   string(role),
		Role:      role,
		Action:    "git_role_" + string(report.Status),
		Artifact:  report.Branch,
		Timestamp: time.Now().UTC(),
		TaskID:    task.ID,
	})
	d.log.Debug("gitroles: dispatched", zap.String("role", string(role)), zap.String("status", string(report.Status)))
}

func failureCause(report taskmodel.ExitReport) error {
	if len(report.Warnings) == 0 {
		return nil
	}
	return errString(report.Warnings[len(report.Warnings)-1])
}

type errString string

func (e errString) Error() string { return string(e) }

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
