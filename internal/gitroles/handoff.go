package gitroles

import (
	"strings"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// NewHandoff builds a HandoffProtocol message from one role to another for
// a given task, carrying a status and free-form context.
func NewHandoff(from, to taskmodel.Role, taskID string, status taskmodel.HandoffStatus, notes string, context map[string]string) taskmodel.HandoffProtocol {
	return taskmodel.HandoffProtocol{
		FromRole: from,
		ToRole:   to,
		TaskID:   taskID,
		Status:   status,
		Context:  context,
		Notes:    notes,
	}
}

// ExitReportToHandoff converts a completed role's ExitReport into the
// HandoffProtocol message consumed by whatever role picks up RemainingWork
// next, preserving FilesTouched/Branch as handoff context.
func ExitReportToHandoff(from, to taskmodel.Role, report taskmodel.ExitReport) taskmodel.HandoffProtocol {
	context := map[string]string{}
	if report.Branch != "" {
		context["branch"] = report.Branch
	}
	if report.PRURL != "" {
		context["pr_url"] = report.PRURL
	}
	if len(report.FilesTouched) > 0 {
		context["files_touched"] = strings.Join(report.FilesTouched, ",")
	}
	return NewHandoff(from, to, report.TaskID, report.Status, report.RemainingWork, context)
}
