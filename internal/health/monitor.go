package health

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/mangle/ast"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
	"github.com/swarmkernel/orchestrator/internal/telemetry"
)

const (
	toolProblemThreshold = 0.7
	toolProblemWindow    = 24 * time.Hour
	rolePerfThreshold    = 0.5
	roleSkipThreshold    = 0.3
	chronicWindow        = 24 * time.Hour
	chronicTopN          = 3

	criticalToolCount = 3
	criticalRoleCount = 2
)

// Status is checkHealth's overall rollup.
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusDegraded Status = "DEGRADED"
	StatusCritical Status = "CRITICAL"
)

// Report is checkHealth's return value.
type Report struct {
	Status             Status
	ProblematicTools   []telemetry.ProblematicTool
	FailedRoles        []taskmodel.Role
	RecommendedActions map[string]string // target (tool name or role) -> action
}

// Monitor composes C2 telemetry queries through the rule engine to produce
// health reports, and tracks per-target failure counts for recordFailure/
// recordSuccess.
type Monitor struct {
	ledger *telemetry.Ledger
	engine *ruleEngine
	log    *zap.Logger

	mu       sync.Mutex
	failures map[string]int
}

// NewMonitor constructs a Monitor. Returns an error only if the fixed rule
// program fails to parse/analyze, which would indicate a programming error
// in this package, not a runtime condition.
func NewMonitor(ledger *telemetry.Ledger, log *zap.Logger) (*Monitor, error) {
	re, err := newRuleEngine()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Monitor{
		ledger:   ledger,
		engine:   re,
		log:      logging.For(log, logging.CategoryHealth),
		failures: make(map[string]int),
	}, nil
}

// CheckHealth composes C2's problematicTools/RolePerformanceIndex/chronic
// failure queries, derives recommended actions through the rule engine, and
// rolls the result up into an overall Status.
func (m *Monitor) CheckHealth() (Report, error) {
	report := Report{RecommendedActions: make(map[string]string)}

	tools, err := m.ledger.ProblematicTools(toolProblemThreshold, toolProblemWindow)
	if err != nil {
		return report, err
	}
	report.ProblematicTools = tools

	var failedRoles []taskmodel.Role
	var facts []edbFact

	// tool_problem(Tool, Rate) feeds tool_status/recommended_action.
	for _, t := range tools {
		facts = append(facts, fact("tool_problem", ast.String(t.Tool), ast.Float64(t.SuccessRate)))
	}

	for _, role := range taskmodel.GitRoles {
		pi := m.ledger.RolePerformanceIndex(role)
		if pi < rolePerfThreshold {
			failedRoles = append(failedRoles, role)
			facts = append(facts, fact("role_failure", ast.String(string(role)), ast.Float64(pi)))
		}
	}
	report.FailedRoles = failedRoles

	patterns, err := m.ledger.ChronicFailurePatterns(chronicWindow, chronicTopN)
	if err != nil {
		return report, err
	}
	for _, p := range patterns {
		facts = append(facts, fact("chronic_pattern", ast.String(p.ErrorCategory), ast.Number(int64(p.Count))))
	}

	actions, err := m.engine.evaluate(facts, "recommended_action")
	if err != nil {
		return report, err
	}
	for _, a := range actions {
		target := atomFirstArg(a)
		action := atomSecondArgName(a)
		if target != "" && action != "" {
			report.RecommendedActions[target] = action
		}
	}

	switch {
	case len(tools) >= criticalToolCount || len(failedRoles) >= criticalRoleCount:
		report.Status = StatusCritical
	case len(tools) == 0 && len(failedRoles) == 0:
		report.Status = StatusHealthy
	default:
		report.Status = StatusDegraded
	}

	m.log.Debug("health: check complete",
		zap.String("status", string(report.Status)),
		zap.Int("problematic_tools", len(tools)),
		zap.Int("failed_roles", len(failedRoles)))

	return report, nil
}

// RolePerformanceIndex exposes the underlying ledger's performance index
// for role so callers (e.g. C9's dispatcher ordering) don't need a second
// handle on the ledger.
func (m *Monitor) RolePerformanceIndex(role taskmodel.Role) float64 {
	return m.ledger.RolePerformanceIndex(role)
}

// ShouldSkipRole reports whether role's performance index has fallen below
// the hard skip threshold.
func (m *Monitor) ShouldSkipRole(role taskmodel.Role) bool {
	return m.ledger.RolePerformanceIndex(role) < roleSkipThreshold
}

// RecordFailure increments target's in-memory failure count and appends a
// telemetry error event.
func (m *Monitor) RecordFailure(target string, cause error) {
	m.mu.Lock()
	m.failures[target]++
	count := m.failures[target]
	m.mu.Unlock()

	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	m.ledger.Append(taskmodel.TelemetryEvent{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Type:          taskmodel.EventError,
		Tool:          target,
		Success:       false,
		ErrorCategory: errMsg,
		Properties:    map[string]string{"failure_count": strconv.Itoa(count)},
	})
}

// RecordSuccess resets target's in-memory failure count and appends a
// telemetry success event.
func (m *Monitor) RecordSuccess(target string) {
	m.mu.Lock()
	m.failures[target] = 0
	m.mu.Unlock()

	m.ledger.Append(taskmodel.TelemetryEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      taskmodel.EventToolUse,
		Tool:      target,
		Success:   true,
	})
}

// FailureCount returns target's current in-memory failure count.
func (m *Monitor) FailureCount(target string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[target]
}
