package taskmodel

import "time"

// NodeType enumerates ASTNode.node_type.
type NodeType string

const (
	NodeFunction  NodeType = "function"
	NodeMethod    NodeType = "method"
	NodeClass     NodeType = "class"
	NodeInterface NodeType = "interface"
	NodeStruct    NodeType = "struct"
	NodeTrait     NodeType = "trait"
	NodeModule    NodeType = "module"
	NodeComponent NodeType = "component"
	NodeTypeAlias NodeType = "type"
)

// ASTNode is the uniform node every language parser in internal/parse
// produces, regardless of source language.
type ASTNode struct {
	Name          string
	NodeType      NodeType
	File          string
	StartLine     int // 1-based, inclusive
	EndLine       int // 1-based, inclusive
	Content       string
	Calls         []string
	Inherits      []string
	Renders       []string // distinct uppercase JSX tag names
	FrameworkRole string   // e.g. "next_page", "next_api_handler"
	APIRoute      string   // server-side route, if this node is a handler
	APICalls      []string // client-side called routes
	Hooks         []string // React-style use[A-Z]* identifiers
}

// ID is the `<file>::<name>` node identifier used by the knowledge graph.
func (n ASTNode) ID() string { return n.File + "::" + n.Name }

// EdgeType enumerates the knowledge-graph edge kinds.
type EdgeType string

const (
	EdgeCalls    EdgeType = "calls"
	EdgeInherits EdgeType = "inherits"
	EdgeRenders  EdgeType = "renders"
	EdgeCallsAPI EdgeType = "calls_api"
	EdgeRelated  EdgeType = "related_to"
)

// Edge is a directed knowledge-graph edge.
type Edge struct {
	From string
	To   string
	Type EdgeType
}

// RetrievedNode is one item of a retrieve_context result.
type RetrievedNode struct {
	File      string
	Name      string
	Type      NodeType
	Content   string
	Score     float64
	StartLine int
	EndLine   int
}

// TelemetryEventType enumerates TelemetryEvent.type values.
type TelemetryEventType string

const (
	EventToolUse      TelemetryEventType = "tool_use"
	EventTaskRouting  TelemetryEventType = "task_routing"
	EventError        TelemetryEventType = "error"
	EventProvenance   TelemetryEventType = "provenance"
	EventStartup      TelemetryEventType = "startup"
	EventGapDetected  TelemetryEventType = "gap_detected"
)

// TelemetryEvent is a single append-only telemetry row.
type TelemetryEvent struct {
	ID            string
	Timestamp     time.Time
	SessionID     string
	InstallID     string
	Type          TelemetryEventType
	Tool          string
	Role          Role
	Success       bool
	DurationMS    int64
	ErrorCategory string
	Properties    map[string]string
}

// CoverageOutcome is one test-suite invocation's pass/fail label.
type CoverageOutcome string

const (
	OutcomePassed CoverageOutcome = "passed"
	OutcomeFailed CoverageOutcome = "failed"
)

// CoverageSpectrum holds the per-file executed-line sets for one test run,
// split by outcome, as required to compute Ochiai suspiciousness.
type CoverageSpectrum struct {
	// ExecutedLines[outcome][file] = set of 1-based line numbers executed
	// by at least one test with that outcome.
	ExecutedLines map[CoverageOutcome]map[string]map[int]bool
	TotalPassed   int
	TotalFailed   int
}

// NewCoverageSpectrum returns an empty spectrum ready for accumulation.
func NewCoverageSpectrum() *CoverageSpectrum {
	return &CoverageSpectrum{
		ExecutedLines: map[CoverageOutcome]map[string]map[int]bool{
			OutcomePassed: {},
			OutcomeFailed: {},
		},
	}
}

// Record marks that the given file:line was executed by a test with the
// given outcome.
func (c *CoverageSpectrum) Record(outcome CoverageOutcome, file string, line int) {
	files := c.ExecutedLines[outcome]
	if files == nil {
		files = map[string]map[int]bool{}
		c.ExecutedLines[outcome] = files
	}
	lines := files[file]
	if lines == nil {
		lines = map[int]bool{}
		files[file] = lines
	}
	lines[line] = true
}

// DeliberationStep is one step of a DeliberationResult.
type DeliberationStep struct {
	Step     int
	Name     string
	Worker   string
	Output   string
	Duration time.Duration
}

// DeliberationResult is C12's output.
type DeliberationResult struct {
	Steps       []DeliberationStep
	FinalAnswer string
	Confidence  float64
}

// HandoffStatus enumerates HandoffProtocol/ExitReport.status.
type HandoffStatus string

const (
	HandoffPending     HandoffStatus = "PENDING"
	HandoffInProgress  HandoffStatus = "IN_PROGRESS"
	HandoffCompleted   HandoffStatus = "COMPLETED"
	HandoffBlocked     HandoffStatus = "BLOCKED"
	HandoffFailed      HandoffStatus = "FAILED"
	HandoffSkipped     HandoffStatus = "SKIPPED"
)

// HandoffProtocol is the inter-role message used by C9.
type HandoffProtocol struct {
	FromRole Role
	ToRole   Role
	TaskID   string
	Status   HandoffStatus
	Context  map[string]string
	Notes    string
}

// ExitReport is what a git role returns from Execute.
type ExitReport struct {
	TaskID        string
	Status        HandoffStatus
	FilesTouched  []string
	Branch        string
	PRURL         string
	RemainingWork string
	Warnings      []string
}
