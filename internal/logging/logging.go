// Package logging provides the process-wide structured logger.
// All components take a *zap.Logger (or a derived child, via For) rather
// than reaching for a package-level global, so the orchestrator's DI
// context (see internal/kernel) can construct one logger per process and
// hand scoped children to each component.
package logging

import (
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category mirrors the component boundaries so every log
// line can be filtered by the subsystem that emitted it.
type Category string

const (
	CategoryBlackboard  Category = "blackboard"
	CategoryTelemetry   Category = "telemetry"
	CategoryParse       Category = "parse"
	CategoryGraph       Category = "graph"
	CategoryPruner      Category = "pruner"
	CategoryConsensus   Category = "consensus"
	CategoryFault       Category = "fault"
	CategoryHealth      Category = "health"
	CategoryGitRoles    Category = "gitroles"
	CategoryKernel      Category = "kernel"
	CategoryPlanBridge  Category = "planbridge"
	CategoryDeliberation Category = "deliberation"
	CategoryLLM         Category = "llm"
	CategoryGitAdapter  Category = "gitadapter"
)

// New builds the process-wide root logger. It reads only SWARM_DEBUG,
// which enables debug-level logs. SWARM_VERBOSE_TELEMETRY is read by the
// telemetry ledger (see VerboseTelemetry), which then logs every append.
// SWARM_TRACE_PROMPTS is exposed through TracePrompts, which no component
// calls, so LLM prompt/response bodies are never logged. None of these
// affect what gets logged to the provenance log or the Markdown plan.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if envBool("SWARM_DEBUG") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// NewNop returns a no-op logger, used by tests and by components
// constructed without an explicit logger.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

// For scopes a logger to a single component category.
func For(base *zap.Logger, cat Category) *zap.Logger {
	if base == nil {
		base = NewNop()
	}
	return base.With(zap.String("category", string(cat)))
}

// VerboseTelemetry reports whether SWARM_VERBOSE_TELEMETRY=true was set,
// so the telemetry ledger (internal/telemetry) can decide whether to emit
// a log line per appended event in addition to the durable row.
func VerboseTelemetry() bool { return envBool("SWARM_VERBOSE_TELEMETRY") }

// TracePrompts reports whether SWARM_TRACE_PROMPTS=true was set.
func TracePrompts() bool { return envBool("SWARM_TRACE_PROMPTS") }

func envBool(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
