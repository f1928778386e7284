package kernel

import (
	"context"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// Verifier probes a task's verification_required intent. The "verify"
// branch is aspirational for now — the verifier is a stub. A Z3-like SMT
// adapter is a plausible future Verifier implementation; none ships here.
type Verifier interface {
	Probe(ctx context.Context, task *taskmodel.Task) taskmodel.GateResult
}

// StubVerifier always reports a passed gate with an explanatory message,
// documenting non-support rather than silently pretending to verify
// anything.
type StubVerifier struct{}

// Probe implements Verifier.
func (StubVerifier) Probe(_ context.Context, _ *taskmodel.Task) taskmodel.GateResult {
	return taskmodel.Passed("verifier: no SMT/formal adapter configured, treated as a no-op pass")
}
