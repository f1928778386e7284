package taskmodel

// GateStatus is a GateResult's outcome. Unlike HandoffStatus (the
// multi-state lifecycle of a task or role handoff) a gate only ever
// passes or fails.
type GateStatus string

const (
	GatePassed GateStatus = "PASSED"
	GateFailed GateStatus = "FAILED"
)

// GateResult is how a bounded, potentially-timing-out check (a test run,
// a verifier probe, a solver call) reports its outcome. A timeout is
// recorded as GateResult{Status: GateFailed}, never raised as an error
type GateResult struct {
	Status  GateStatus
	Message string
}

// Passed is a convenience constructor for a successful gate.
func Passed(message string) GateResult {
	return GateResult{Status: GatePassed, Message: message}
}

// Failed is a convenience constructor for a failed gate.
func Failed(message string) GateResult {
	return GateResult{Status: GateFailed, Message: message}
}
