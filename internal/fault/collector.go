package fault

import (
	"context"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// NoOpCollector is a CoverageCollector that acquires/releases nothing and
// records no executed-line sets. It lets Runner.Run produce a bare
// pass/fail CoverageSpectrum when no coverage instrumentation (a
// `-coverprofile` flag, an instrumented binary) is configured for the
// test command, instead of requiring every caller to supply one.
type NoOpCollector struct{}

// Acquire implements CoverageCollector.
func (NoOpCollector) Acquire(context.Context) error { return nil }

// Release implements CoverageCollector.
func (NoOpCollector) Release(context.Context) error { return nil }

// Collect implements CoverageCollector.
func (NoOpCollector) Collect(*taskmodel.CoverageSpectrum, taskmodel.CoverageOutcome) error {
	return nil
}
