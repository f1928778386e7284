package fault

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// CoverageCollector scopes acquisition/release of whatever per-invocation
// coverage-capturing mechanism the test command uses (a `-coverprofile`
// flag, an instrumented binary, an env var toggling a tracer). Concrete
// collectors are test-tooling-specific and live outside this package; the
// Runner only needs acquire/release around the subprocess run.
type CoverageCollector interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
	// Collect parses whatever the collector captured during the run into
	// per-outcome executed-line sets, recorded into spectrum.
	Collect(spectrum *taskmodel.CoverageSpectrum, outcome taskmodel.CoverageOutcome) error
}

// Runner executes a test command under a coverage collector with a hard
// timeout, grounded on internal/tactile/direct.go's
// context.WithTimeout + exec.CommandContext pattern.
type Runner struct {
	collector CoverageCollector
	timeout   time.Duration
	log       *zap.Logger
}

// NewRunner constructs a Runner. timeout <= 0 defaults to 5 minutes.
func NewRunner(collector CoverageCollector, timeout time.Duration, log *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Runner{collector: collector, timeout: timeout, log: logging.For(log, logging.CategoryFault)}
}

// Run executes command in dir, scoping coverage acquire/release around it,
// and returns the accumulated spectrum plus the raw pass/fail outcome for
// this single invocation.
func (r *Runner) Run(ctx context.Context, command []string, dir string) (*taskmodel.CoverageSpectrum, taskmodel.CoverageOutcome, error) {
	spectrum := taskmodel.NewCoverageSpectrum()
	if len(command) == 0 {
		return spectrum, taskmodel.OutcomeFailed, nil
	}

	if err := r.collector.Acquire(ctx); err != nil {
		return spectrum, taskmodel.OutcomeFailed, err
	}
	defer r.collector.Release(ctx)

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, command[0], command[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	outcome := taskmodel.OutcomePassed
	if runErr != nil {
		outcome = taskmodel.OutcomeFailed
	}

	if err := r.collector.Collect(spectrum, outcome); err != nil {
		r.log.Warn("fault: coverage collection failed", zap.Error(err))
	}
	if outcome == taskmodel.OutcomeFailed {
		spectrum.TotalFailed++
	} else {
		spectrum.TotalPassed++
	}

	r.log.Debug("fault: test run finished",
		zap.Strings("command", command), zap.String("outcome", string(outcome)),
		zap.Int("stdout_bytes", stdout.Len()), zap.Int("stderr_bytes", stderr.Len()))

	return spectrum, outcome, nil
}

// CommandFromString splits a shell-style test command string into argv,
// used when a caller configures the test command as a single string
func CommandFromString(s string) []string {
	return strings.Fields(s)
}
