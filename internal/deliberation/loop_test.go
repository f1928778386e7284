package deliberation

import (
	"context"
	"testing"

	"github.com/swarmkernel/orchestrator/internal/fault"
	"github.com/swarmkernel/orchestrator/internal/llm"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

type fakeClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type stubVerifier struct{}

func (stubVerifier) Probe(context.Context, *taskmodel.Task) taskmodel.GateResult {
	return taskmodel.Passed("ok")
}

func TestRunWithFewStepsSkipsSynthesis(t *testing.T) {
	client := &fakeClient{response: `{"status":"SUCCESS","reasoning_trace":"final","validation_score":0.9}`}
	loop := &Loop{Client: client}

	result := loop.Run(context.Background(), "how should we cache this", "", nil, 2)

	if len(result.Steps) != 2 {
		t.Fatalf("expected exactly 2 steps when steps < 3, got %d", len(result.Steps))
	}
	if client.calls != 0 {
		t.Fatalf("expected no LLM call below the synthesize threshold, got %d", client.calls)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected zero confidence without synthesis, got %v", result.Confidence)
	}
}

func TestRunWithThreeStepsSynthesizes(t *testing.T) {
	client := &fakeClient{response: `{"status":"SUCCESS","reasoning_trace":"combined answer","validation_score":0.8}`}
	loop := &Loop{Client: client}

	result := loop.Run(context.Background(), "how should we cache this", "bg", []string{"no new deps"}, 3)

	if len(result.Steps) != 3 {
		t.Fatalf("expected 3 steps at the synthesize threshold, got %d", len(result.Steps))
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one LLM call for synthesis, got %d", client.calls)
	}
	if result.FinalAnswer != "combined answer" {
		t.Fatalf("expected final answer from the LLM, got %q", result.FinalAnswer)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", result.Confidence)
	}
}

func TestAnalyzeRoutesDebugKeywordToFaultRunner(t *testing.T) {
	runner := fault.NewRunner(fault.NoOpCollector{}, 0, nil)
	loop := &Loop{FaultRunner: runner, TestCommand: "false"}

	outputs, step := loop.analyze(context.Background(), []string{"debug the failing suite"})

	if step.Name != "analyze" {
		t.Fatalf("expected step name analyze, got %s", step.Name)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected one worker output, got %d", len(outputs))
	}
}

func TestAnalyzeRoutesVerifyKeywordToVerifier(t *testing.T) {
	loop := &Loop{Verifier: stubVerifier{}}

	outputs, _ := loop.analyze(context.Background(), []string{"verify the invariant holds"})

	if len(outputs) != 1 {
		t.Fatalf("expected one worker output, got %d", len(outputs))
	}
	if outputs[0] == "" {
		t.Fatalf("expected a non-empty verify output")
	}
}

func TestRunWithoutClientGivesZeroConfidence(t *testing.T) {
	loop := &Loop{Client: nil}
	// No client configured: synthesize degrades to worker-output join
	// rather than panicking, exercising the non-panic path of Run's
	// recover-based exception handling.
	result := loop.Run(context.Background(), "problem", "", nil, 3)
	if result.Confidence != 0 {
		t.Fatalf("expected zero confidence without a client, got %v", result.Confidence)
	}
}

var _ llm.Client = (*fakeClient)(nil)
