// Package deliberation implements C12: a small three-phase
// decompose/analyze/synthesize loop for a single ad hoc question, run
// independently of the task table.
// Grounded on internal/session/executor.go's perceive/transduce/respond
// shape: one entry point drives a fixed sequence of phases against
// injected collaborators, with no shard spawning or factory machinery.
package deliberation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/swarmkernel/orchestrator/internal/fault"
	"github.com/swarmkernel/orchestrator/internal/graph"
	"github.com/swarmkernel/orchestrator/internal/llm"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// decomposeTopK is the number of graph chunks retrieved as sub-problems
// when a knowledge graph is available.
const decomposeTopK = 5

// synthesizeMinSteps is the step count at or above which Synthesize
// actually renders a prompt and calls the LLM.
const synthesizeMinSteps = 3

// subProblemSnippetLen truncates a retrieved chunk's content to this many
// characters when formatting it as a sub-problem.
const subProblemSnippetLen = 100

// Verifier is the minimal contract Analyze needs for a "verify"-routed
// sub-problem; kernel.Verifier satisfies this without deliberation
// importing the kernel package.
type Verifier interface {
	Probe(ctx context.Context, task *taskmodel.Task) taskmodel.GateResult
}

// Loop runs a three-phase deliberation over injected collaborators.
// Graph, FaultRunner, Verifier and TestCommand may all be nil/empty, in
// which case the corresponding phase degrades to its documented fallback.
type Loop struct {
	Client      llm.Client
	Graph       *graph.Graph
	Damping     float64
	FaultRunner *fault.Runner
	TestCommand string
	Verifier    Verifier
}

// Run executes Decompose, Analyze, and (if steps >= 3) Synthesize,
// recording each phase's duration. Any panic/error from a phase is
// caught and surfaces as a zero-confidence error answer rather than
// propagating to the caller.
func (l *Loop) Run(ctx context.Context, problem, background string, constraints []string, steps int) (result taskmodel.DeliberationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = taskmodel.DeliberationResult{
				FinalAnswer: fmt.Sprintf("deliberation panicked: %v", r),
				Confidence:  0,
			}
		}
	}()

	subProblems, step1 := l.decompose(ctx, problem)
	result.Steps = append(result.Steps, step1)

	workerOutputs, step2 := l.analyze(ctx, subProblems)
	result.Steps = append(result.Steps, step2)

	if steps >= synthesizeMinSteps {
		answer, confidence, step3 := l.synthesize(ctx, subProblems, workerOutputs, background, constraints)
		result.Steps = append(result.Steps, step3)
		result.FinalAnswer = answer
		result.Confidence = confidence
	} else {
		result.FinalAnswer = strings.Join(workerOutputs, "\n")
		result.Confidence = 0
	}
	return result
}

// decompose implements step 1: top-K graph chunks as sub-problems, or
// the bare problem string if no graph is built.
func (l *Loop) decompose(ctx context.Context, problem string) ([]string, taskmodel.DeliberationStep) {
	start := time.Now()
	var subProblems []string

	if l.Graph != nil {
		nodes, err := graph.Retrieve(l.Graph, problem, decomposeTopK, l.Damping)
		if err == nil && len(nodes) > 0 {
			for _, n := range nodes {
				content := n.Content
				if len(content) > subProblemSnippetLen {
					content = content[:subProblemSnippetLen]
				}
				subProblems = append(subProblems, fmt.Sprintf("%s: %s", n.Name, content))
			}
		}
	}
	if len(subProblems) == 0 {
		subProblems = []string{problem}
	}

	return subProblems, taskmodel.DeliberationStep{
		Step: 1, Name: "decompose", Worker: "graph",
		Output:   fmt.Sprintf("%d sub-problem(s)", len(subProblems)),
		Duration: time.Since(start),
	}
}

// analyze implements step 2: keyword-routed analysis per sub-problem,
// collecting a worker output per sub-problem.
func (l *Loop) analyze(ctx context.Context, subProblems []string) ([]string, taskmodel.DeliberationStep) {
	start := time.Now()
	outputs := make([]string, 0, len(subProblems))

	for _, sp := range subProblems {
		lower := strings.ToLower(sp)
		switch {
		case strings.Contains(lower, "debug") && l.FaultRunner != nil && l.TestCommand != "":
			outputs = append(outputs, l.analyzeDebug(ctx, sp))
		case strings.Contains(lower, "verify") && l.Verifier != nil:
			result := l.Verifier.Probe(ctx, taskmodel.NewTask(sp))
			outputs = append(outputs, fmt.Sprintf("verify(%s): %s — %s", sp, result.Status, result.Message))
		default:
			outputs = append(outputs, "analysis: "+sp)
		}
	}

	return outputs, taskmodel.DeliberationStep{
		Step: 2, Name: "analyze", Worker: "router",
		Output:   fmt.Sprintf("%d worker output(s)", len(outputs)),
		Duration: time.Since(start),
	}
}

func (l *Loop) analyzeDebug(ctx context.Context, subProblem string) string {
	spectrum, outcome, err := l.FaultRunner.Run(ctx, fault.CommandFromString(l.TestCommand), "")
	if err != nil {
		return fmt.Sprintf("debug(%s): fault runner failed: %v", subProblem, err)
	}
	if outcome != taskmodel.OutcomeFailed {
		return fmt.Sprintf("debug(%s): tests passed", subProblem)
	}
	suspects, ok := fault.Localize(spectrum, decomposeTopK)
	if !ok {
		return fmt.Sprintf("debug(%s): tests failed, no suspects localized", subProblem)
	}
	return fault.DebugPrompt(suspects, nil)
}

// synthesize implements step 3: render the synthesizer prompt and parse
// the LLM's answer/confidence.
func (l *Loop) synthesize(ctx context.Context, subProblems, workerOutputs []string, background string, constraints []string) (string, float64, taskmodel.DeliberationStep) {
	start := time.Now()
	step := taskmodel.DeliberationStep{Step: 3, Name: "synthesize", Worker: "synthesizer"}

	if l.Client == nil {
		step.Output = "no LLM client configured"
		step.Duration = time.Since(start)
		return strings.Join(workerOutputs, "\n"), 0, step
	}

	prompt := renderSynthesizerPrompt(subProblems, workerOutputs, background, constraints)
	resp, err := llm.Dispatch(ctx, l.Client, synthesizerSystemPrompt, prompt)
	step.Duration = time.Since(start)
	if err != nil {
		step.Output = "llm dispatch failed: " + err.Error()
		return "error: " + err.Error(), 0, step
	}

	step.Output = resp.ReasoningTrace
	return resp.ReasoningTrace, resp.ValidationScore, step
}
