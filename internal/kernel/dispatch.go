package kernel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/consensus"
	"github.com/swarmkernel/orchestrator/internal/errs"
	"github.com/swarmkernel/orchestrator/internal/fault"
	"github.com/swarmkernel/orchestrator/internal/graph"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// dispatchAlgorithm runs the fixed-order intent dispatch
// §4.10 step 5. The first intent present in this order that is
// successfully dispatched ends the tick (handled=true). Only tests_failing
// can be declined (SBFL disabled or no test command configured); the order
// then goes on to the git intents. dispatchAlgorithm returns handled=false
// when no intent is dispatched, in which case ProcessTask falls through to
// the classical flow.
// A missing knowledge graph on a context_needed dispatch is a named
// ContractViolation and is returned as an error rather than
// degraded locally, per the propagation policy.
func (k *Kernel) dispatchAlgorithm(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) (bool, error) {
	if task.Intents.Has(taskmodel.ContextIntent) {
		return k.dispatchContext(ctx, profile, task)
	}
	if task.Intents.Has(taskmodel.ConsensusIntent) {
		return k.dispatchConsensusSetup(profile, task), nil
	}
	if task.Intents.Has(taskmodel.DebateIntent) {
		return k.dispatchDebateStart(profile, task), nil
	}
	if task.Intents.Has(taskmodel.VerifyIntent) {
		return k.dispatchVerify(ctx, profile, task), nil
	}
	if task.Intents.Has(taskmodel.DebugIntent) {
		handled, err := k.dispatchFaultAnalysis(ctx, profile, task)
		if err != nil || handled {
			return handled, err
		}
	}
	if task.Intents.Has(taskmodel.GitCommitIntent) || task.Intents.Has(taskmodel.GitPRIntent) {
		return k.runGitWorkflow(ctx, profile, task)
	}
	return false, nil
}

func (k *Kernel) dispatchContext(_ context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) (bool, error) {
	nodes, err := graph.Retrieve(k.graph, task.Description, contextRetrieveTopK, k.cfg.Graph.Damping)
	if err != nil {
		return false, errs.Wrap(errs.ContractViolation, "kernel.dispatchContext", err)
	}
	for _, n := range nodes {
		profile.ActiveContext[n.File+"::"+n.Name] = n.Content
	}
	profile.AppendProvenance(taskmodel.AuthorSignature{
		Role: task.AssignedRole, Action: "context_retrieved", TaskID: task.ID,
		Artifact: fmt.Sprintf("%d nodes", len(nodes)),
	})
	return true, nil
}

func (k *Kernel) dispatchConsensusSetup(profile *taskmodel.ProjectProfile, task *taskmodel.Task) bool {
	if k.consensusEngine == nil {
		k.consensusEngine = consensus.NewEngine()
	}
	profile.AppendProvenance(taskmodel.AuthorSignature{
		Action: "consensus_setup", TaskID: task.ID,
	})
	k.log.Debug("kernel: consensus setup", zap.String("task_id", task.ID))
	return true
}

func (k *Kernel) dispatchDebateStart(profile *taskmodel.ProjectProfile, task *taskmodel.Task) bool {
	if k.debates == nil {
		k.debates = make(map[string]*consensus.Debate)
	}
	if _, exists := k.debates[task.ID]; !exists {
		k.debates[task.ID] = consensus.NewDebate(task.ID, consensus.TopologyRing, k.cfg.Consensus.MaxDebateRounds)
	}
	profile.AppendProvenance(taskmodel.AuthorSignature{
		Action: "debate_started", TaskID: task.ID,
	})
	return true
}

func (k *Kernel) dispatchVerify(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) bool {
	result := k.verifier.Probe(ctx, task)
	action := "verification_passed"
	if result.Status == taskmodel.GateFailed {
		action = "verification_failed"
		task.AppendFeedback("verification failed: " + result.Message)
	}
	profile.AppendProvenance(taskmodel.AuthorSignature{
		Action: action, TaskID: task.ID, Artifact: result.Message,
	})
	return true
}

func (k *Kernel) dispatchFaultAnalysis(ctx context.Context, profile *taskmodel.ProjectProfile, task *taskmodel.Task) (bool, error) {
	if !k.cfg.GitFlags.SBFLEnabled || k.cfg.Fault.TestCommand == "" {
		return false, nil
	}
	command := fault.CommandFromString(k.cfg.Fault.TestCommand)
	spectrum, outcome, err := k.faultRunner.Run(ctx, command, k.workspace)
	if err != nil {
		k.log.Warn("kernel: fault runner failed, degrading locally", zap.Error(err))
		profile.AppendProvenance(taskmodel.AuthorSignature{Action: "fault_analysis_error", TaskID: task.ID, Artifact: err.Error()})
		return true, nil
	}

	if outcome == taskmodel.OutcomeFailed {
		suspects, ok := fault.Localize(spectrum, faultTopK)
		if ok {
			prompt := fault.DebugPrompt(suspects, nil)
			task.AppendFeedback("fault localization: " + prompt)
			profile.AppendProvenance(taskmodel.AuthorSignature{Action: "fault_localized", TaskID: task.ID, Artifact: fmt.Sprintf("%d suspects", len(suspects))})
		}
	} else {
		profile.AppendProvenance(taskmodel.AuthorSignature{Action: "tests_passed", TaskID: task.ID})
		task.Intents.Set(taskmodel.DebugIntent, false)
	}
	return true, nil
}

const (
	contextRetrieveTopK = 5
	faultTopK           = 5
)
