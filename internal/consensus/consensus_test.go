package consensus

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegisterVoteRejectsOutOfRangeConfidence(t *testing.T) {
	e := NewEngine()
	if err := e.RegisterVote("a1", "approve", 1.5, "code_review"); err != ErrConfidenceOutOfRange {
		t.Fatalf("expected ErrConfidenceOutOfRange, got %v", err)
	}
}

func TestComputeDecisionPicksHighestWeight(t *testing.T) {
	e := NewEngine()
	votes := []Vote{
		{Agent: "a1", Decision: "approve", Confidence: 0.9, Domain: "d"},
		{Agent: "a2", Decision: "reject", Confidence: 0.4, Domain: "d"},
	}
	dec, err := e.ComputeDecision(votes, false)
	if err != nil {
		t.Fatalf("ComputeDecision: %v", err)
	}
	if dec.Winner != "approve" {
		t.Fatalf("expected approve to win, got %s", dec.Winner)
	}
	if dec.Margin <= 0 {
		t.Fatalf("expected positive margin, got %v", dec.Margin)
	}
}

func TestComputeDecisionEmptyVotesErrors(t *testing.T) {
	e := NewEngine()
	if _, err := e.ComputeDecision(nil, false); err != ErrNoVotes {
		t.Fatalf("expected ErrNoVotes, got %v", err)
	}
}

func TestUpdateEloIncreasesOnWinAgainstHigherRated(t *testing.T) {
	e := NewEngine()
	opponent := 1600.0
	newRating := e.UpdateElo("underdog", true, "d", &opponent)
	if newRating <= baseRating {
		t.Fatalf("expected rating increase above base, got %v", newRating)
	}
}

func TestDebateBlindDraftRejectedOutsideState(t *testing.T) {
	d := NewDebate("d1", TopologyRing, 5)
	d.State = StateCritique
	if err := d.BlindDraftPhase(map[string]string{"a": "x"}); !errors.Is(err, ErrWrongState) {
		t.Fatalf("expected ErrWrongState wrapped, got %v", err)
	}
}

func TestDebateRingTopologyFullCycle(t *testing.T) {
	d := NewDebate("d1", TopologyRing, 5)
	drafts := map[string]string{"a1": "draft1", "a2": "draft2", "a3": "draft3"}
	if err := d.BlindDraftPhase(drafts); err != nil {
		t.Fatalf("BlindDraftPhase: %v", err)
	}
	if d.State != StateCritique {
		t.Fatalf("expected CRITIQUE, got %s", d.State)
	}

	seen := map[string]string{}
	_, err := d.SparseCritiquePhase(func(critic, target, targetDraft string) string {
		seen[critic] = target
		return "critique of " + targetDraft
	})
	if err != nil {
		t.Fatalf("SparseCritiquePhase: %v", err)
	}
	wantPairing := map[string]string{"a1": "a2", "a2": "a3", "a3": "a1"}
	if diff := cmp.Diff(wantPairing, seen); diff != "" {
		t.Fatalf("unexpected ring pairing (-want +got):\n%s", diff)
	}
	if d.State != StateRevision {
		t.Fatalf("expected REVISION, got %s", d.State)
	}

	if err := d.RevisionPhase(map[string]string{"a1": "draft1", "a2": "draft2", "a3": "draft3"}); err != nil {
		t.Fatalf("RevisionPhase: %v", err)
	}
	if d.State != StateConverged {
		t.Fatalf("expected CONVERGED when all drafts unchanged, got %s", d.State)
	}
}

func TestSelectSpeakerSkipsLastSpeaker(t *testing.T) {
	candidates := []string{"a3", "a1", "a2"}
	speaker, ok := SelectSpeaker(candidates, "a1", true, map[string]int{}, 0)
	if !ok || speaker != "a2" {
		t.Fatalf("expected a2 (smallest id excluding last speaker a1), got %s, ok=%v", speaker, ok)
	}
}

func TestSelectSpeakerNoConsecutiveRepeat(t *testing.T) {
	candidates := []string{"a1", "a2"}
	speaker, ok := SelectSpeaker(candidates, "a1", true, map[string]int{}, 0)
	if !ok || speaker != "a2" {
		t.Fatalf("expected a2 since a1 is the last speaker, got %s, ok=%v", speaker, ok)
	}
}
