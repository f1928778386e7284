package fault

import (
	"testing"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

func TestLocalizeNoFailuresShortCircuits(t *testing.T) {
	spectrum := taskmodel.NewCoverageSpectrum()
	spectrum.TotalPassed = 3
	_, ok := Localize(spectrum, 10)
	if ok {
		t.Fatalf("expected no fault localization needed when totalFailed=0")
	}
}

func TestLocalizeRanksLineOnlyInFailingTestsHighest(t *testing.T) {
	spectrum := taskmodel.NewCoverageSpectrum()
	spectrum.TotalFailed = 2
	spectrum.TotalPassed = 3
	spectrum.Record(taskmodel.OutcomeFailed, "a.go", 10)
	spectrum.Record(taskmodel.OutcomeFailed, "a.go", 20)
	spectrum.Record(taskmodel.OutcomePassed, "a.go", 20)
	spectrum.Record(taskmodel.OutcomePassed, "a.go", 30)

	suspects, ok := Localize(spectrum, 10)
	if !ok {
		t.Fatalf("expected localization to run")
	}
	if len(suspects) == 0 || suspects[0].Line != 10 {
		t.Fatalf("expected line 10 (failed-only) to rank highest, got %+v", suspects)
	}
	if suspects[0].Score <= suspects[1].Score {
		t.Fatalf("expected line 10's score to exceed line 20's mixed score")
	}
}

func TestOchiaiZeroWhenNeverFailed(t *testing.T) {
	if got := ochiai(0, 5, 10); got != 0 {
		t.Fatalf("expected 0 for failed=0, got %v", got)
	}
}
