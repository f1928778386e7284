package pruner

import (
	"context"
	"testing"
	"time"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

func makeLog(n int) []taskmodel.AuthorSignature {
	var log []taskmodel.AuthorSignature
	for i := 0; i < n; i++ {
		log = append(log, taskmodel.AuthorSignature{
			AgentID: "agent", Action: "edit", Artifact: "file.go",
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	return log
}

func TestPruneReturnsUnchangedWhenUnderBudget(t *testing.T) {
	p := New(nil, nil)
	log := makeLog(5)
	out := p.Prune(context.Background(), log, "query", DefaultKeepTail, DefaultKeepRelevant)
	if len(out) != len(log) {
		t.Fatalf("expected unchanged log, got %d entries", len(out))
	}
}

func TestPruneTailInvariantHoldsUnderFIFOFallback(t *testing.T) {
	p := New(nil, nil)
	log := makeLog(50)
	out := p.Prune(context.Background(), log, "query", 10, 20)
	tail := log[len(log)-10:]
	gotTail := out[len(out)-10:]
	for i := range tail {
		if tail[i].Timestamp != gotTail[i].Timestamp {
			t.Fatalf("tail invariant violated at index %d", i)
		}
	}
}

func TestPruneTailInvariantHoldsWithEmbedder(t *testing.T) {
	p := New(KeywordEmbedder{}, nil)
	log := makeLog(50)
	out := p.Prune(context.Background(), log, "edit file", 10, 20)
	tail := log[len(log)-10:]
	gotTail := out[len(out)-10:]
	for i := range tail {
		if tail[i].Timestamp != gotTail[i].Timestamp {
			t.Fatalf("tail invariant violated at index %d", i)
		}
	}
	if len(out) != 30 {
		t.Fatalf("expected keepTail+keepRelevant=30 entries, got %d", len(out))
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float64{1, 2, 3}
	if got := cosineSimilarity(v, v); got < 0.999 {
		t.Fatalf("expected ~1.0 similarity for identical vectors, got %v", got)
	}
}
