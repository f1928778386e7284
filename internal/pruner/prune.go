package pruner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

const (
	// DefaultKeepTail is the number of most-recent entries always kept
	DefaultKeepTail = 10
	// DefaultKeepRelevant bounds how many older entries survive by
	// relevance score.
	DefaultKeepRelevant = 20
)

// Pruner scores a provenance log against a query and keeps keepTail
// most-recent entries plus the top keepRelevant by cosine similarity,
// falling back to FIFO when no Embedder is configured.
type Pruner struct {
	embedder Embedder
	log      *zap.Logger
}

// New constructs a Pruner. embedder may be nil, selecting the FIFO
// fallback for every call.
func New(embedder Embedder, log *zap.Logger) *Pruner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Pruner{embedder: embedder, log: logging.For(log, logging.CategoryPruner)}
}

// Prune implements the five-step pruning algorithm. keepTail/keepRelevant
// <= 0 fall back to the package defaults.
func (p *Pruner) Prune(ctx context.Context, logEntries []taskmodel.AuthorSignature, query string, keepTail, keepRelevant int) []taskmodel.AuthorSignature {
	if keepTail <= 0 {
		keepTail = DefaultKeepTail
	}
	if keepRelevant <= 0 {
		keepRelevant = DefaultKeepRelevant
	}

	if len(logEntries) <= keepTail+keepRelevant {
		return logEntries
	}

	tailStart := len(logEntries) - keepTail
	tail := logEntries[tailStart:]
	candidates := logEntries[:tailStart]

	if p.embedder == nil {
		return fifoFallback(logEntries, keepTail, keepRelevant)
	}

	selected, err := p.rankByRelevance(ctx, candidates, query, keepRelevant)
	if err != nil {
		p.log.Warn("prune: embedding failed, falling back to FIFO", zap.Error(err))
		return fifoFallback(logEntries, keepTail, keepRelevant)
	}

	out := make([]taskmodel.AuthorSignature, 0, len(selected)+len(tail))
	out = append(out, selected...)
	out = append(out, tail...)
	return out
}

// fifoFallback returns the last keepTail+keepRelevant entries unchanged,
// preserving the tail-invariant trivially since it's a suffix of the
// input.
func fifoFallback(logEntries []taskmodel.AuthorSignature, keepTail, keepRelevant int) []taskmodel.AuthorSignature {
	n := keepTail + keepRelevant
	if n > len(logEntries) {
		n = len(logEntries)
	}
	return logEntries[len(logEntries)-n:]
}

// rankByRelevance embeds the query and each candidate's "action artifact
// role" text, scores by cosine similarity, keeps the top keepRelevant, and
// re-sorts the survivors back into chronological order.
func (p *Pruner) rankByRelevance(ctx context.Context, candidates []taskmodel.AuthorSignature, query string, keepRelevant int) ([]taskmodel.AuthorSignature, error) {
	queryVec, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pruner: embed query: %w", err)
	}

	type scored struct {
		idx   int
		sig   taskmodel.AuthorSignature
		score float64
	}
	results := make([]scored, 0, len(candidates))
	for i, c := range candidates {
		text := fmt.Sprintf("%s %s %s", c.Action, c.Artifact, c.Role)
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("pruner: embed candidate: %w", err)
		}
		results = append(results, scored{idx: i, sig: c, score: cosineSimilarity(queryVec, vec)})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if keepRelevant < len(results) {
		results = results[:keepRelevant]
	}
	sort.Slice(results, func(i, j int) bool { return results[i].idx < results[j].idx })

	out := make([]taskmodel.AuthorSignature, 0, len(results))
	for _, r := range results {
		out = append(out, r.sig)
	}
	return out, nil
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
