package graph

import (
	"errors"
	"sort"
	"strings"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// ErrGraphNotBuilt is raised by Retrieve when called against a nil/empty
// graph.
var ErrGraphNotBuilt = errors.New("graph: graph not built")

// Retrieve implements retrieve_context(query, topK, alpha): find seed
// nodes by case-insensitive substring match of query against the symbol
// part of each node id, run Personalized PageRank from a uniform
// distribution over the seeds, and project the top-K nodes. Returns an empty slice, not an error, if no seeds match.
func Retrieve(g *Graph, query string, topK int, alpha float64) ([]taskmodel.RetrievedNode, error) {
	if g == nil || len(g.Nodes) == 0 {
		return nil, ErrGraphNotBuilt
	}

	seeds := seedNodes(g, query)
	if len(seeds) == 0 {
		return nil, nil
	}

	personalization := make(map[string]float64, len(seeds))
	weight := 1.0 / float64(len(seeds))
	for _, id := range seeds {
		personalization[id] = weight
	}

	scores := PersonalizedPageRank(g, personalization, alpha)

	type ranked struct {
		id    string
		score float64
	}
	all := make([]ranked, 0, len(scores))
	for id, s := range scores {
		all = append(all, ranked{id, s})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})

	if topK <= 0 || topK > len(all) {
		topK = len(all)
	}
	out := make([]taskmodel.RetrievedNode, 0, topK)
	for _, r := range all[:topK] {
		n := g.Nodes[r.id]
		out = append(out, taskmodel.RetrievedNode{
			File:      n.File,
			Name:      n.Name,
			Type:      n.NodeType,
			Content:   n.Content,
			Score:     r.score,
			StartLine: n.StartLine,
			EndLine:   n.EndLine,
		})
	}
	return out, nil
}

// seedNodes finds node ids whose symbol (the part after `::`) contains
// query case-insensitively.
func seedNodes(g *Graph, query string) []string {
	q := strings.ToLower(query)
	var seeds []string
	for id, n := range g.Nodes {
		if strings.Contains(strings.ToLower(n.Name), q) {
			seeds = append(seeds, id)
		}
	}
	sort.Strings(seeds)
	return seeds
}
