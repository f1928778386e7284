package graph

const (
	defaultAlpha     = 0.85
	maxIterations    = 100
	toleranceDivisor = 1e6
)

// PersonalizedPageRank computes the stationary distribution of a random
// walk over g's edges that teleports, with probability 1-alpha, to the
// personalization distribution. personalization must sum
// to 1; dangling nodes (no outgoing edges) redistribute their mass via
// the same personalization vector rather than uniformly.
func PersonalizedPageRank(g *Graph, personalization map[string]float64, alpha float64) map[string]float64 {
	if alpha <= 0 {
		alpha = defaultAlpha
	}
	n := len(g.Nodes)
	if n == 0 {
		return map[string]float64{}
	}

	ids := make([]string, 0, n)
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	adj := g.outgoing()

	score := make(map[string]float64, n)
	for _, id := range ids {
		score[id] = personalization[id]
	}

	tolerance := float64(n) / toleranceDivisor

	for iter := 0; iter < maxIterations; iter++ {
		next := make(map[string]float64, n)
		var danglingMass float64
		for _, id := range ids {
			out := adj[id]
			if len(out) == 0 {
				danglingMass += score[id]
				continue
			}
			share := score[id] / float64(len(out))
			for _, to := range out {
				next[to] += share
			}
		}

		var l1 float64
		for _, id := range ids {
			teleport := (1 - alpha) * personalization[id]
			walked := alpha * (next[id] + danglingMass*personalization[id])
			updated := teleport + walked
			l1 += abs(updated - score[id])
			next[id] = updated
		}
		score = next
		if l1 < tolerance {
			break
		}
	}
	return score
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
