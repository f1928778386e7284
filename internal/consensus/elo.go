package consensus

import "math"

const (
	baseRating = 1500.0
	eloK       = 32.0
)

// UpdateElo applies a standard Elo update to agent's rating in domain
// against opponentRating (defaulting to 1500 when nil).
// Returns the agent's new rating.
func (e *Engine) UpdateElo(agent string, wasCorrect bool, domain string, opponentRating *float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	opponent := baseRating
	if opponentRating != nil {
		opponent = *opponentRating
	}
	rating := e.rating(domain, agent)

	expected := 1.0 / (1.0 + math.Pow(10, (opponent-rating)/400.0))
	actual := 0.0
	if wasCorrect {
		actual = 1.0
	}
	newRating := rating + eloK*(actual-expected)
	e.setRating(domain, agent, newRating)
	return newRating
}

// Rating returns agent's current rating in domain (1500 if unset).
func (e *Engine) Rating(domain, agent string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rating(domain, agent)
}
