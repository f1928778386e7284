// Package consensus implements C6: weighted-voting consensus and the
// sparse multi-agent debate state machine.
package consensus

import (
	"errors"
	"sync"
)

// Vote is a single registered opinion.
type Vote struct {
	Agent      string
	Decision   string
	Confidence float64
	Domain     string
}

// ErrConfidenceOutOfRange is returned by RegisterVote for confidence
// outside [0,1].
var ErrConfidenceOutOfRange = errors.New("consensus: confidence must be in [0,1]")

// ErrNoVotes is returned by ComputeDecision on an empty vote set.
var ErrNoVotes = errors.New("consensus: no votes to decide from")

// Engine holds registered votes and Elo ratings across domains. Grounded
// on internal/session/executor.go's mutex-guarded long-lived state
// pattern, generalized from a single session executor to per-domain
// rating storage.
type Engine struct {
	mu    sync.Mutex
	votes []Vote
	elo   map[string]map[string]float64 // domain -> agent -> rating
}

// NewEngine constructs an empty consensus engine.
func NewEngine() *Engine {
	return &Engine{elo: make(map[string]map[string]float64)}
}

// RegisterVote appends a vote, rejecting out-of-range confidence
func (e *Engine) RegisterVote(agent, decision string, confidence float64, domain string) error {
	if confidence < 0 || confidence > 1 {
		return ErrConfidenceOutOfRange
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.votes = append(e.votes, Vote{Agent: agent, Decision: decision, Confidence: confidence, Domain: domain})
	return nil
}

// VotesForDomain returns a copy of the votes registered for domain.
func (e *Engine) VotesForDomain(domain string) []Vote {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Vote
	for _, v := range e.votes {
		if v.Domain == domain {
			out = append(out, v)
		}
	}
	return out
}

// Decision is ComputeDecision's result.
type Decision struct {
	Winner string
	Margin float64
}

// ComputeDecision returns argmax_d sum(weight_i) over votes for decision d,
// where weight_i is confidence_i * eloMultiplier_i when useElo, else just
// confidence_i. Ties are broken by first-encountered
// decision; margin is top minus second (or top, if only one decision is
// present).
func (e *Engine) ComputeDecision(votes []Vote, useElo bool) (Decision, error) {
	if len(votes) == 0 {
		return Decision{}, ErrNoVotes
	}

	order := make([]string, 0)
	seen := make(map[string]bool)
	scores := make(map[string]float64)
	for _, v := range votes {
		weight := v.Confidence
		if useElo {
			weight *= e.eloMultiplier(v.Domain, v.Agent)
		}
		if !seen[v.Decision] {
			seen[v.Decision] = true
			order = append(order, v.Decision)
		}
		scores[v.Decision] += weight
	}

	best, bestScore := order[0], scores[order[0]]
	for _, d := range order[1:] {
		if scores[d] > bestScore {
			best, bestScore = d, scores[d]
		}
	}

	second := 0.0
	for _, d := range order {
		if d == best {
			continue
		}
		if scores[d] > second {
			second = scores[d]
		}
	}
	margin := bestScore
	if len(order) > 1 {
		margin = bestScore - second
	}
	return Decision{Winner: best, Margin: margin}, nil
}

func (e *Engine) eloMultiplier(domain, agent string) float64 {
	return e.rating(domain, agent) / baseRating
}

func (e *Engine) rating(domain, agent string) float64 {
	byAgent, ok := e.elo[domain]
	if !ok {
		return baseRating
	}
	r, ok := byAgent[agent]
	if !ok {
		return baseRating
	}
	return r
}

func (e *Engine) setRating(domain, agent string, rating float64) {
	byAgent, ok := e.elo[domain]
	if !ok {
		byAgent = make(map[string]float64)
		e.elo[domain] = byAgent
	}
	byAgent[agent] = rating
}
