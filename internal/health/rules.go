// Package health implements C8: the self-healing monitor that turns C2
// telemetry statistics into recommended actions (skip_tool, retry, skip_role,
// create_issue) via a small declarative rule set.
// The rule evaluation itself is a direct, from-scratch use of the real
// google/mangle packages (ast/analysis/engine/factstore/parse), grounded on
// internal/core/kernel.go's RealKernel: parse the program text once with
// parse.Unit, analyze it with analysis.AnalyzeOneUnit into a cached
// ProgramInfo, then on every checkHealth() build a fresh
// factstore.NewSimpleInMemoryStore(), add this round's EDB atoms, and run
// engine.EvalProgramWithStats with a bounded WithCreatedFactLimit so a
// misbehaving rule can never hang evaluation. internal/mangle's own wrapper
// types are not reused here — ruleEngine below is written fresh against the
// upstream packages directly.
package health

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

const maxDerivedFacts = 50_000

// program is the fixed Datalog rule text this package evaluates against.
// EDB predicates (tool_problem, role_failure, chronic_pattern) are asserted
// fresh every round from telemetry queries; the IDB rules below derive the
// recommended action for each.
const program = `
tool_status(Tool, /tripped) :- tool_problem(Tool, Rate), Rate < 0.3.
tool_status(Tool, /warning) :- tool_problem(Tool, Rate), Rate >= 0.3, Rate < 0.7.

recommended_action(Tool, /skip_tool) :- tool_status(Tool, /tripped).
recommended_action(Tool, /retry_with_backoff) :- tool_status(Tool, /warning).

role_skip(Role) :- role_failure(Role, PI), PI < 0.5.
recommended_action(Role, /skip_role) :- role_skip(Role).

recommended_action(Pattern, /create_issue) :- chronic_pattern(Pattern, Count).
`

// ruleEngine holds the analyzed program so repeated checkHealth() calls
// don't re-parse the fixed rule text every time.
type ruleEngine struct {
	info *analysis.ProgramInfo
}

func newRuleEngine() (*ruleEngine, error) {
	parsed, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("health: parse rules: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		return nil, fmt.Errorf("health: analyze rules: %w", err)
	}
	return &ruleEngine{info: info}, nil
}

// edbFact is one ground fact fed into the store before evaluation.
type edbFact struct {
	predicate string
	args      []ast.BaseTerm
}

func fact(predicate string, args ...ast.BaseTerm) edbFact {
	return edbFact{predicate: predicate, args: args}
}

// evaluate populates a fresh in-memory store with facts, runs the program to
// fixpoint, and returns every atom derived for predicate.
func (r *ruleEngine) evaluate(facts []edbFact, predicate string) ([]ast.Atom, error) {
	store := factstore.NewSimpleInMemoryStore()
	for _, f := range facts {
		store.Add(ast.NewAtom(f.predicate, f.args...))
	}

	if _, err := engine.EvalProgramWithStats(r.info, store, engine.WithCreatedFactLimit(maxDerivedFacts)); err != nil {
		return nil, fmt.Errorf("health: evaluate: %w", err)
	}

	var results []ast.Atom
	for pred := range r.info.Decls {
		if pred.Symbol != predicate {
			continue
		}
		if err := store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			results = append(results, a)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("health: query %s: %w", predicate, err)
		}
		break
	}
	return results, nil
}

// atomFirstArg extracts the first argument of an atom as a string, covering
// both name and string constants.
func atomFirstArg(a ast.Atom) string {
	if len(a.Args) == 0 {
		return ""
	}
	c, ok := a.Args[0].(ast.Constant)
	if !ok {
		return ""
	}
	return c.Symbol
}

// atomSecondArgName extracts a name-constant second argument (e.g.
// /skip_tool) with its leading slash stripped.
func atomSecondArgName(a ast.Atom) string {
	if len(a.Args) < 2 {
		return ""
	}
	c, ok := a.Args[1].(ast.Constant)
	if !ok {
		return ""
	}
	return strings.TrimPrefix(c.Symbol, "/")
}
