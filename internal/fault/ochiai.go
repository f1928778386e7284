// Package fault implements C7: spectrum-based fault localization via the
// Ochiai suspiciousness formula over a test run's executed-line coverage
package fault

import (
	"fmt"
	"math"
	"sort"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// Suspect is one ranked line.
type Suspect struct {
	File  string
	Line  int
	Score float64
}

// Localize ranks every line executed by at least one test by Ochiai
// suspiciousness:
//	S(l) = failed(l) / sqrt(totalFailed * (failed(l) + passed(l)))
// returning the topK highest-scoring lines. If totalFailed is 0, no
// localization is needed and Localize returns (nil, false).
func Localize(spectrum *taskmodel.CoverageSpectrum, topK int) ([]Suspect, bool) {
	if spectrum.TotalFailed == 0 {
		return nil, false
	}

	type key struct {
		file string
		line int
	}
	failedCount := map[key]int{}
	passedCount := map[key]int{}
	for file, lines := range spectrum.ExecutedLines[taskmodel.OutcomeFailed] {
		for line := range lines {
			failedCount[key{file, line}]++
		}
	}
	for file, lines := range spectrum.ExecutedLines[taskmodel.OutcomePassed] {
		for line := range lines {
			passedCount[key{file, line}]++
		}
	}

	seen := map[key]bool{}
	var suspects []Suspect
	for k := range failedCount {
		seen[k] = true
	}
	for k := range passedCount {
		seen[k] = true
	}
	for k := range seen {
		failed := failedCount[k]
		passed := passedCount[k]
		suspects = append(suspects, Suspect{File: k.file, Line: k.line, Score: ochiai(failed, passed, spectrum.TotalFailed)})
	}

	sort.Slice(suspects, func(i, j int) bool {
		if suspects[i].Score != suspects[j].Score {
			return suspects[i].Score > suspects[j].Score
		}
		if suspects[i].File != suspects[j].File {
			return suspects[i].File < suspects[j].File
		}
		return suspects[i].Line < suspects[j].Line
	})

	if topK <= 0 || topK > len(suspects) {
		topK = len(suspects)
	}
	return suspects[:topK], true
}

func ochiai(failed, passed, totalFailed int) float64 {
	if failed == 0 {
		return 0
	}
	denom := float64(totalFailed) * float64(failed+passed)
	if denom == 0 {
		return 0
	}
	return float64(failed) / math.Sqrt(denom)
}

// DebugPrompt renders suspects and optional code snippets into a textual
// prompt for an LLM-backed debugging step.
func DebugPrompt(suspects []Suspect, snippets map[string]string) string {
	out := "Ranked suspicious lines (Ochiai):\n"
	for i, s := range suspects {
		out += formatSuspect(i+1, s)
		if snippet, ok := snippets[key(s.File, s.Line)]; ok {
			out += "    " + snippet + "\n"
		}
	}
	return out
}

func formatSuspect(rank int, s Suspect) string {
	return fmt.Sprintf("%d. %s:%d (score=%.4f)\n", rank, s.File, s.Line, s.Score)
}

func key(file string, line int) string {
	return fmt.Sprintf("%s:%d", file, line)
}
