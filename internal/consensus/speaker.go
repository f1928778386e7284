package consensus

import "sort"

// SelectSpeaker returns the smallest agent identifier in candidates not
// excluded by the no-consecutive-repeats and max-turns-per-agent
// constraints. Returns ("", false) if no candidate
// qualifies.
func SelectSpeaker(candidates []string, lastSpeaker string, noConsecutiveRepeats bool, turnsUsed map[string]int, maxTurnsPerAgent int) (string, bool) {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	for _, agent := range sorted {
		if noConsecutiveRepeats && agent == lastSpeaker {
			continue
		}
		if maxTurnsPerAgent > 0 && turnsUsed[agent] >= maxTurnsPerAgent {
			continue
		}
		return agent, true
	}
	return "", false
}
