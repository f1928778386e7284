package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// trailingCommaRe matches a comma followed only by whitespace before a
// closing brace/bracket — the most common LLM JSON defect.
var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// Repair extracts the first balanced JSON object from raw (tolerating a
// markdown code fence or chatter before/after it), strips trailing
// commas, and unmarshals it into an AgentResponse.
func Repair(raw string) (AgentResponse, error) {
	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		return AgentResponse{Status: StatusFailed}, fmt.Errorf("llm: no JSON object found in response")
	}
	jsonStr = trailingCommaRe.ReplaceAllString(jsonStr, "$1")

	var resp AgentResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return AgentResponse{Status: StatusFailed}, fmt.Errorf("llm: parse response: %w", err)
	}
	return resp, nil
}

// ExtractJSON finds the first top-level balanced {...} object in s,
// grounded on internal/perception/transducer_llm.go's brace-depth scan —
// generalized here to also skip a leading ```json/``` code fence marker
// before searching.
func ExtractJSON(s string) string {
	s = stripCodeFence(s)

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripCodeFence removes a leading ```[lang] ... ``` wrapper if present,
// leaving any interior content (and any chatter outside the fence) intact
// for ExtractJSON's brace scan.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl != -1 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return trimmed
}
