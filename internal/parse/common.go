package parse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// isExported reports whether name starts with an uppercase letter, used
// both for the React/Next component heuristic and for Go's own export
// convention.
func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

var jsxTagRe = regexp.MustCompile(`<([A-Z][A-Za-z0-9_.]*)[\s/>]`)

// jsxTags returns the distinct uppercase JSX tag names referenced in body,
// used for both the `component` classification and the `renders` edges.
func jsxTags(body string) []string {
	matches := jsxTagRe.FindAllStringSubmatch(body, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

var hookRe = regexp.MustCompile(`\buse[A-Z][A-Za-z0-9]*\b`)

// hooks returns distinct identifiers matching use[A-Z]*.
func hooks(body string) []string {
	matches := hookRe.FindAllString(body, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// apiRouteRe matches backend route decorators/registrations of the shape
// @<app>.{get,post,put,delete,patch,route}("/api/...").
var apiRouteRe = regexp.MustCompile(`@\w+\.(?:get|post|put|delete|patch|route)\(\s*["']({?/api[^"']*)["']`)

// apiRoute returns the first backend route decorator match in body, if any.
func apiRoute(body string) string {
	m := apiRouteRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

// apiCallRe matches client-side fetch(...)/axios.verb(...) calls whose
// first string argument starts with /api.
var apiCallRe = regexp.MustCompile(`(?:fetch|axios\.(?:get|post|put|delete|patch))\(\s*["'](/api[^"']*)["']`)

// apiCalls returns every distinct client-side /api call URL in body.
func apiCalls(body string) []string {
	matches := apiCallRe.FindAllStringSubmatch(body, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// dedupe returns s with duplicate entries removed, order preserved.
func dedupe(s []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range s {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// finishNode fills in the JSX/hook/API heuristics shared across
// language parsers once the language-specific walker has populated the
// structural fields (name, type, calls, inherits).
func finishNode(n *taskmodel.ASTNode) {
	if isExported(n.Name) {
		if tags := jsxTags(n.Content); len(tags) > 0 {
			n.NodeType = taskmodel.NodeComponent
			n.Renders = tags
		}
	}
	if route := apiRoute(n.Content); route != "" {
		n.APIRoute = route
	}
	if calls := apiCalls(n.Content); len(calls) > 0 {
		n.APICalls = calls
	}
	n.Calls = dedupe(n.Calls)
	n.Inherits = dedupe(n.Inherits)
}
