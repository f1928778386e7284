package graph

import (
	"regexp"
	"strings"
)

var (
	numericSegment = regexp.MustCompile(`^[0-9]+$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// NormalizeRoute strips the trailing slash and query string and replaces
// numeric or UUID path segments with `:id`, so `/api/users/42?x=1` and
// `/api/users/:id` resolve to the same key.
func NormalizeRoute(route string) string {
	if idx := strings.IndexByte(route, '?'); idx >= 0 {
		route = route[:idx]
	}
	route = strings.TrimSuffix(route, "/")

	segments := strings.Split(route, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if numericSegment.MatchString(seg) || uuidSegment.MatchString(seg) || isBraced(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// isBraced reports whether seg is a path-parameter placeholder of the
// shape `{id}` or `{user_id}`, which normalizes to `:id` the same as a
// literal numeric/UUID value would once a request is routed through it.
func isBraced(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2
}
