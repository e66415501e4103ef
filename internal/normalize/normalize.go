// Package normalize maps the automation webhook's loosely-shaped HTTP
// responses to a single display string. The webhook is an external
// workflow tool whose output shape depends on how the flow was wired, so
// extraction probes a fixed set of candidate shapes in priority order and
// degrades to a constant fallback instead of ever failing.
package normalize

import (
	"encoding/json"
	"strings"
)

// Fallback is returned whenever no rule yields usable text, including
// malformed JSON that claimed a JSON content type.
const Fallback = "Sorry, I couldn't process that response. Please try again."

// Candidate field paths per shape, highest priority first. For arrays the
// paths are probed on the first element only; the bare {"json", ...} paths
// cover the workflow tool's item envelope.
var (
	arrayPaths = [][]string{
		{"json", "response"},
		{"json", "message"},
		{"json", "text"},
		{"response"},
		{"message"},
		{"text"},
	}
	objectPaths = [][]string{
		{"response"},
		{"message"},
		{"text"},
		{"answer"},
		{"reply"},
		{"output", "message"},
		{"output", "response"},
		{"output", "text"},
		{"data", "message"},
		{"data", "response"},
		{"data", "text"},
		{"result", "message"},
		{"result", "response"},
		{"result", "text"},
	}
)

// Extract returns the reply text carried by an HTTP response body. A
// non-JSON content type means the body already is the reply. The result
// is never empty: blank or unextractable input comes back as Fallback.
func Extract(body []byte, contentType string) string {
	if !isJSON(contentType) {
		return orFallback(string(body))
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Fallback
	}
	return orFallback(fromValue(v))
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

func fromValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return ""
		}
		first := val[0]
		if obj, ok := first.(map[string]any); ok {
			if s := probe(obj, arrayPaths); s != "" {
				return s
			}
		}
		if s, ok := first.(string); ok {
			return s
		}
		return ""
	case map[string]any:
		return probe(val, objectPaths)
	default:
		return ""
	}
}

// probe walks the candidate paths in order and returns the first
// non-blank string value found.
func probe(obj map[string]any, paths [][]string) string {
	for _, path := range paths {
		cur := any(obj)
		ok := true
		for _, field := range path {
			m, isMap := cur.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			cur, ok = m[field]
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		if s, isStr := cur.(string); isStr && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func orFallback(s string) string {
	if strings.TrimSpace(s) == "" {
		return Fallback
	}
	return s
}
