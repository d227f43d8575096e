// Package decompose splits compound task descriptions into independently
// routable subtask strings.
//
// The queue gives no ordering guarantee among the results: only priority
// governs dequeue order. Callers that need the subtasks to run in sequence
// must encode that with decreasing submission priority.
package decompose

import "strings"

// connectors are the coordinating phrases recognized as subtask boundaries,
// longest first so "and then" wins over "and". Includes the common Spanish,
// French, and German equivalents.
var connectors = []string{
	" and then ",
	" and also ",
	" and ",
	" also ",
	" y luego ",
	" y también ",
	" y ",
	" et ensuite ",
	" et aussi ",
	" et ",
	" und dann ",
	" und auch ",
	" und ",
}

// Split breaks description on coordinating connectors into an ordered list
// of non-empty subtask strings. Descriptions without a connector come back
// unchanged as a single-element list.
func Split(description string) []string {
	parts := []string{description}
	for _, connector := range connectors {
		parts = splitAll(parts, connector)
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{description}
	}
	return out
}

func splitAll(parts []string, connector string) []string {
	var out []string
	for _, part := range parts {
		lower := strings.ToLower(part)
		for {
			idx := strings.Index(lower, connector)
			if idx < 0 {
				out = append(out, part)
				break
			}
			out = append(out, part[:idx])
			part = part[idx+len(connector):]
			lower = lower[idx+len(connector):]
		}
	}
	return out
}
