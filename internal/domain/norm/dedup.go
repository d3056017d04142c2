package norm

import "strings"

// DedupText removes duplicate text norms keyed by (text, full_id).
// First occurrence wins, order is preserved and norms with empty text are dropped.
func DedupText(norms []Text) []Text {
	type key struct{ text, fullID string }
	seen := make(map[key]struct{}, len(norms))
	out := make([]Text, 0, len(norms))
	for _, n := range norms {
		if strings.TrimSpace(n.text) == "" {
			continue
		}
		k := key{n.text, n.fullID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}

// DedupTable removes duplicate table norms keyed by (indicator, canonical values, full_id).
// First occurrence wins and order is preserved.
func DedupTable(norms []Table) []Table {
	type key struct{ indicator, values, fullID string }
	seen := make(map[key]struct{}, len(norms))
	out := make([]Table, 0, len(norms))
	for _, n := range norms {
		k := key{n.indicator, n.ValuesKey(), n.fullID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
