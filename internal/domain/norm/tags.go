package norm

import "strings"

// SplitTags splits a comma-joined multi-value field into trimmed, lower-cased tags.
// Empty tags are skipped.
func SplitTags(field string) []string {
	raw := strings.Split(field, ",")
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// TagsIntersect reports whether the comma-joined field shares at least one tag
// with wanted (case-insensitive).
func TagsIntersect(field string, wanted []string) bool {
	have := SplitTags(field)
	if len(have) == 0 {
		return false
	}
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// NormalizeTagList flattens a list of possibly comma-joined tags into single tags,
// preserving order and dropping blanks and duplicates.
func NormalizeTagList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			key := strings.ToLower(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
