package keys

import "sort"

// Match reports whether every pattern holds for key. Patterns may be sparse
// and unordered; positions no pattern references are unconstrained. An empty
// pattern list matches every key.
func Match(patterns []Segment, key string) bool {
	segs := Split(key)
	for _, p := range patterns {
		if !p.Matches(segs) {
			return false
		}
	}
	return true
}

// Filter returns the keys from listing that match all patterns, preserving
// listing order. Duplicate keys in the listing stay duplicated.
func Filter(patterns []Segment, listing []string) []string {
	var matched []string
	for _, key := range listing {
		if Match(patterns, key) {
			matched = append(matched, key)
		}
	}
	return matched
}

// ListPrefix derives the longest literal key prefix implied by patterns,
// suitable for scoping a store listing before Filter is applied. Only a
// gap-free run of exactly named segments starting at depth zero contributes;
// the first wildcard, substring or out-of-order depth ends the run. The
// prefix carries a trailing delimiter unless the run ends in a file segment,
// so "2020" scopes to the folder rather than every key sharing the
// characters. Patterns with no such run yield the empty prefix.
func ListPrefix(patterns []Segment) string {
	ordered := make([]Segment, len(patterns))
	copy(ordered, patterns)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Depth < ordered[j].Depth })

	var prefix string
	for depth, p := range ordered {
		if p.Depth != depth || p.Name == "" {
			break
		}
		if p.IsFile {
			return prefix + p.Name
		}
		prefix += p.Name + Delimiter
	}
	return prefix
}
