package keys

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeDepth is returned when an absolute replacement carries a
	// negative depth, or a relative depth reaches back past the start of
	// the key.
	ErrNegativeDepth = errors.New("replacement depth is negative")

	// ErrSegmentGap is returned when replacements extend a key but leave
	// one of the new positions without a name.
	ErrSegmentGap = errors.New("extension leaves an unnamed segment")
)

// Replace rewrites key by overwriting the positions named by replacements.
// Depths are absolute; a negative depth is an error, not a relative
// reference. Positions no replacement touches are preserved, as are
// positions targeted by a nameless replacement. A replacement past the end
// of the key extends it, provided every position between the current end and
// the furthest replacement receives a name; an unfillable gap is an error
// rather than silent empty padding.
//
// Replace(key, nil) returns key unchanged, and replacements with disjoint
// depths compose: applying them in one call or several produces the same
// key.
func Replace(key string, replacements []Segment) (string, error) {
	segs, err := replaceSegments(Split(key), replacements)
	if err != nil {
		return "", err
	}
	return Join(segs), nil
}

// ReplaceRelative is Replace with negative depths resolved against the
// length of the original key before any replacement applies: -1 targets the
// last segment, and for a key of N segments depth N appends one level.
// Non-negative depths pass through as absolute.
func ReplaceRelative(key string, replacements []Segment) (string, error) {
	segs := Split(key)
	resolved := make([]Segment, len(replacements))
	for i, r := range replacements {
		if r.Depth < 0 {
			depth := len(segs) + r.Depth
			if depth < 0 {
				return "", fmt.Errorf("relative depth %d on a key of %d segments: %w", r.Depth, len(segs), ErrNegativeDepth)
			}
			r.Depth = depth
		}
		resolved[i] = r
	}
	out, err := replaceSegments(segs, resolved)
	if err != nil {
		return "", err
	}
	return Join(out), nil
}

func replaceSegments(segs []string, replacements []Segment) ([]string, error) {
	maxDepth := len(segs) - 1
	for _, r := range replacements {
		if r.Depth < 0 {
			return nil, fmt.Errorf("replacement at depth %d: %w", r.Depth, ErrNegativeDepth)
		}
		if r.Depth > maxDepth {
			maxDepth = r.Depth
		}
	}

	out := make([]string, maxDepth+1)
	named := make([]bool, maxDepth+1)
	for i, s := range segs {
		out[i] = s
		named[i] = true
	}
	for _, r := range replacements {
		if r.Name == "" {
			continue
		}
		out[r.Depth] = r.Name
		named[r.Depth] = true
	}
	for i, ok := range named {
		if !ok {
			return nil, fmt.Errorf("position %d: %w", i, ErrSegmentGap)
		}
	}
	return out, nil
}
