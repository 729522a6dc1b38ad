// Package keys implements matching and rewriting of object-store keys by
// their "/"-delimited segments. Patterns are ordered lists of Segment values
// that constrain individual positions of a key; rewrites replace or extend
// positions while leaving the rest of the key untouched.
package keys

import "strings"

// Delimiter separates the segments of an object-store key.
const Delimiter = "/"

// Split breaks a key into its segments. A single trailing delimiter (the
// listing representation of a folder key) is dropped before splitting, so
// "a/b/" and "a/b" produce the same segments. The empty key yields no
// segments.
func Split(key string) []string {
	key = strings.TrimSuffix(key, Delimiter)
	if key == "" {
		return nil
	}
	return strings.Split(key, Delimiter)
}

// Join reassembles segments into a key. Join(Split(k)) == k for any
// canonical key, i.e. one without a trailing delimiter.
func Join(segments []string) string {
	return strings.Join(segments, Delimiter)
}
