package keys

import (
	"fmt"
	"strings"
)

// Segment is a single pattern element. Depth selects the key position it
// constrains; negative depths count back from the end of the key, so -1 is
// the last segment. An empty Name leaves the position unconstrained unless
// NamePart is set, in which case the position must contain NamePart as a
// substring. IsFile additionally requires the position to be the terminal
// segment of the key.
//
// Segment is a value type; the With* builders return modified copies so a
// shared base segment can be specialized without mutation:
//
//	year := keys.Segment{Depth: 0}
//	jan2020 := []keys.Segment{year.WithName("2020"), keys.Segment{Depth: 1, Name: "01"}}
type Segment struct {
	Depth    int
	Name     string
	NamePart string
	IsFile   bool
}

// WithName returns a copy of s constrained to the exact segment name.
func (s Segment) WithName(name string) Segment {
	s.Name = name
	return s
}

// WithNamePart returns a copy of s constrained to segments containing part.
// It is only consulted when Name is empty.
func (s Segment) WithNamePart(part string) Segment {
	s.NamePart = part
	return s
}

// Matches reports whether s holds for the given key segments. Depths that
// fall outside the key report false rather than an error.
func (s Segment) Matches(keySegments []string) bool {
	i, ok := resolveDepth(s.Depth, len(keySegments))
	if !ok {
		return false
	}
	if s.IsFile && i != len(keySegments)-1 {
		return false
	}
	switch {
	case s.Name != "":
		return keySegments[i] == s.Name
	case s.NamePart != "":
		return strings.Contains(keySegments[i], s.NamePart)
	}
	return true
}

func (s Segment) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", s.Depth)
	if s.Name != "" {
		fmt.Fprintf(&b, "=%s", s.Name)
	} else if s.NamePart != "" {
		fmt.Fprintf(&b, "~%s", s.NamePart)
	}
	if s.IsFile {
		b.WriteString(":file")
	}
	return b.String()
}

// resolveDepth maps a possibly negative depth onto a key of n segments.
// The second return is false when the depth falls outside the key.
func resolveDepth(depth, n int) (int, bool) {
	if depth < 0 {
		depth += n
	}
	if depth < 0 || depth >= n {
		return 0, false
	}
	return depth, true
}
