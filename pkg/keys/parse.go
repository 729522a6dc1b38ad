package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSegment parses the textual form produced by Segment.String: a depth,
// an optional "=name" or "~part" constraint, and an optional ":file" marker.
// Examples: "0=2016", "-1~.png", "3:file".
func ParseSegment(s string) (Segment, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return Segment{}, fmt.Errorf("empty segment pattern")
	}

	var seg Segment
	if rest, ok := strings.CutSuffix(in, ":file"); ok {
		seg.IsFile = true
		in = rest
	}

	depth := in
	if i := strings.IndexAny(in, "=~"); i >= 0 {
		depth = in[:i]
		value := in[i+1:]
		if value == "" {
			return Segment{}, fmt.Errorf("segment pattern %q has an empty constraint", s)
		}
		if in[i] == '=' {
			seg.Name = value
		} else {
			seg.NamePart = value
		}
	}

	d, err := strconv.Atoi(depth)
	if err != nil {
		return Segment{}, fmt.Errorf("segment pattern %q has no depth: %v", s, err)
	}
	seg.Depth = d

	return seg, nil
}

// ParsePattern parses a comma separated list of segment patterns. Names
// containing commas must go through ParseSegment one at a time.
func ParsePattern(s string) ([]Segment, error) {
	parts := strings.Split(s, ",")
	segments := make([]Segment, 0, len(parts))
	for _, p := range parts {
		seg, err := ParseSegment(p)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
