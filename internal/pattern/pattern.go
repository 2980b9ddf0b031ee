// Package pattern compiles glob path patterns and decides match and
// overlap relations between them. Overlap is the conflict primitive for
// the file-reservation engine: two patterns overlap when some hypothetical
// path could match both, computed structurally rather than by enumeration.
package pattern

import (
	"strings"

	"github.com/gobwas/glob"
)

// Pattern is a compiled glob path pattern.
type Pattern struct {
	raw      string
	segments []string
	matcher  glob.Glob
}

// Compile parses and compiles a glob pattern. Supported syntax: literal
// segments, "?" (one char, not "/"), "*" (any run, not "/"), "**" (any run
// including "/"), character classes, and "/" as the anchored separator.
func Compile(raw string) (*Pattern, error) {
	normalized := normalize(raw)
	g, err := glob.Compile(normalized, '/')
	if err != nil {
		return nil, err
	}
	return &Pattern{
		raw:      normalized,
		segments: strings.Split(normalized, "/"),
		matcher:  g,
	}, nil
}

// String returns the normalized pattern text.
func (p *Pattern) String() string {
	return p.raw
}

// Matches reports whether path (a normalized POSIX path, not itself a
// pattern) is matched by p.
func (p *Pattern) Matches(path string) bool {
	return p.matcher.Match(normalize(path))
}

// Overlaps reports whether there exists at least one hypothetical path
// matched by both p and other. The relation is commutative and reflexive:
// Overlaps(a, b) == Overlaps(b, a), and Overlaps(a, a) == true.
func (p *Pattern) Overlaps(other *Pattern) bool {
	return segmentsOverlap(p.segments, other.segments)
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return strings.TrimPrefix(s, "/")
}

// segmentsOverlap walks both segment lists in lock-step. "**" absorbs zero
// or more segments from the other side (tried greedily with backtracking
// via recursion); any other segment pair must be mutually compatible
// (literal equality, or either side being a single-segment wildcard
// pattern that covers the other — checked via segmentCompatible).
func segmentsOverlap(a, b []string) bool {
	return overlapRec(a, b)
}

func overlapRec(a, b []string) bool {
	switch {
	case len(a) == 0 && len(b) == 0:
		return true
	case len(a) == 0:
		return allDoubleStar(b)
	case len(b) == 0:
		return allDoubleStar(a)
	}

	if a[0] == "**" {
		// "**" may absorb zero segments (try matching the rest) or one
		// more segment of b and stay in place.
		if overlapRec(a[1:], b) {
			return true
		}
		return overlapRec(a, b[1:])
	}
	if b[0] == "**" {
		if overlapRec(a, b[1:]) {
			return true
		}
		return overlapRec(a[1:], b)
	}

	if !segmentCompatible(a[0], b[0]) {
		return false
	}
	return overlapRec(a[1:], b[1:])
}

// allDoubleStar reports whether every remaining segment is "**", meaning
// the exhausted side can still match zero additional segments.
func allDoubleStar(segs []string) bool {
	for _, s := range segs {
		if s != "**" {
			return false
		}
	}
	return true
}

// segmentCompatible decides whether two single-path-element segments can
// both be satisfied by some hypothetical concrete segment. Segments are
// themselves glob fragments ("*", "?", character classes, literals); two
// segments are compatible if they are textually identical, if one is a
// literal that the other (wildcard) segment matches, or if both contain
// wildcard constructs ("*", "?", "["): that last case is conservatively
// treated as compatible (overlap is an existence claim, not a proof of
// impossibility — false positives here only cause an extra conflict
// check, never a missed one).
func segmentCompatible(a, b string) bool {
	if a == b {
		return true
	}
	if isLiteral(a) && isLiteral(b) {
		return a == b
	}
	if isLiteral(a) || isLiteral(b) {
		wild, lit := a, b
		if isLiteral(a) {
			wild, lit = b, a
		}
		g, err := glob.Compile(wild, '/')
		if err != nil {
			return true
		}
		return g.Match(lit)
	}
	return true
}

func isLiteral(seg string) bool {
	return !strings.ContainsAny(seg, "*?[")
}
