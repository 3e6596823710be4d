package version

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedVersionRange indicates a range expression with invalid
// syntax. Callers are expected to wrap it with the owning plugin id and
// the raw expression.
var ErrMalformedVersionRange = errors.New("malformed version range")

// Range is an interval over releases, parsed from a bracket expression:
//
//	[1.0,2.0)   1.0 inclusive up to but excluding 2.0
//	[1.0,)      1.0 and every later release
//	(,2.0]      everything up to and including 2.0
//	[1.0]       exactly 1.0
//
// A missing bound leaves that side of the interval open.
type Range struct {
	lower          Release
	upper          Release
	lowerInclusive bool
	upperInclusive bool
	text           string
}

// ParseRange parses a bracket range expression.
func ParseRange(text string) (Range, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 3 {
		return Range{}, fmt.Errorf("%w: %q", ErrMalformedVersionRange, text)
	}

	var lowerInclusive, upperInclusive bool
	switch trimmed[0] {
	case '[':
		lowerInclusive = true
	case '(':
		lowerInclusive = false
	default:
		return Range{}, fmt.Errorf("%w: %q must open with '[' or '('", ErrMalformedVersionRange, text)
	}
	switch trimmed[len(trimmed)-1] {
	case ']':
		upperInclusive = true
	case ')':
		upperInclusive = false
	default:
		return Range{}, fmt.Errorf("%w: %q must close with ']' or ')'", ErrMalformedVersionRange, text)
	}

	inner := trimmed[1 : len(trimmed)-1]
	rng := Range{
		lowerInclusive: lowerInclusive,
		upperInclusive: upperInclusive,
		text:           trimmed,
	}

	lowerText, upperText, hasComma := strings.Cut(inner, ",")
	if !hasComma {
		// Single-version form: [1.0] pins exactly that release.
		if !lowerInclusive || !upperInclusive || strings.TrimSpace(inner) == "" {
			return Range{}, fmt.Errorf("%w: %q", ErrMalformedVersionRange, text)
		}
		pinned, err := ParseRelease(inner)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrMalformedVersionRange, text, err)
		}
		rng.lower = pinned
		rng.upper = pinned
		return rng, nil
	}

	if strings.TrimSpace(lowerText) != "" {
		lower, err := ParseRelease(lowerText)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrMalformedVersionRange, text, err)
		}
		rng.lower = lower
	}
	if strings.TrimSpace(upperText) != "" {
		upper, err := ParseRelease(upperText)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrMalformedVersionRange, text, err)
		}
		rng.upper = upper
	}

	if rng.lower.IsZero() && rng.upper.IsZero() {
		return Range{}, fmt.Errorf("%w: %q has no bounds", ErrMalformedVersionRange, text)
	}
	if !rng.lower.IsZero() && !rng.upper.IsZero() && rng.upper.Less(rng.lower) {
		return Range{}, fmt.Errorf("%w: %q upper bound precedes lower bound", ErrMalformedVersionRange, text)
	}

	return rng, nil
}

// MustParseRange parses a range expression and panics on failure.
// Intended for tests.
func MustParseRange(text string) Range {
	rng, err := ParseRange(text)
	if err != nil {
		panic(err)
	}
	return rng
}

// Contains reports whether the release falls within the range bounds.
func (r Range) Contains(release Release) bool {
	if !r.lower.IsZero() {
		cmp := release.Compare(r.lower)
		if cmp < 0 || (cmp == 0 && !r.lowerInclusive) {
			return false
		}
	}
	if !r.upper.IsZero() {
		cmp := release.Compare(r.upper)
		if cmp > 0 || (cmp == 0 && !r.upperInclusive) {
			return false
		}
	}
	return true
}

// SafeName returns the stable display name of the range. It doubles as
// the name of the per-range source subdirectory inside a plugin.
func (r Range) SafeName() string {
	return r.text
}

// String returns the range exactly as it was written.
func (r Range) String() string {
	return r.text
}
