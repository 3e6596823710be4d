// Package version parses and compares host-framework release identifiers
// and the version ranges plugin declarations are scoped by.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedVersion indicates a release identifier that does not match
// the dotted numeric grammar.
var ErrMalformedVersion = errors.New("malformed version")

// Release is an ordered identifier for a host-framework release.
// It is immutable once parsed and is used only as a lookup and
// comparison key.
type Release struct {
	segments []int
	text     string
}

// ParseRelease parses a dotted numeric release identifier such as "1.0"
// or "2.0.3".
func ParseRelease(text string) (Release, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Release{}, fmt.Errorf("%w: empty release identifier", ErrMalformedVersion)
	}

	parts := strings.Split(trimmed, ".")
	segments := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Release{}, fmt.Errorf("%w: %q is not a dotted numeric version", ErrMalformedVersion, text)
		}
		segments[i] = n
	}

	return Release{segments: segments, text: trimmed}, nil
}

// MustParseRelease parses a release identifier and panics on failure.
// Intended for tests and static tables.
func MustParseRelease(text string) Release {
	r, err := ParseRelease(text)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the release exactly as it was written.
func (r Release) String() string {
	return r.text
}

// IsZero reports whether the release is the zero value (never parsed).
func (r Release) IsZero() bool {
	return r.segments == nil
}

// Compare orders two releases numerically segment by segment. Missing
// trailing segments compare as zero, so "1.0" equals "1.0.0".
func (r Release) Compare(other Release) int {
	n := len(r.segments)
	if len(other.segments) > n {
		n = len(other.segments)
	}

	for i := 0; i < n; i++ {
		var a, b int
		if i < len(r.segments) {
			a = r.segments[i]
		}
		if i < len(other.segments) {
			b = other.segments[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}

	return 0
}

// Less reports whether r orders strictly before other.
func (r Release) Less(other Release) bool {
	return r.Compare(other) < 0
}
