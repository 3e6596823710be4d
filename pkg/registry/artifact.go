package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedArtifact indicates an artifact declaration that does not
// match any of the accepted node shapes or coordinate forms.
var ErrMalformedArtifact = errors.New("malformed artifact declaration")

// ReleasePlaceholder is the version sentinel meaning "substitute the
// release under resolution".
const ReleasePlaceholder = "{release}"

// ArtifactRef is a package coordinate a built plugin depends on.
// Immutable after parsing; placeholder substitution produces a copy.
type ArtifactRef struct {
	// GroupID is the coordinate group.
	GroupID string `yaml:"group" json:"group" validate:"required"`

	// ArtifactID is the coordinate name.
	ArtifactID string `yaml:"artifact" json:"artifact" validate:"required"`

	// Version is a literal version or ReleasePlaceholder.
	Version string `yaml:"version" json:"version" validate:"required"`

	// Alias is an optional short name for the artifact.
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`

	// Module scopes the artifact to one framework module. Empty means
	// the artifact applies to the plugin's primary distribution type.
	Module Module `yaml:"module,omitempty" json:"module,omitempty"`
}

// ParseCoordinate parses a coordinate string into an ArtifactRef.
// Accepted forms, with groupID filling in an omitted group:
//
//	artifact
//	artifact:version
//	group:artifact:version
//
// An omitted or "{release}" version stays a placeholder until
// resolution. A version naming a key of vars is replaced by that
// variable's value.
func ParseCoordinate(text, groupID string, vars map[string]string) (ArtifactRef, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ArtifactRef{}, fmt.Errorf("%w: empty coordinate", ErrMalformedArtifact)
	}

	parts := strings.Split(trimmed, ":")
	ref := ArtifactRef{GroupID: groupID, Version: ReleasePlaceholder}
	switch len(parts) {
	case 1:
		ref.ArtifactID = parts[0]
	case 2:
		ref.ArtifactID = parts[0]
		ref.Version = parts[1]
	case 3:
		ref.GroupID = parts[0]
		ref.ArtifactID = parts[1]
		ref.Version = parts[2]
	default:
		return ArtifactRef{}, fmt.Errorf("%w: %q has too many coordinate segments", ErrMalformedArtifact, text)
	}

	if ref.GroupID == "" || ref.ArtifactID == "" {
		return ArtifactRef{}, fmt.Errorf("%w: %q is missing a group or artifact id", ErrMalformedArtifact, text)
	}
	if ref.Version == "" {
		ref.Version = ReleasePlaceholder
	}

	if name, ok := variableName(ref.Version); ok && name != "release" {
		value, defined := vars[name]
		if !defined {
			return ArtifactRef{}, fmt.Errorf("%w: %q references undefined version variable %q", ErrMalformedArtifact, text, name)
		}
		ref.Version = value
	}

	return ref, nil
}

// variableName extracts the name from a "{name}" version token.
func variableName(version string) (string, bool) {
	if len(version) > 2 && strings.HasPrefix(version, "{") && strings.HasSuffix(version, "}") {
		return version[1 : len(version)-1], true
	}
	return "", false
}

// IsPlaceholder reports whether the version still carries the release
// sentinel.
func (a ArtifactRef) IsPlaceholder() bool {
	return a.Version == ReleasePlaceholder
}

// WithVersion returns a copy of the artifact pinned to the given
// version. The receiver is never mutated.
func (a ArtifactRef) WithVersion(version string) ArtifactRef {
	a.Version = version
	return a
}

// WithModule returns a copy of the artifact scoped to the given module.
func (a ArtifactRef) WithModule(module Module) ArtifactRef {
	a.Module = module
	return a
}

// Coordinate returns the canonical group:artifact:version form.
func (a ArtifactRef) Coordinate() string {
	return a.GroupID + ":" + a.ArtifactID + ":" + a.Version
}
