package engine

import (
	"errors"
	"fmt"

	"github.com/plugmatrix/plugmatrix/pkg/configtree"
	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// ErrorKind classifies a resolution failure. Every kind is fatal for
// the whole run; a partial registry is worse than a failed build.
type ErrorKind string

const (
	// KindMalformedVersion is a release identifier that failed to parse.
	KindMalformedVersion ErrorKind = "malformed_version"

	// KindMalformedVersionRange is a range expression that failed to parse.
	KindMalformedVersionRange ErrorKind = "malformed_version_range"

	// KindMalformedArtifact is an artifact declaration with an invalid
	// shape or coordinate.
	KindMalformedArtifact ErrorKind = "malformed_artifact_declaration"

	// KindDuplicatePlugin is the same plugin id appearing under two
	// directories.
	KindDuplicatePlugin ErrorKind = "duplicate_plugin"

	// KindMissingPrerequisite is a prerequisite id with no plugin
	// directory.
	KindMissingPrerequisite ErrorKind = "missing_prerequisite"

	// KindCyclicPrerequisite is a prerequisite chain that revisits a
	// plugin.
	KindCyclicPrerequisite ErrorKind = "cyclic_prerequisite"

	// KindUnexpectedShape is a configuration tree node of the wrong kind.
	KindUnexpectedShape ErrorKind = "unexpected_configuration_shape"

	// KindInternal is a failure outside the declared taxonomy, such as
	// an unreadable directory.
	KindInternal ErrorKind = "internal"
)

// ResolveError is a classified resolution failure enriched with the
// identifying context it picked up while propagating.
type ResolveError struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// Message is the human-readable description.
	Message string

	// Plugin is the id of the plugin being resolved when the failure
	// occurred, if known.
	Plugin string

	// Path is the offending directory or file, if known.
	Path string

	// Value is the raw offending text, if any.
	Value string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Plugin != "" {
		msg += fmt.Sprintf(" (plugin=%s)", e.Plugin)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (value=%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is matches ResolveErrors by kind.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithPlugin attaches the plugin id being resolved.
func (e *ResolveError) WithPlugin(pluginID string) *ResolveError {
	e.Plugin = pluginID
	return e
}

// WithPath attaches the offending directory or file.
func (e *ResolveError) WithPath(path string) *ResolveError {
	e.Path = path
	return e
}

// WithValue attaches the raw offending text.
func (e *ResolveError) WithValue(value string) *ResolveError {
	e.Value = value
	return e
}

// newError creates a ResolveError of the given kind.
func newError(kind ErrorKind, message string, err error) *ResolveError {
	return &ResolveError{Kind: kind, Message: message, Err: err}
}

// NewDuplicatePluginError reports the same plugin id found under two
// directories. Enumeration is not allowed to silently prefer one.
func NewDuplicatePluginError(pluginID, previousPath, newPath string) *ResolveError {
	return &ResolveError{
		Kind:    KindDuplicatePlugin,
		Message: fmt.Sprintf("plugin id %q already registered at %s, found again at %s", pluginID, previousPath, newPath),
		Plugin:  pluginID,
		Path:    newPath,
	}
}

// NewMissingPrerequisiteError reports a prerequisite that has no plugin
// directory under the scanned root.
func NewMissingPrerequisiteError(pluginID, prerequisiteID string) *ResolveError {
	return &ResolveError{
		Kind:    KindMissingPrerequisite,
		Message: fmt.Sprintf("plugin %q requires %q, which was not found", pluginID, prerequisiteID),
		Plugin:  pluginID,
		Value:   prerequisiteID,
	}
}

// NewCyclicPrerequisiteError reports a prerequisite chain that came
// back to a plugin already being resolved.
func NewCyclicPrerequisiteError(chain []string) *ResolveError {
	cycle := ""
	for i, id := range chain {
		if i > 0 {
			cycle += " -> "
		}
		cycle += id
	}
	return &ResolveError{
		Kind:    KindCyclicPrerequisite,
		Message: fmt.Sprintf("prerequisite cycle: %s", cycle),
	}
}

// classify wraps an error from the parsing layers into a ResolveError
// with the matching kind. Already-classified errors pass through.
func classify(err error, message string) *ResolveError {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr
	}

	kind := KindInternal
	switch {
	case errors.Is(err, version.ErrMalformedVersion):
		kind = KindMalformedVersion
	case errors.Is(err, version.ErrMalformedVersionRange):
		kind = KindMalformedVersionRange
	case errors.Is(err, registry.ErrMalformedArtifact):
		kind = KindMalformedArtifact
	case errors.Is(err, configtree.ErrUnexpectedShape):
		kind = KindUnexpectedShape
	}

	return newError(kind, message, err)
}

// IsDuplicatePlugin reports whether err is a duplicate-plugin failure.
func IsDuplicatePlugin(err error) bool {
	return hasKind(err, KindDuplicatePlugin)
}

// IsMissingPrerequisite reports whether err is a missing-prerequisite
// failure.
func IsMissingPrerequisite(err error) bool {
	return hasKind(err, KindMissingPrerequisite)
}

// IsCyclicPrerequisite reports whether err is a prerequisite-cycle
// failure.
func IsCyclicPrerequisite(err error) bool {
	return hasKind(err, KindCyclicPrerequisite)
}

func hasKind(err error, kind ErrorKind) bool {
	var e *ResolveError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
