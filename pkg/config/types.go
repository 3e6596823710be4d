package config

import (
	"time"
)

// RegistryConfig points the resolver at a plugin registry on disk.
type RegistryConfig struct {
	// Root is the directory containing the plugins/ tree.
	Root string `json:"root" validate:"required"`

	// GroupID is the default artifact group applied to bare coordinates.
	GroupID string `json:"group_id,omitempty"`

	// Types restricts which distribution types are scanned.
	Types []string `json:"types,omitempty" validate:"omitempty,dive,oneof=server client"`
}

// FilterConfig narrows resolution to a subset of plugins.
type FilterConfig struct {
	// Include lists glob patterns matched against plugin ids.
	// Empty means every plugin is resolved.
	Include []string `json:"include,omitempty"`
}

// OutputConfig controls how resolved configurations are rendered.
type OutputConfig struct {
	// Format is the output encoding.
	Format string `json:"format,omitempty" validate:"omitempty,oneof=yaml json"`

	// Latest keeps only the newest release per source path.
	Latest bool `json:"latest,omitempty"`
}

// StoreConfig configures result persistence.
type StoreConfig struct {
	// Enabled turns run recording on.
	Enabled bool `json:"enabled,omitempty"`

	// Path is the SQLite database file.
	Path string `json:"path,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	// Console enables human-readable console output instead of JSON.
	Console bool `json:"console,omitempty"`
}

// WorkspaceConfig is the top-level tool configuration, typically
// declared under the "workspace" field of a plugmatrix.cue file.
type WorkspaceConfig struct {
	// Name is the workspace name.
	Name string `json:"name" validate:"required"`

	// Registry locates the plugin tree to resolve.
	Registry RegistryConfig `json:"registry"`

	// Releases lists the target releases to resolve against.
	Releases []string `json:"releases" validate:"required,min=1"`

	// Filter narrows resolution to matching plugins.
	Filter FilterConfig `json:"filter,omitempty"`

	// Output controls rendering of the result list.
	Output OutputConfig `json:"output,omitempty"`

	// Store configures run persistence.
	Store StoreConfig `json:"store,omitempty"`

	// Log configures logging.
	Log LogConfig `json:"log,omitempty"`
}

// ParsedConfig is the result of parsing one or more CUE sources.
type ParsedConfig struct {
	// Workspace is the decoded workspace configuration.
	Workspace WorkspaceConfig `json:"workspace"`

	// SourceFiles are the CUE files that were parsed.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when the configuration was parsed.
	ParsedAt time.Time `json:"parsed_at"`

	// Errors lists any parse or validation errors.
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is a parse or validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the CUE path to the error (e.g., "workspace.registry").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}

// DefaultWorkspace returns a workspace configuration with defaults applied.
func DefaultWorkspace() WorkspaceConfig {
	return WorkspaceConfig{
		Name: "default",
		Registry: RegistryConfig{
			Root: "plugins",
		},
		Output: OutputConfig{
			Format: "yaml",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults fills unset fields from DefaultWorkspace.
func (wc *WorkspaceConfig) ApplyDefaults() {
	def := DefaultWorkspace()
	if wc.Name == "" {
		wc.Name = def.Name
	}
	if wc.Registry.Root == "" {
		wc.Registry.Root = def.Registry.Root
	}
	if wc.Output.Format == "" {
		wc.Output.Format = def.Output.Format
	}
	if wc.Log.Level == "" {
		wc.Log.Level = def.Log.Level
	}
}
