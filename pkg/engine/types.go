package engine

import (
	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// moduleOrder fixes the order configurations are emitted in for one
// plugin. Every module's parent precedes it in this list, which the
// roots-first sort relies on for siblings.
var moduleOrder = []registry.Module{
	registry.ModuleCore,
	registry.ModuleClient,
	registry.ModuleServer,
	registry.ModuleWeb,
}

// ConfigurationStub is one (distribution type, plugin, release)
// combination produced by enumeration. It carries just enough to drive
// resolution and is discarded afterwards.
type ConfigurationStub struct {
	// Type is the plugin's base distribution type (server or client).
	Type registry.Module

	// Release is the target framework release.
	Release version.Release

	// PluginID is the plugin directory name.
	PluginID string

	// PluginDir is the absolute plugin directory path.
	PluginDir string

	// Modules is the applicable module set: modules with declared source
	// directories plus the base distribution type, in moduleOrder.
	Modules []registry.Module
}

// Configuration is one fully resolved (plugin, release, module)
// combination. Immutable once built; the full list is the unit of
// output.
type Configuration struct {
	// SourcePath is the source directory relative to the plugins root.
	SourcePath string `json:"source_path" yaml:"source_path" validate:"required"`

	// PluginID is the plugin identifier.
	PluginID string `json:"plugin_id" yaml:"plugin_id" validate:"required"`

	// Type is the plugin's base distribution type.
	Type registry.Module `json:"type" yaml:"type" validate:"required"`

	// Release is the framework release the configuration was resolved
	// for.
	Release string `json:"release" yaml:"release" validate:"required"`

	// Module is the framework module this configuration targets.
	Module registry.Module `json:"module" yaml:"module" validate:"required"`

	// VersionRange is the display name of the range the declaration was
	// selected from.
	VersionRange string `json:"version_range" yaml:"version_range" validate:"required"`

	// Artifacts is the merged, ordered artifact list. Duplicates
	// produced by the prerequisite merge are preserved.
	Artifacts []registry.ArtifactRef `json:"artifacts" yaml:"artifacts"`

	// Repositories lists extra artifact-registry URLs from the
	// manifest.
	Repositories []string `json:"repositories,omitempty" yaml:"repositories,omitempty"`

	// ParentKey names the configuration this one logically extends, as
	// "<pluginId>.<parentModule>.<release>". Empty when the module's
	// parent is not in the plugin's applicable set.
	ParentKey string `json:"parent_key,omitempty" yaml:"parent_key,omitempty"`
}

// Key returns the synthetic identity of the configuration, in the same
// form parent keys are built in.
func (c Configuration) Key() string {
	return c.PluginID + "." + c.Module.String() + "." + c.Release
}

// configurationKey builds the synthetic key referencing a sibling
// configuration of the same plugin and release.
func configurationKey(pluginID string, module registry.Module, release version.Release) string {
	return pluginID + "." + module.String() + "." + release.String()
}
