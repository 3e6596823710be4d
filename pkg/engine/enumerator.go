package engine

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/telemetry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// Enumerator walks the plugin directory tree and produces the cross
// product of (distribution type, plugin, release) as configuration
// stubs.
type Enumerator struct {
	root     string
	releases []version.Release
	filter   func(pluginID string) bool
	logger   *telemetry.Logger
}

// NewEnumerator creates an enumerator over the given plugins root. A
// nil filter admits every plugin.
func NewEnumerator(root string, releases []version.Release, filter func(string) bool, logger *telemetry.Logger) *Enumerator {
	if logger == nil {
		logger = telemetry.NewLogger(telemetry.Config{Level: "info"})
	}
	return &Enumerator{
		root:     root,
		releases: releases,
		filter:   filter,
		logger:   logger.NewComponentLogger("enumerator"),
	}
}

// Enumerate lazily yields one stub per (plugin, release) combination.
// Plugin ids must be unique across the whole tree; a second directory
// with a known id stops the sequence with a duplicate-plugin error.
// Filtered-out plugins are still recorded for duplicate detection but
// yield no stubs, so they never incur declaration parsing.
func (e *Enumerator) Enumerate() iter.Seq2[ConfigurationStub, error] {
	return func(yield func(ConfigurationStub, error) bool) {
		seen := make(map[string]string)

		for _, distType := range registry.DistributionTypes {
			pluginDirs, err := filepath.Glob(filepath.Join(e.root, distType.String(), "*"))
			if err != nil {
				yield(ConfigurationStub{}, newError(KindInternal, fmt.Sprintf("failed to scan %s plugins", distType), err))
				return
			}

			for _, pluginDir := range pluginDirs {
				info, err := os.Stat(pluginDir)
				if err != nil {
					yield(ConfigurationStub{}, newError(KindInternal, "failed to stat plugin directory", err).WithPath(pluginDir))
					return
				}
				if !info.IsDir() {
					continue
				}

				if _, err := os.Stat(filepath.Join(pluginDir, registry.IgnoreMarker)); err == nil {
					e.logger.WithPlugin(filepath.Base(pluginDir)).Debug("skipping ignored plugin directory")
					continue
				}

				pluginID := filepath.Base(pluginDir)
				if previous, duplicate := seen[pluginID]; duplicate {
					yield(ConfigurationStub{}, NewDuplicatePluginError(pluginID, previous, pluginDir))
					return
				}
				seen[pluginID] = pluginDir

				if e.filter != nil && !e.filter(pluginID) {
					continue
				}

				modules, err := applicableModules(pluginDir, distType)
				if err != nil {
					yield(ConfigurationStub{}, classify(err, "failed to determine applicable modules").WithPlugin(pluginID).WithPath(pluginDir))
					return
				}

				for _, release := range e.releases {
					stub := ConfigurationStub{
						Type:      distType,
						Release:   release,
						PluginID:  pluginID,
						PluginDir: pluginDir,
						Modules:   modules,
					}
					if !yield(stub, nil) {
						return
					}
				}
			}
		}
	}
}

// applicableModules computes a plugin's module set: every module with a
// source subdirectory under any of the plugin's version-range
// directories, plus the base distribution type. The result follows
// moduleOrder, which keeps parents ahead of their children.
func applicableModules(pluginDir string, base registry.Module) ([]registry.Module, error) {
	declared := map[registry.Module]bool{base: true}

	rangeEntries, err := os.ReadDir(pluginDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", pluginDir, err)
	}

	for _, rangeEntry := range rangeEntries {
		if !rangeEntry.IsDir() {
			continue
		}
		moduleEntries, err := os.ReadDir(filepath.Join(pluginDir, rangeEntry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read version directory %s: %w", rangeEntry.Name(), err)
		}
		for _, moduleEntry := range moduleEntries {
			if !moduleEntry.IsDir() {
				continue
			}
			if module, known := registry.ParseModule(moduleEntry.Name()); known {
				declared[module] = true
			}
		}
	}

	modules := make([]registry.Module, 0, len(declared))
	for _, module := range moduleOrder {
		if declared[module] {
			modules = append(modules, module)
		}
	}
	return modules, nil
}
