package engine

import (
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/telemetry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// Resolver turns configuration stubs into fully resolved
// configurations: range selection, recursive prerequisite merging,
// per-module filtering, and release substitution.
type Resolver struct {
	root     string
	groupID  string
	validate *validator.Validate
	logger   *telemetry.Logger
}

// NewResolver creates a resolver rooted at the plugins directory.
// groupID fills in the group of coordinates that omit one.
func NewResolver(root, groupID string, logger *telemetry.Logger) *Resolver {
	if logger == nil {
		logger = telemetry.NewLogger(telemetry.Config{Level: "info"})
	}
	return &Resolver{
		root:     root,
		groupID:  groupID,
		validate: validator.New(),
		logger:   logger.NewComponentLogger("resolver"),
	}
}

// Resolve resolves one stub into zero or more configurations, one per
// applicable module. A plugin with no declaration file, or no range
// containing the release, yields nothing. Any parse failure aborts with
// the plugin's context attached; no partial configuration is emitted.
func (r *Resolver) Resolve(stub ConfigurationStub) ([]Configuration, error) {
	return r.resolve(stub.PluginID, stub.PluginDir, stub.Type, stub.Release, stub.Modules, []string{stub.PluginID})
}

// resolve carries the prerequisite chain for cycle detection. The
// release and module set stay those of the plugin that started the
// resolution; prerequisites are resolved in its terms.
func (r *Resolver) resolve(
	pluginID, pluginDir string,
	distType registry.Module,
	release version.Release,
	modules []registry.Module,
	chain []string,
) ([]Configuration, error) {
	entries, err := registry.LoadDeclarations(pluginDir, r.groupID)
	if err != nil {
		return nil, classify(err, "failed to read dependency declarations").WithPlugin(pluginID).WithPath(pluginDir)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	selected := selectRange(entries, release)
	if selected == nil {
		r.logger.WithPlugin(pluginID).WithRelease(release.String()).Debug("no version range matches release")
		return nil, nil
	}

	versionDir := filepath.Join(pluginDir, selected.Range.SafeName())
	manifest, err := registry.ReadManifest(versionDir)
	if err != nil {
		return nil, classify(err, "failed to read manifest").WithPlugin(pluginID).WithPath(versionDir)
	}

	prereqArtifacts, err := r.resolvePrerequisites(pluginID, manifest, distType, release, modules, chain)
	if err != nil {
		return nil, err
	}

	configs := make([]Configuration, 0, len(modules))
	for _, module := range modules {
		artifacts := mergeArtifacts(selected.Artifacts, prereqArtifacts[module], module, distType, release)

		sourcePath := path.Join(distType.String(), pluginID, selected.Range.SafeName())
		if len(modules) > 1 {
			sourcePath = path.Join(sourcePath, module.String())
		}

		parentKey := ""
		if parent, ok := module.Parent(); ok && slices.Contains(modules, parent) {
			parentKey = configurationKey(pluginID, parent, release)
		}

		config := Configuration{
			SourcePath:   sourcePath,
			PluginID:     pluginID,
			Type:         distType,
			Release:      release.String(),
			Module:       module,
			VersionRange: selected.Range.SafeName(),
			Artifacts:    artifacts,
			Repositories: manifest.Repositories,
			ParentKey:    parentKey,
		}
		if err := r.validate.Struct(config); err != nil {
			return nil, newError(KindInternal, "resolved configuration failed validation", err).WithPlugin(pluginID)
		}

		configs = append(configs, config)
	}

	return configs, nil
}

// selectRange picks the declaration entry covering the release. Ranges
// are scanned in declared order and the last match wins, so later
// declarations take priority when ranges overlap. That tie-break is
// load-bearing for existing registries; do not "fix" it to first-match.
func selectRange(entries []registry.VersionedArtifacts, release version.Release) *registry.VersionedArtifacts {
	var selected *registry.VersionedArtifacts
	for i := range entries {
		if entries[i].Range.Contains(release) {
			selected = &entries[i]
		}
	}
	return selected
}

// resolvePrerequisites resolves every prerequisite of the manifest with
// the dependent's release and module set, and collects each module's
// artifact lists in manifest order.
func (r *Resolver) resolvePrerequisites(
	pluginID string,
	manifest registry.Manifest,
	distType registry.Module,
	release version.Release,
	modules []registry.Module,
	chain []string,
) (map[registry.Module][]registry.ArtifactRef, error) {
	if len(manifest.Prerequisites) == 0 {
		return nil, nil
	}

	collected := make(map[registry.Module][]registry.ArtifactRef)
	for _, prereqID := range manifest.Prerequisites {
		if slices.Contains(chain, prereqID) {
			return nil, NewCyclicPrerequisiteError(append(slices.Clone(chain), prereqID)).WithPlugin(pluginID)
		}

		prereqDir := filepath.Join(r.root, distType.String(), prereqID)
		if info, err := os.Stat(prereqDir); err != nil || !info.IsDir() {
			return nil, NewMissingPrerequisiteError(pluginID, prereqID)
		}

		prereqConfigs, err := r.resolve(prereqID, prereqDir, distType, release, modules, append(slices.Clone(chain), prereqID))
		if err != nil {
			return nil, err
		}
		for _, config := range prereqConfigs {
			collected[config.Module] = append(collected[config.Module], config.Artifacts...)
		}
	}

	return collected, nil
}

// mergeArtifacts filters the plugin's own artifacts down to one module,
// appends the prerequisite artifacts registered for that module, and
// substitutes the release for every placeholder version. Own artifacts
// come first; order is preserved and duplicates are kept.
func mergeArtifacts(
	own []registry.ArtifactRef,
	prerequisite []registry.ArtifactRef,
	module registry.Module,
	distType registry.Module,
	release version.Release,
) []registry.ArtifactRef {
	merged := make([]registry.ArtifactRef, 0, len(own)+len(prerequisite))
	for _, artifact := range own {
		if artifact.Module == module || (artifact.Module == "" && module == distType) {
			merged = append(merged, artifact)
		}
	}
	merged = append(merged, prerequisite...)

	for i, artifact := range merged {
		if artifact.IsPlaceholder() {
			merged[i] = artifact.WithVersion(release.String())
		}
	}
	return merged
}
