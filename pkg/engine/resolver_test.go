package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

func serverStub(t *testing.T, pluginDir, id, release string, modules ...registry.Module) ConfigurationStub {
	t.Helper()
	if len(modules) == 0 {
		modules = []registry.Module{registry.ModuleServer}
	}
	return ConfigurationStub{
		Type:      registry.ModuleServer,
		Release:   version.MustParseRelease(release),
		PluginID:  id,
		PluginDir: pluginDir,
		Modules:   modules,
	}
}

func TestResolver_NoDeclarationYieldsNothing(t *testing.T) {
	root := t.TempDir()
	pluginDir := writePlugin(t, root, registry.ModuleServer, "empty", "")

	resolver := NewResolver(root, testGroup, testLogger())
	configs, err := resolver.Resolve(serverStub(t, pluginDir, "empty", "1.0"))
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestResolver_NoMatchingRangeYieldsNothing(t *testing.T) {
	root := t.TempDir()
	pluginDir := writePlugin(t, root, registry.ModuleServer, "old", "\"[1.0,2.0)\":\n  - g:a:{release}\n")

	resolver := NewResolver(root, testGroup, testLogger())
	configs, err := resolver.Resolve(serverStub(t, pluginDir, "old", "3.0"))
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestResolver_LastOverlappingRangeWins(t *testing.T) {
	root := t.TempDir()
	declarations := "\"[1.0,3.0)\":\n  - g:first:{release}\n\"[2.0,4.0)\":\n  - g:second:{release}\n"
	pluginDir := writePlugin(t, root, registry.ModuleServer, "overlap", declarations)

	resolver := NewResolver(root, testGroup, testLogger())
	configs, err := resolver.Resolve(serverStub(t, pluginDir, "overlap", "2.5"))
	require.NoError(t, err)
	require.Len(t, configs, 1)

	require.Len(t, configs[0].Artifacts, 1)
	assert.Equal(t, "second", configs[0].Artifacts[0].ArtifactID)
	assert.Equal(t, "[2.0,4.0)", configs[0].VersionRange)
}

func TestResolver_PrerequisiteMerge(t *testing.T) {
	root := t.TempDir()

	baseDir := writePlugin(t, root, registry.ModuleServer, "base", "\"[1.0,)\":\n  - g:base-lib:{release}\n")
	writeRangeDir(t, baseDir, "[1.0,)", "")

	depDir := writePlugin(t, root, registry.ModuleServer, "dep", "\"[1.0,)\":\n  - g:dep-lib:{release}\n")
	writeRangeDir(t, depDir, "[1.0,)", "prerequisites:\n  - base\nrepositories:\n  - https://repo.example.com\n")

	resolver := NewResolver(root, testGroup, testLogger())
	configs, err := resolver.Resolve(serverStub(t, depDir, "dep", "1.5"))
	require.NoError(t, err)
	require.Len(t, configs, 1)

	config := configs[0]
	// Own artifacts first, then the prerequisite's, order preserved.
	require.Len(t, config.Artifacts, 2)
	assert.Equal(t, "g:dep-lib:1.5", config.Artifacts[0].Coordinate())
	assert.Equal(t, "g:base-lib:1.5", config.Artifacts[1].Coordinate())
	assert.Equal(t, []string{"https://repo.example.com"}, config.Repositories)
}

func TestResolver_PrerequisiteArtifactsMappedPerModule(t *testing.T) {
	root := t.TempDir()

	baseDecl := "\"[1.0,)\":\n  - core:\n      - g:core-lib:{release}\n    server:\n      - g:server-lib:{release}\n"
	baseDir := writePlugin(t, root, registry.ModuleServer, "base", baseDecl)
	writeRangeDir(t, baseDir, "[1.0,)", "", registry.ModuleCore, registry.ModuleServer)

	depDir := writePlugin(t, root, registry.ModuleServer, "dep", "\"[1.0,)\":\n  - g:dep-lib:{release}\n")
	writeRangeDir(t, depDir, "[1.0,)", "prerequisites:\n  - base\n", registry.ModuleCore, registry.ModuleServer)

	resolver := NewResolver(root, testGroup, testLogger())
	stub := serverStub(t, depDir, "dep", "1.0", registry.ModuleCore, registry.ModuleServer)
	configs, err := resolver.Resolve(stub)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	coreConfig, serverConfig := configs[0], configs[1]
	require.Equal(t, registry.ModuleCore, coreConfig.Module)
	require.Equal(t, registry.ModuleServer, serverConfig.Module)

	// dep's own nil-module artifact applies only to its base type
	// (server); each module receives exactly the prerequisite artifacts
	// registered for it.
	require.Len(t, coreConfig.Artifacts, 1)
	assert.Equal(t, "g:core-lib:1.0", coreConfig.Artifacts[0].Coordinate())

	require.Len(t, serverConfig.Artifacts, 2)
	assert.Equal(t, "g:dep-lib:1.0", serverConfig.Artifacts[0].Coordinate())
	assert.Equal(t, "g:server-lib:1.0", serverConfig.Artifacts[1].Coordinate())
}

func TestResolver_DuplicateArtifactsPreserved(t *testing.T) {
	root := t.TempDir()

	baseDir := writePlugin(t, root, registry.ModuleServer, "base", "\"[1.0,)\":\n  - g:shared:{release}\n")
	writeRangeDir(t, baseDir, "[1.0,)", "")

	depDir := writePlugin(t, root, registry.ModuleServer, "dep", "\"[1.0,)\":\n  - g:shared:{release}\n")
	writeRangeDir(t, depDir, "[1.0,)", "prerequisites:\n  - base\n")

	resolver := NewResolver(root, testGroup, testLogger())
	configs, err := resolver.Resolve(serverStub(t, depDir, "dep", "1.0"))
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Len(t, configs[0].Artifacts, 2, "merge does not deduplicate")
}

func TestResolver_MissingPrerequisite(t *testing.T) {
	root := t.TempDir()
	depDir := writePlugin(t, root, registry.ModuleServer, "dep", "\"[1.0,)\":\n  - g:dep-lib:{release}\n")
	writeRangeDir(t, depDir, "[1.0,)", "prerequisites:\n  - ghost\n")

	resolver := NewResolver(root, testGroup, testLogger())
	_, err := resolver.Resolve(serverStub(t, depDir, "dep", "1.0"))
	require.Error(t, err)
	assert.True(t, IsMissingPrerequisite(err))
	assert.Contains(t, err.Error(), "dep")
	assert.Contains(t, err.Error(), "ghost")
}

func TestResolver_CyclicPrerequisites(t *testing.T) {
	root := t.TempDir()

	aDir := writePlugin(t, root, registry.ModuleServer, "a", "\"[1.0,)\":\n  - g:a-lib:{release}\n")
	writeRangeDir(t, aDir, "[1.0,)", "prerequisites:\n  - b\n")

	bDir := writePlugin(t, root, registry.ModuleServer, "b", "\"[1.0,)\":\n  - g:b-lib:{release}\n")
	writeRangeDir(t, bDir, "[1.0,)", "prerequisites:\n  - a\n")

	resolver := NewResolver(root, testGroup, testLogger())
	_, err := resolver.Resolve(serverStub(t, aDir, "a", "1.0"))
	require.Error(t, err)
	assert.True(t, IsCyclicPrerequisite(err))
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestResolver_SameRangeSameArtifactsAcrossReleases(t *testing.T) {
	root := t.TempDir()
	pluginDir := writePlugin(t, root, registry.ModuleServer, "stable",
		"\"[1.0,2.0)\":\n  - g:a:{release}\n  - g:pinned:0.7\n")
	resolver := NewResolver(root, testGroup, testLogger())

	rapid.Check(t, func(t *rapid.T) {
		minor := rapid.IntRange(0, 9).Draw(t, "minor")
		patch := rapid.IntRange(0, 9).Draw(t, "patch")
		release := version.MustParseRelease(
			"1." + string(rune('0'+minor)) + "." + string(rune('0'+patch)))

		configs, err := resolver.Resolve(ConfigurationStub{
			Type:      registry.ModuleServer,
			Release:   release,
			PluginID:  "stable",
			PluginDir: pluginDir,
			Modules:   []registry.Module{registry.ModuleServer},
		})
		if err != nil {
			t.Fatalf("resolve at %s: %v", release, err)
		}
		if len(configs) != 1 {
			t.Fatalf("expected one configuration, got %d", len(configs))
		}

		artifacts := configs[0].Artifacts
		if len(artifacts) != 2 {
			t.Fatalf("expected two artifacts, got %d", len(artifacts))
		}
		// Only the substituted placeholder may vary with the release.
		if artifacts[0].Version != release.String() {
			t.Fatalf("placeholder not substituted: %s", artifacts[0].Version)
		}
		if artifacts[1].Version != "0.7" {
			t.Fatalf("pinned version changed: %s", artifacts[1].Version)
		}
	})
}
