package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/telemetry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

const testGroup = "org.host.plugins"

// testLogger returns a quiet logger for tests.
func testLogger() *telemetry.Logger {
	return telemetry.NewLogger(telemetry.Config{Level: "error"})
}

// writePlugin lays out one plugin directory: the declaration file plus
// one subdirectory per version range, each optionally holding a
// manifest and module source directories.
func writePlugin(t *testing.T, root string, distType registry.Module, id, declarations string) string {
	t.Helper()
	pluginDir := filepath.Join(root, distType.String(), id)
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	if declarations != "" {
		require.NoError(t, os.WriteFile(filepath.Join(pluginDir, registry.DeclarationFile), []byte(declarations), 0o644))
	}
	return pluginDir
}

// writeRangeDir creates a version-range subdirectory with an optional
// manifest and module source directories.
func writeRangeDir(t *testing.T, pluginDir, rangeName, manifest string, modules ...registry.Module) {
	t.Helper()
	rangeDir := filepath.Join(pluginDir, rangeName)
	require.NoError(t, os.MkdirAll(rangeDir, 0o755))
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(rangeDir, registry.ManifestFile), []byte(manifest), 0o644))
	}
	for _, module := range modules {
		require.NoError(t, os.MkdirAll(filepath.Join(rangeDir, module.String()), 0o755))
	}
}

func releases(t *testing.T, texts ...string) []version.Release {
	t.Helper()
	parsed, err := ParseReleases(texts)
	require.NoError(t, err)
	return parsed
}

func TestEngine_Run_EndToEnd(t *testing.T) {
	root := t.TempDir()

	fooDir := writePlugin(t, root, registry.ModuleServer, "foo", "\"[1.0,2.0)\":\n  - g:a:{release}\n")
	writeRangeDir(t, fooDir, "[1.0,2.0)", "")

	engine := New(Params{
		Root:     root,
		GroupID:  testGroup,
		Releases: releases(t, "1.5"),
		Logger:   testLogger(),
	})

	configs, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 1)

	config := configs[0]
	require.Equal(t, "server/foo/[1.0,2.0)", config.SourcePath)
	require.Equal(t, "foo", config.PluginID)
	require.Equal(t, registry.ModuleServer, config.Type)
	require.Equal(t, "1.5", config.Release)
	require.Equal(t, registry.ModuleServer, config.Module)
	require.Equal(t, "[1.0,2.0)", config.VersionRange)
	require.Len(t, config.Artifacts, 1)
	require.Equal(t, "g:a:1.5", config.Artifacts[0].Coordinate())
	require.Empty(t, config.ParentKey, "server's parent core is not in foo's module set")
}

func TestEngine_Run_MultiModuleParentKey(t *testing.T) {
	root := t.TempDir()

	barDir := writePlugin(t, root, registry.ModuleServer, "bar", "\"[2.0,)\":\n  - g:a:{release}\n")
	writeRangeDir(t, barDir, "[2.0,)", "", registry.ModuleCore, registry.ModuleServer)

	engine := New(Params{
		Root:     root,
		GroupID:  testGroup,
		Releases: releases(t, "2.0"),
		Logger:   testLogger(),
	})

	configs, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)

	require.Equal(t, registry.ModuleCore, configs[0].Module)
	require.Empty(t, configs[0].ParentKey)
	require.Equal(t, "server/bar/[2.0,)/core", configs[0].SourcePath)

	require.Equal(t, registry.ModuleServer, configs[1].Module)
	require.Equal(t, "bar.core.2.0", configs[1].ParentKey)
	require.Equal(t, "server/bar/[2.0,)/server", configs[1].SourcePath)
}

func TestEngine_Run_FailsOnMalformedDeclaration(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, registry.ModuleServer, "broken", "\"[1.0,\": widgets\n")

	engine := New(Params{
		Root:     root,
		GroupID:  testGroup,
		Releases: releases(t, "1.0"),
		Logger:   testLogger(),
	})

	_, err := engine.Run(context.Background())
	require.Error(t, err)
	require.True(t, hasKind(err, KindMalformedVersionRange))

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	require.Equal(t, "broken", resolveErr.Plugin)
}

func TestEngine_Run_PublishesEvents(t *testing.T) {
	root := t.TempDir()

	fooDir := writePlugin(t, root, registry.ModuleServer, "foo", "\"[1.0,2.0)\":\n  - g:a:{release}\n")
	writeRangeDir(t, fooDir, "[1.0,2.0)", "")

	events, err := telemetry.NewEventPublisher(telemetry.DefaultEventsConfig())
	require.NoError(t, err)

	var seen []telemetry.Event
	events.Subscribe(func(ev telemetry.Event) { seen = append(seen, ev) }, nil)

	engine := New(Params{
		Root:     root,
		GroupID:  testGroup,
		Releases: releases(t, "1.5"),
		Logger:   testLogger(),
		Events:   events,
	})

	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, 3)
	require.Equal(t, telemetry.EventTypeRunStarted, seen[0].Type)
	require.Equal(t, telemetry.EventTypePluginResolved, seen[1].Type)
	require.Equal(t, "foo", seen[1].PluginID)
	require.Equal(t, telemetry.EventTypeRunCompleted, seen[2].Type)
	for _, ev := range seen {
		require.Equal(t, engine.RunID(), ev.RunID)
	}
}

func TestEngine_Run_PublishesFailure(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, registry.ModuleServer, "broken", "\"[1.0,\": widgets\n")

	events, err := telemetry.NewEventPublisher(telemetry.DefaultEventsConfig())
	require.NoError(t, err)

	var failed []telemetry.Event
	events.Subscribe(func(ev telemetry.Event) { failed = append(failed, ev) }, telemetry.FilterByType(telemetry.EventTypeRunFailed))

	engine := New(Params{
		Root:     root,
		GroupID:  testGroup,
		Releases: releases(t, "1.0"),
		Logger:   testLogger(),
		Events:   events,
	})

	_, err = engine.Run(context.Background())
	require.Error(t, err)
	require.Len(t, failed, 1)
}

func TestParseReleases_Invalid(t *testing.T) {
	_, err := ParseReleases([]string{"1.0", "not-a-version"})
	require.Error(t, err)
	require.True(t, hasKind(err, KindMalformedVersion))
}
