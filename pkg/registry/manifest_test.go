package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugmatrix/plugmatrix/pkg/configtree"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

const testGroup = "org.host.plugins"

func TestReadVersionVariables(t *testing.T) {
	tree, err := configtree.Parse([]byte(`
widgetsVersion: "2.4"
"[1.0,2.0)":
  - widgets:{widgetsVersion}
`))
	require.NoError(t, err)

	vars, err := ReadVersionVariables(tree)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"widgetsVersion": "2.4"}, vars)
}

func TestReadVersionedArtifacts_SkipsVariables(t *testing.T) {
	tree, err := configtree.Parse([]byte(`
widgetsVersion: "2.4"
"[1.0,2.0)":
  - com.acme:widgets:{widgetsVersion}
"[2.0,)":
  - com.acme:widgets:{release}
`))
	require.NoError(t, err)

	vars, err := ReadVersionVariables(tree)
	require.NoError(t, err)

	entries, err := ReadVersionedArtifacts(tree, testGroup, vars)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "[1.0,2.0)", entries[0].Range.SafeName())
	require.Len(t, entries[0].Artifacts, 1)
	assert.Equal(t, "2.4", entries[0].Artifacts[0].Version)

	assert.Equal(t, "[2.0,)", entries[1].Range.SafeName())
	assert.True(t, entries[1].Artifacts[0].IsPlaceholder())
}

func TestReadVersionedArtifacts_BadRangeKey(t *testing.T) {
	tree, err := configtree.Parse([]byte(`"[1.0,": widgets`))
	require.NoError(t, err)

	_, err = ReadVersionedArtifacts(tree, testGroup, nil)
	require.ErrorIs(t, err, version.ErrMalformedVersionRange)
}

func TestReadArtifactList_Shapes(t *testing.T) {
	tree, err := configtree.Parse([]byte(`
- widgets
- alias: short
  artifact: com.acme:widgets:1.0
- server:
    - serverlib
  client:
    - clientlib:0.5
`))
	require.NoError(t, err)

	artifacts, err := ReadArtifactList(tree, testGroup, nil)
	require.NoError(t, err)
	require.Len(t, artifacts, 4)

	assert.Equal(t, "widgets", artifacts[0].ArtifactID)
	assert.Empty(t, artifacts[0].Module)

	assert.Equal(t, "short", artifacts[1].Alias)
	assert.Equal(t, "com.acme", artifacts[1].GroupID)

	assert.Equal(t, ModuleServer, artifacts[2].Module)
	assert.Equal(t, "serverlib", artifacts[2].ArtifactID)

	assert.Equal(t, ModuleClient, artifacts[3].Module)
	assert.Equal(t, "0.5", artifacts[3].Version)
}

func TestReadArtifactList_UnknownModuleKey(t *testing.T) {
	tree, err := configtree.Parse([]byte("desktop:\n  - widgets\n"))
	require.NoError(t, err)

	_, err = ReadArtifactList(tree, testGroup, nil)
	require.ErrorIs(t, err, ErrMalformedArtifact)
}

func TestReadArtifactList_AliasWithoutArtifact(t *testing.T) {
	tree, err := configtree.Parse([]byte("alias: short\n"))
	require.NoError(t, err)

	_, err = ReadArtifactList(tree, testGroup, nil)
	require.ErrorIs(t, err, ErrMalformedArtifact)
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	content := "prerequisites:\n  - base\n  - auth\nrepositories:\n  - https://repo.example.com/releases\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(content), 0o644))

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "auth"}, manifest.Prerequisites)
	assert.Equal(t, []string{"https://repo.example.com/releases"}, manifest.Repositories)
}

func TestReadManifest_MissingFileIsEmpty(t *testing.T) {
	manifest, err := ReadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, manifest.Prerequisites)
	assert.Empty(t, manifest.Repositories)
}

func TestLoadDeclarations(t *testing.T) {
	dir := t.TempDir()
	content := "\"[1.0,2.0)\":\n  - widgets\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DeclarationFile), []byte(content), 0o644))

	entries, err := LoadDeclarations(dir, testGroup)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "widgets", entries[0].Artifacts[0].ArtifactID)
}

func TestLoadDeclarations_MissingFile(t *testing.T) {
	entries, err := LoadDeclarations(t.TempDir(), testGroup)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
