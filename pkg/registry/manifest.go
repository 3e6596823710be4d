package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/plugmatrix/plugmatrix/pkg/configtree"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// Well-known file names inside a plugin directory.
const (
	// DeclarationFile maps version ranges to artifact lists.
	DeclarationFile = "dependencies.yaml"

	// ManifestFile carries prerequisites and extra repositories for one
	// version range.
	ManifestFile = "manifest.yaml"

	// IgnoreMarker signals that a plugin directory must be skipped
	// entirely.
	IgnoreMarker = ".plugignore"
)

// plainIdentifier matches declaration keys that are named version
// variables rather than version ranges.
var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// VersionedArtifacts is one declaration entry: the artifacts that apply
// while the target release falls inside Range. Entries keep the order
// they were declared in; selection depends on it.
type VersionedArtifacts struct {
	Range     version.Range
	Artifacts []ArtifactRef
}

// ReadVersionVariables collects the named version variables from a
// declaration tree. A variable is any entry whose key is a bare
// identifier; its value must be a scalar version literal.
func ReadVersionVariables(tree *configtree.Node) (map[string]string, error) {
	keys, err := tree.Keys()
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string)
	for _, key := range keys {
		if !plainIdentifier.MatchString(key) {
			continue
		}
		node, _ := tree.Field(key)
		value, err := node.Scalar()
		if err != nil {
			return nil, fmt.Errorf("version variable %q: %w", key, err)
		}
		vars[key] = value
	}

	return vars, nil
}

// ReadVersionedArtifacts reads a declaration tree into ordered
// (range, artifact list) entries. Bare-identifier keys are version
// variables and are excluded; every other key must parse as a version
// range.
func ReadVersionedArtifacts(tree *configtree.Node, groupID string, vars map[string]string) ([]VersionedArtifacts, error) {
	keys, err := tree.Keys()
	if err != nil {
		return nil, err
	}

	entries := make([]VersionedArtifacts, 0, len(keys))
	for _, key := range keys {
		if plainIdentifier.MatchString(key) {
			continue
		}

		rng, err := version.ParseRange(key)
		if err != nil {
			return nil, err
		}

		node, _ := tree.Field(key)
		artifacts, err := ReadArtifactList(node, groupID, vars)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", key, err)
		}

		entries = append(entries, VersionedArtifacts{Range: rng, Artifacts: artifacts})
	}

	return entries, nil
}

// ReadArtifactList recursively interprets a declaration node:
//
//   - a scalar is one bare coordinate
//   - a list is a sequence of coordinates or alias records
//   - a map with an "alias" key is a single alias record
//   - any other map is "module name -> nested artifact list", and every
//     artifact beneath a module key is tagged with that module
//
// Any other shape fails with ErrMalformedArtifact.
func ReadArtifactList(node *configtree.Node, groupID string, vars map[string]string) ([]ArtifactRef, error) {
	switch node.Kind() {
	case configtree.KindScalar:
		text, err := node.Scalar()
		if err != nil {
			return nil, err
		}
		ref, err := ParseCoordinate(text, groupID, vars)
		if err != nil {
			return nil, err
		}
		return []ArtifactRef{ref}, nil

	case configtree.KindList:
		items, err := node.List()
		if err != nil {
			return nil, err
		}
		artifacts := make([]ArtifactRef, 0, len(items))
		for _, item := range items {
			parsed, err := ReadArtifactList(item, groupID, vars)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, parsed...)
		}
		return artifacts, nil

	case configtree.KindMap:
		if _, isAlias := node.Field("alias"); isAlias {
			ref, err := readAliasRecord(node, groupID, vars)
			if err != nil {
				return nil, err
			}
			return []ArtifactRef{ref}, nil
		}
		return readModuleMap(node, groupID, vars)

	default:
		return nil, fmt.Errorf("%w: unsupported node shape", ErrMalformedArtifact)
	}
}

// readAliasRecord reads a {alias, artifact} map into one artifact.
func readAliasRecord(node *configtree.Node, groupID string, vars map[string]string) (ArtifactRef, error) {
	aliasNode, _ := node.Field("alias")
	alias, err := aliasNode.Scalar()
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("%w: alias must be a scalar", ErrMalformedArtifact)
	}

	coordNode, ok := node.Field("artifact")
	if !ok {
		return ArtifactRef{}, fmt.Errorf("%w: alias record %q has no artifact coordinate", ErrMalformedArtifact, alias)
	}
	coord, err := coordNode.Scalar()
	if err != nil {
		return ArtifactRef{}, fmt.Errorf("%w: alias record %q artifact must be a scalar", ErrMalformedArtifact, alias)
	}

	ref, err := ParseCoordinate(coord, groupID, vars)
	if err != nil {
		return ArtifactRef{}, err
	}
	ref.Alias = alias
	return ref, nil
}

// readModuleMap reads a "module name -> artifact list" map. Artifacts
// beneath a module key inherit that module unless a deeper key already
// scoped them.
func readModuleMap(node *configtree.Node, groupID string, vars map[string]string) ([]ArtifactRef, error) {
	keys, err := node.Keys()
	if err != nil {
		return nil, err
	}

	var artifacts []ArtifactRef
	for _, key := range keys {
		module, known := ParseModule(key)
		if !known {
			return nil, fmt.Errorf("%w: %q is neither an alias record nor a module name", ErrMalformedArtifact, key)
		}

		child, _ := node.Field(key)
		parsed, err := ReadArtifactList(child, groupID, vars)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", key, err)
		}
		for _, ref := range parsed {
			if ref.Module == "" {
				ref.Module = module
			}
			artifacts = append(artifacts, ref)
		}
	}

	return artifacts, nil
}

// ReadManifest reads the manifest of a version-range directory. A
// missing manifest file yields an empty manifest, not an error.
func ReadManifest(versionDir string) (Manifest, error) {
	path := filepath.Join(versionDir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return manifest, nil
}

// LoadDeclarations loads a plugin's declaration file and returns its
// version variables and ordered range entries. A missing declaration
// file yields no entries.
func LoadDeclarations(pluginDir, groupID string) ([]VersionedArtifacts, error) {
	path := filepath.Join(pluginDir, DeclarationFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	tree, err := configtree.Load(path)
	if err != nil {
		return nil, err
	}

	vars, err := ReadVersionVariables(tree)
	if err != nil {
		return nil, err
	}

	return ReadVersionedArtifacts(tree, groupID, vars)
}
