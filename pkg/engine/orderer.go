package engine

import (
	"slices"

	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// SortRootsFirst stable-sorts the configurations so that every
// configuration without a parent precedes every configuration that
// names one; siblings keep their prior relative order. Downstream
// consumers process the list sequentially and expect a referenced
// parent to already have been emitted, which holds because per-plugin
// emission follows moduleOrder (parents ahead of children).
func SortRootsFirst(configs []Configuration) {
	slices.SortStableFunc(configs, func(a, b Configuration) int {
		switch {
		case a.ParentKey == "" && b.ParentKey != "":
			return -1
		case a.ParentKey != "" && b.ParentKey == "":
			return 1
		default:
			return 0
		}
	})
}

// LatestByPath reduces the configurations to one representative per
// distinct source path, keeping the one with the numerically greatest
// release. Result order follows the first appearance of each path.
func LatestByPath(configs []Configuration) []Configuration {
	type latest struct {
		config  Configuration
		release version.Release
	}

	byPath := make(map[string]latest)
	order := make([]string, 0, len(configs))

	for _, config := range configs {
		release, err := version.ParseRelease(config.Release)
		if err != nil {
			// Configurations are built from parsed releases; an
			// unparseable one can only lose the comparison.
			release = version.Release{}
		}

		current, seen := byPath[config.SourcePath]
		if !seen {
			order = append(order, config.SourcePath)
			byPath[config.SourcePath] = latest{config: config, release: release}
			continue
		}
		if current.release.Less(release) {
			byPath[config.SourcePath] = latest{config: config, release: release}
		}
	}

	reduced := make([]Configuration, 0, len(order))
	for _, sourcePath := range order {
		reduced = append(reduced, byPath[sourcePath].config)
	}
	return reduced
}
