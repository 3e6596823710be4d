package engine_test

import (
	"fmt"

	"github.com/plugmatrix/plugmatrix/pkg/engine"
	"github.com/plugmatrix/plugmatrix/pkg/registry"
)

// Example_ordering demonstrates how a resolved list is sorted so that
// parent configurations precede their dependents.
func Example_ordering() {
	configs := []engine.Configuration{
		{
			SourcePath: "server/auth/[1.0,2.0)/server",
			PluginID:   "auth",
			Type:       registry.ModuleServer,
			Release:    "1.5",
			Module:     registry.ModuleServer,
			ParentKey:  "auth.core.1.5",
		},
		{
			SourcePath: "server/auth/[1.0,2.0)/core",
			PluginID:   "auth",
			Type:       registry.ModuleServer,
			Release:    "1.5",
			Module:     registry.ModuleCore,
		},
	}

	engine.SortRootsFirst(configs)

	for _, c := range configs {
		fmt.Printf("%s -> %q\n", c.Key(), c.ParentKey)
	}
	// Output:
	// auth.core.1.5 -> ""
	// auth.server.1.5 -> "auth.core.1.5"
}

// ExampleLatestByPath demonstrates collapsing a multi-release result
// to the newest release per source directory.
func ExampleLatestByPath() {
	configs := []engine.Configuration{
		{SourcePath: "server/auth/[1.0,)", PluginID: "auth", Release: "1.9"},
		{SourcePath: "server/auth/[1.0,)", PluginID: "auth", Release: "1.10"},
	}

	latest := engine.LatestByPath(configs)
	fmt.Println(len(latest), latest[0].Release)
	// Output: 1 1.10
}
