// Package engine resolves a plugin registry into a flat, ordered list
// of plugin configurations.
//
// # Overview
//
// A resolution batch operates through a 3-phase workflow:
//
//  1. Enumerate - Scan the registry for (plugin, release) combinations
//     and each plugin's applicable module set (Enumerator)
//  2. Resolve - Select the matching version range, merge prerequisite
//     artifacts, and build one Configuration per module (Resolver)
//  3. Order - Sort the full list roots-first so every parent
//     configuration precedes its dependents (SortRootsFirst)
//
// # Core Domain Types
//
//   - ConfigurationStub: One enumerated (plugin, release) combination
//   - Configuration: One fully resolved (plugin, release, module) result
//   - ResolveError: A classified failure carrying plugin and path context
//
// # Error Policy
//
// The batch is all-or-nothing: the first malformed file, duplicate
// plugin id, missing prerequisite, or prerequisite cycle aborts the
// whole run. A partially resolved list is never returned.
//
// # Usage
//
//	eng := engine.New(engine.Params{
//	    Root:     "/srv/plugins",
//	    GroupID:  "org.example.plugins",
//	    Releases: releases,
//	})
//	configs, err := eng.Run(ctx)
package engine
