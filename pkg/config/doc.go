// Package config provides CUE configuration parsing for the Plugmatrix
// resolver tool.
//
// # Overview
//
// The config package implements the configuration phase of Plugmatrix,
// responsible for parsing CUE workspace files and validating them against
// built-in schemas before a resolution run starts.
//
// # Features
//
//   - CUE configuration parsing from files, directories, and inline content
//   - Schema validation with a built-in workspace schema
//   - Type-safe configuration structures
//   - Error reporting with file locations and line numbers
//
// # Components
//
// CUEParser: Main parser for CUE workspace files. Evaluate returns a
// validated WorkspaceConfig ready to drive the engine.
//
// SchemaRegistry: Manages CUE schemas for validation. Provides a built-in
// workspace schema and supports custom schema registration.
//
// # Usage Example
//
//	parser := config.NewCUEParser()
//
//	workspace, err := parser.Evaluate(ctx, []string{"plugmatrix.cue"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # CUE Configuration Structure
//
// A typical workspace file:
//
//	workspace: {
//	    name: "production"
//	    registry: {
//	        root:     "/srv/plugins"
//	        group_id: "org.example.plugins"
//	    }
//	    releases: ["1.5", "2.0"]
//	    filter: include: ["auth-*"]
//	    output: {
//	        format: "yaml"
//	        latest: true
//	    }
//	    store: {
//	        enabled: true
//	        path:    "runs.db"
//	    }
//	}
//
// # Error Handling
//
// All parsing and validation errors include detailed location information:
//
//	ValidationError{
//	    File: "plugmatrix.cue",
//	    Line: 12,
//	    Column: 5,
//	    Path: "workspace.registry",
//	    Message: "field 'root' is required",
//	    Severity: "error",
//	}
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package config
