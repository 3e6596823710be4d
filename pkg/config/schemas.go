package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.RegisterSchema("workspace", builtinWorkspaceSchema)
	sr.RegisterSchema("registry", builtinRegistrySchema)

	return sr
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// Built-in schema definitions

const builtinWorkspaceSchema = `
// Workspace schema for Plugmatrix tool configuration
#Workspace: {
	// Name is the workspace name
	name: string & =~"^[a-zA-Z0-9_-]+$"

	// Registry locates the plugin tree
	registry: {
		root:      string
		group_id?: string
		types?: [..."server" | "client"]
	}

	// Releases lists the target releases to resolve against
	releases: [...string] & [_, ...]

	// Filter narrows resolution to matching plugin ids
	filter?: {
		include?: [...string]
	}

	// Output controls rendering of the result list
	output?: {
		format?: "yaml" | "json"
		latest?: bool
	}

	// Store configures run persistence
	store?: {
		enabled?: bool
		path?:    string
	}

	// Log configures logging
	log?: {
		level?:   "debug" | "info" | "warn" | "error"
		console?: bool
	}
}
`

const builtinRegistrySchema = `
// Registry schema for plugin registry location
#Registry: {
	// Root is the directory containing the plugins tree
	root: string

	// GroupID is the default artifact group for bare coordinates
	group_id?: string

	// Types restricts which distribution types are scanned
	types?: [..."server" | "client"]
}
`

// ValidateWorkspace validates a workspace configuration against the workspace schema.
func (sr *SchemaRegistry) ValidateWorkspace(ctx context.Context, workspace WorkspaceConfig) error {
	return sr.ValidateAgainstSchema(ctx, "workspace", workspace)
}
