// Package registry models the on-disk plugin registry: framework
// modules, artifact coordinates, and the per-version-range manifest
// metadata carried by each plugin directory.
package registry

// Module is one of the host framework's sub-distributions a plugin can
// target.
type Module string

const (
	// ModuleCore is the base distribution every other module extends.
	ModuleCore Module = "core"

	// ModuleClient is the client-side distribution.
	ModuleClient Module = "client"

	// ModuleServer is the server-side distribution.
	ModuleServer Module = "server"

	// ModuleWeb is the browser-facing distribution.
	ModuleWeb Module = "web"
)

// moduleParents is the static parent table. Every module except core
// extends exactly one other module.
var moduleParents = map[Module]Module{
	ModuleServer: ModuleCore,
	ModuleClient: ModuleCore,
	ModuleWeb:    ModuleClient,
}

// DistributionTypes are the two plugin distribution types scanned under
// the registry root, in scan order.
var DistributionTypes = []Module{ModuleServer, ModuleClient}

// ParseModule maps a module name to its Module value. The second result
// reports whether the name is known.
func ParseModule(name string) (Module, bool) {
	switch Module(name) {
	case ModuleCore, ModuleClient, ModuleServer, ModuleWeb:
		return Module(name), true
	default:
		return "", false
	}
}

// Parent returns the declared parent of the module. The second result
// is false for core, which has no parent.
func (m Module) Parent() (Module, bool) {
	parent, ok := moduleParents[m]
	return parent, ok
}

// String returns the module name.
func (m Module) String() string {
	return string(m)
}

// Manifest is the per-version-range metadata of a plugin: which other
// plugins it needs merged in, and which extra artifact repositories the
// build must consult. Order is preserved from the file.
type Manifest struct {
	// Prerequisites lists ids of plugins whose artifacts must be merged
	// into this plugin's resolved configuration.
	Prerequisites []string `yaml:"prerequisites"`

	// Repositories lists extra artifact-registry URLs.
	Repositories []string `yaml:"repositories"`
}
