package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugmatrix/plugmatrix/pkg/engine"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

func newListCommand() *cobra.Command {
	var (
		root    string
		include []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins in a registry",
		Long: `List every plugin found under the registry root, with its
distribution type and applicable module set.`,
		Example: `  # List all plugins
  plugmatrix list --root /srv/plugins

  # List a subset
  plugmatrix list --root plugins --include "auth-*"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			if root != "" {
				ws.Registry.Root = root
			}
			if len(include) > 0 {
				ws.Filter.Include = include
			}

			logger := newWorkspaceLogger(ws)

			// A single synthetic release yields exactly one stub per
			// plugin; listing does not resolve anything.
			probe := []version.Release{version.MustParseRelease("0")}
			enumerator := engine.NewEnumerator(ws.Registry.Root, probe, pluginFilter(ws.Filter.Include), logger)

			count := 0
			for stub, err := range enumerator.Enumerate() {
				if err != nil {
					return err
				}
				modules := make([]string, len(stub.Modules))
				for i, m := range stub.Modules {
					modules[i] = m.String()
				}
				fmt.Printf("%-8s %-32s %s\n", stub.Type, stub.PluginID, strings.Join(modules, ","))
				count++
			}

			logger.Debugf("listed %d plugins", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "plugin registry root directory")
	cmd.Flags().StringSliceVar(&include, "include", nil, "plugin id glob to include (repeatable)")

	return cmd
}
