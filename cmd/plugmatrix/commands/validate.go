package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plugmatrix/plugmatrix/pkg/config"
	"github.com/plugmatrix/plugmatrix/pkg/registry"
)

func newValidateCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "validate [workspace.cue]",
		Short: "Validate workspace and registry files",
		Long: `Validate a CUE workspace file and, when a registry root is given,
every declaration and manifest file in the plugin tree.

This command checks:
  - CUE syntax validity and workspace schema conformance
  - Version range directory names
  - Dependency declaration and manifest shapes`,
		Example: `  # Validate a workspace file
  plugmatrix validate plugmatrix.cue

  # Validate every declaration in a registry
  plugmatrix validate --root /srv/plugins

  # Validate both
  plugmatrix validate plugmatrix.cue --root /srv/plugins`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := configPath
			if len(args) > 0 {
				source = args[0]
			}
			if source == "" && root == "" {
				return fmt.Errorf("nothing to validate: pass a workspace file or --root")
			}

			if source != "" {
				if err := validateWorkspaceFile(cmd, source); err != nil {
					return err
				}
				fmt.Printf("workspace %s: valid\n", source)
			}

			if root != "" {
				checked, err := validateRegistry(root)
				if err != nil {
					return err
				}
				fmt.Printf("registry %s: %d plugins valid\n", root, checked)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "plugin registry root to validate")

	return cmd
}

// validateWorkspaceFile parses a CUE workspace file and reports every
// error with its source location.
func validateWorkspaceFile(cmd *cobra.Command, source string) error {
	parser := config.NewCUEParser()

	parsed, err := parser.Parse(cmd.Context(), []string{source})
	if err != nil {
		return err
	}
	if len(parsed.Errors) > 0 {
		for _, ve := range parsed.Errors {
			log.Error().
				Str("file", ve.File).
				Int("line", ve.Line).
				Str("path", ve.Path).
				Msg(ve.Message)
		}
		return fmt.Errorf("workspace %s: %d errors", source, len(parsed.Errors))
	}

	if _, err := parser.Evaluate(cmd.Context(), []string{source}); err != nil {
		return err
	}
	return nil
}

// validateRegistry loads every plugin's declarations and manifests,
// surfacing the first malformed file.
func validateRegistry(root string) (int, error) {
	checked := 0
	for _, distType := range registry.DistributionTypes {
		pluginDirs, err := filepath.Glob(filepath.Join(root, distType.String(), "*"))
		if err != nil {
			return checked, err
		}

		for _, pluginDir := range pluginDirs {
			info, err := os.Stat(pluginDir)
			if err != nil || !info.IsDir() {
				continue
			}

			if _, err := registry.LoadDeclarations(pluginDir, ""); err != nil {
				return checked, fmt.Errorf("plugin %s: %w", filepath.Base(pluginDir), err)
			}

			entries, err := os.ReadDir(pluginDir)
			if err != nil {
				return checked, err
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				if _, err := registry.ReadManifest(filepath.Join(pluginDir, entry.Name())); err != nil {
					return checked, fmt.Errorf("plugin %s range %s: %w", filepath.Base(pluginDir), entry.Name(), err)
				}
			}
			checked++
		}
	}
	return checked, nil
}
