package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/plugmatrix/plugmatrix/pkg/stores"
)

func newRunsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded resolution runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "plugmatrix.db", "SQLite database recorded with 'resolve --store'")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Example: `  plugmatrix runs list --db runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbPath, func(ctx context.Context, store *stores.SQLiteStore) error {
				runs, err := store.ListRuns(ctx, 50, 0)
				if err != nil {
					return err
				}
				for _, run := range runs {
					status := string(run.Status)
					if run.Error != nil {
						status = fmt.Sprintf("%s (%s)", status, *run.Error)
					}
					fmt.Printf("%-36s %-20s releases=%-12s configs=%-5d %s\n",
						run.ID, run.StartedAt.Format(time.RFC3339), run.Releases, run.ConfigCount, status)
				}
				return nil
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the configurations of one run",
		Example: `  plugmatrix runs show 6f1c... --db runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbPath, func(ctx context.Context, store *stores.SQLiteStore) error {
				run, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				configs, err := store.ListConfigurations(ctx, run.ID)
				if err != nil {
					return err
				}
				for _, c := range configs {
					parent := c.ParentKey
					if parent == "" {
						parent = "-"
					}
					fmt.Printf("%-48s %-10s artifacts=%-4d parent=%s\n",
						c.SourcePath, c.Release, len(c.Artifacts), parent)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)
	return cmd
}

// withStore opens, migrates, and closes a result store around fn.
func withStore(ctx context.Context, path string, fn func(context.Context, *stores.SQLiteStore) error) error {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	return fn(ctx, store)
}
