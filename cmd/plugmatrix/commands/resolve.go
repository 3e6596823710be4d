package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plugmatrix/plugmatrix/pkg/config"
	"github.com/plugmatrix/plugmatrix/pkg/engine"
	"github.com/plugmatrix/plugmatrix/pkg/stores"
	"github.com/plugmatrix/plugmatrix/pkg/telemetry"
)

func newResolveCommand() *cobra.Command {
	var (
		root      string
		groupID   string
		releases  []string
		include   []string
		latest    bool
		format    string
		outFile   string
		storePath string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve plugin configurations",
		Long: `Resolve every plugin under the registry root into a flat, ordered
list of plugin configurations.

The resolution:
  - Enumerates (plugin, release) combinations per distribution type
  - Selects the last version range containing each target release
  - Merges prerequisite artifacts and repositories
  - Sorts the result roots-first`,
		Example: `  # Resolve a registry for two releases
  plugmatrix resolve --root /srv/plugins --release 1.5 --release 2.0

  # Resolve using a workspace file, keeping only the newest release per path
  plugmatrix resolve -c plugmatrix.cue --latest

  # Write JSON and record the run
  plugmatrix resolve --root plugins --release 2.0 --format json --store runs.db

  # Re-resolve whenever the registry changes
  plugmatrix resolve --root plugins --release 2.0 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			applyResolveFlags(&ws, cmd, root, groupID, releases, include, latest, format, storePath)

			if len(ws.Releases) == 0 {
				return fmt.Errorf("no target releases: pass --release or set releases in the workspace file")
			}

			logger := newWorkspaceLogger(ws)
			if watch {
				return watchAndResolve(cmd.Context(), ws, logger, outFile)
			}
			return resolveOnce(cmd.Context(), ws, logger, outFile)
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "plugin registry root directory")
	cmd.Flags().StringVarP(&groupID, "group", "g", "", "default artifact group for bare coordinates")
	cmd.Flags().StringSliceVarP(&releases, "release", "r", nil, "target release (repeatable)")
	cmd.Flags().StringSliceVar(&include, "include", nil, "plugin id glob to include (repeatable)")
	cmd.Flags().BoolVar(&latest, "latest", false, "keep only the newest release per source path")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: yaml or json")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringVar(&storePath, "store", "", "record the run in this SQLite database")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "watch the registry and re-resolve on changes")

	return cmd
}

// applyResolveFlags overlays set command-line flags onto the workspace.
func applyResolveFlags(ws *config.WorkspaceConfig, cmd *cobra.Command, root, groupID string, releases, include []string, latest bool, format, storePath string) {
	if root != "" {
		ws.Registry.Root = root
	}
	if groupID != "" {
		ws.Registry.GroupID = groupID
	}
	if len(releases) > 0 {
		ws.Releases = releases
	}
	if len(include) > 0 {
		ws.Filter.Include = include
	}
	if cmd.Flags().Changed("latest") {
		ws.Output.Latest = latest
	}
	if format != "" {
		ws.Output.Format = format
	}
	if storePath != "" {
		ws.Store.Enabled = true
		ws.Store.Path = storePath
	}
}

// resolveOnce runs one resolution batch, renders it, and records it
// if a store is configured. Run lifecycle events land on the debug
// log.
func resolveOnce(ctx context.Context, ws config.WorkspaceConfig, logger *telemetry.Logger, outFile string) error {
	targets, err := engine.ParseReleases(ws.Releases)
	if err != nil {
		return err
	}

	events, err := telemetry.NewEventPublisher(telemetry.DefaultEventsConfig())
	if err != nil {
		return err
	}
	events.Subscribe(func(ev telemetry.Event) {
		logger.Debugf("event %s: %s", ev.Type, ev.Message)
	}, nil)
	defer events.Shutdown(ctx)

	startedAt := time.Now().UTC()

	eng := engine.New(engine.Params{
		Root:     ws.Registry.Root,
		GroupID:  ws.Registry.GroupID,
		Releases: targets,
		Filter:   pluginFilter(ws.Filter.Include),
		Logger:   logger,
		Events:   events,
	})

	configs, runErr := eng.Run(ctx)

	if ws.Store.Enabled {
		if err := recordRun(ctx, ws, eng.RunID(), startedAt, configs, runErr); err != nil {
			logger.WithError(err).Warn("failed to record run")
		}
	}
	if runErr != nil {
		return runErr
	}

	if ws.Output.Latest {
		configs = engine.LatestByPath(configs)
	}

	return writeConfigurations(configs, ws.Output.Format, outFile)
}

// recordRun persists one batch outcome, successful or not.
func recordRun(ctx context.Context, ws config.WorkspaceConfig, runID string, startedAt time.Time, configs []engine.Configuration, runErr error) error {
	store, err := stores.NewSQLiteStore(stores.Config{Path: ws.Store.Path})
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

	run := &stores.Run{
		ID:          runID,
		Root:        ws.Registry.Root,
		Releases:    strings.Join(ws.Releases, ","),
		Status:      stores.RunStatusCompleted,
		ConfigCount: len(configs),
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
	}
	if runErr != nil {
		msg := runErr.Error()
		run.Status = stores.RunStatusFailed
		run.Error = &msg
		configs = nil
	}

	return store.SaveRun(ctx, run, configs)
}

// writeConfigurations renders the configuration list to outFile or
// stdout in the requested format.
func writeConfigurations(configs []engine.Configuration, format, outFile string) error {
	var data []byte
	var err error

	switch format {
	case "json":
		data, err = json.MarshalIndent(configs, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case "", "yaml":
		data, err = yaml.Marshal(configs)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode configurations: %w", err)
	}

	if outFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outFile, data, 0o644)
}

// watchAndResolve re-runs resolution whenever the registry tree
// changes, with a short debounce so bulk edits trigger one run.
func watchAndResolve(ctx context.Context, ws config.WorkspaceConfig, logger *telemetry.Logger, outFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, ws.Registry.Root); err != nil {
		return err
	}

	if err := resolveOnce(ctx, ws, logger, outFile); err != nil {
		logger.WithError(err).Error("resolution failed")
	}

	const debounce = 500 * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			logger.Debugf("registry change: %s %s", event.Op, event.Name)
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name)
				}
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watcher error")

		case <-timer.C:
			log.Info().Msg("Registry changed, re-resolving")
			if err := resolveOnce(ctx, ws, logger, outFile); err != nil {
				logger.WithError(err).Error("resolution failed")
			}
		}
	}
}

// watchTree registers a directory and all its subdirectories with the
// watcher. fsnotify watches are not recursive.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
