package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/plugmatrix/plugmatrix/pkg/engine"
	"github.com/plugmatrix/plugmatrix/pkg/registry"
	"github.com/plugmatrix/plugmatrix/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_SaveRun demonstrates recording a resolution run
// together with the configurations it produced.
func ExampleSQLiteStore_SaveRun() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	started := time.Now()
	run := &stores.Run{
		ID:          "run-001",
		Root:        "/srv/plugins",
		Releases:    "1.5",
		Status:      stores.RunStatusCompleted,
		ConfigCount: 1,
		StartedAt:   started,
		CompletedAt: started.Add(time.Second),
	}

	configs := []engine.Configuration{
		{
			SourcePath:   "server/foo/[1.0,2.0)",
			PluginID:     "foo",
			Type:         registry.ModuleServer,
			Release:      "1.5",
			Module:       registry.ModuleServer,
			VersionRange: "[1.0,2.0)",
			Artifacts: []registry.ArtifactRef{
				{GroupID: "g", ArtifactID: "a", Version: "1.5"},
			},
		},
	}

	if err := store.SaveRun(ctx, run, configs); err != nil {
		log.Fatal(err)
	}

	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Run ID: %s, Status: %s, Configurations: %d\n",
		retrieved.ID, retrieved.Status, retrieved.ConfigCount)
	// Output: Run ID: run-001, Status: completed, Configurations: 1
}

// ExampleSQLiteStore_ListConfigurations demonstrates reading back the
// ordered configurations of a stored run.
func ExampleSQLiteStore_ListConfigurations() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	run := &stores.Run{
		ID:          "run-002",
		Root:        "/srv/plugins",
		Releases:    "2.0",
		Status:      stores.RunStatusCompleted,
		ConfigCount: 2,
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
	}
	configs := []engine.Configuration{
		{
			SourcePath:   "server/bar/[2.0,)/core",
			PluginID:     "bar",
			Type:         registry.ModuleServer,
			Release:      "2.0",
			Module:       registry.ModuleCore,
			VersionRange: "[2.0,)",
		},
		{
			SourcePath:   "server/bar/[2.0,)/server",
			PluginID:     "bar",
			Type:         registry.ModuleServer,
			Release:      "2.0",
			Module:       registry.ModuleServer,
			VersionRange: "[2.0,)",
			ParentKey:    "bar.core.2.0",
		},
	}
	_ = store.SaveRun(ctx, run, configs)

	loaded, err := store.ListConfigurations(ctx, "run-002")
	if err != nil {
		log.Fatal(err)
	}

	for _, c := range loaded {
		fmt.Printf("%s parent=%q\n", c.SourcePath, c.ParentKey)
	}
	// Output:
	// server/bar/[2.0,)/core parent=""
	// server/bar/[2.0,)/server parent="bar.core.2.0"
}
