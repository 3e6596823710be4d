package engine

import (
	"context"
	"time"

	"github.com/plugmatrix/plugmatrix/pkg/telemetry"
	"github.com/plugmatrix/plugmatrix/pkg/version"
)

// Params configures an Engine.
type Params struct {
	// Root is the plugins directory holding the server/ and client/
	// distribution trees.
	Root string

	// GroupID fills in the group of artifact coordinates that omit one.
	GroupID string

	// Releases are the target framework releases.
	Releases []version.Release

	// Filter admits plugin ids into the run. Nil admits all.
	Filter func(pluginID string) bool

	// Logger receives start/count and failure diagnostics. Nil gets a
	// default stderr logger.
	Logger *telemetry.Logger

	// Events receives run lifecycle and per-plugin events. Nil disables
	// publishing.
	Events *telemetry.EventPublisher
}

// Engine runs the full resolution batch: enumerate, resolve, order.
type Engine struct {
	params Params
	runID  string
	logger *telemetry.Logger
}

// New creates an engine.
func New(params Params) *Engine {
	if params.Logger == nil {
		params.Logger = telemetry.NewLogger(telemetry.Config{Level: "info"})
	}
	runID := telemetry.NewRunID()
	return &Engine{
		params: params,
		runID:  runID,
		logger: params.Logger.NewComponentLogger("engine").WithRunID(runID),
	}
}

// RunID returns the id identifying this engine's resolution batch.
func (e *Engine) RunID() string {
	return e.runID
}

// Run resolves every (plugin, release, module) combination under the
// root and returns the list sorted roots-first. The first failure
// anywhere aborts the whole batch.
func (e *Engine) Run(ctx context.Context) ([]Configuration, error) {
	started := time.Now()
	e.logger.Infof("resolving plugin configurations under %s for %d releases", e.params.Root, len(e.params.Releases))
	e.publish(func(ep *telemetry.EventPublisher) error {
		return ep.PublishRunStarted(e.runID, e.params.Root, len(e.params.Releases))
	})

	enumerator := NewEnumerator(e.params.Root, e.params.Releases, e.params.Filter, e.params.Logger)
	resolver := NewResolver(e.params.Root, e.params.GroupID, e.params.Logger)

	var configs []Configuration
	for stub, err := range enumerator.Enumerate() {
		if err != nil {
			e.logger.WithError(err).Error("enumeration failed")
			return nil, e.fail(err)
		}
		if ctx.Err() != nil {
			return nil, e.fail(ctx.Err())
		}

		resolved, err := resolver.Resolve(stub)
		if err != nil {
			e.logger.WithPlugin(stub.PluginID).WithRelease(stub.Release.String()).WithError(err).Error("resolution failed")
			return nil, e.fail(err)
		}
		configs = append(configs, resolved...)
		e.publish(func(ep *telemetry.EventPublisher) error {
			return ep.PublishPluginResolved(e.runID, stub.PluginID, stub.Release.String(), len(resolved))
		})
	}

	SortRootsFirst(configs)
	e.logger.Infof("resolved %d plugin configurations", len(configs))
	e.publish(func(ep *telemetry.EventPublisher) error {
		return ep.PublishRunCompleted(e.runID, len(configs), time.Since(started))
	})
	return configs, nil
}

// fail reports the batch failure on the event stream and passes the
// error through.
func (e *Engine) fail(err error) error {
	e.publish(func(ep *telemetry.EventPublisher) error {
		return ep.PublishRunFailed(e.runID, err.Error())
	})
	return err
}

func (e *Engine) publish(fn func(*telemetry.EventPublisher) error) {
	if e.params.Events == nil {
		return
	}
	if err := fn(e.params.Events); err != nil {
		e.logger.WithError(err).Warn("event publish failed")
	}
}

// ParseReleases parses release identifier strings, classifying the
// first failure.
func ParseReleases(texts []string) ([]version.Release, error) {
	releases := make([]version.Release, 0, len(texts))
	for _, text := range texts {
		release, err := version.ParseRelease(text)
		if err != nil {
			return nil, classify(err, "invalid target release").WithValue(text)
		}
		releases = append(releases, release)
	}
	return releases, nil
}
