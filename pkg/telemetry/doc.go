// Package telemetry provides observability instrumentation for the
// Plugmatrix resolver.
//
// The package integrates structured logging (zerolog) and event
// publishing into one place so every component reports with the same
// field conventions.
//
// # Architecture
//
// The telemetry system is built on two pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Event Publishing - In-process event stream for run lifecycle
//     and per-plugin resolution progress
//
// # Usage
//
// Initialize a logger at application startup:
//
//	logger := telemetry.NewLogger(telemetry.Config{
//	    Level:   "info",
//	    Console: true,
//	})
//	logger = logger.NewComponentLogger("engine").WithRunID(telemetry.NewRunID())
//
// Subscribe to resolution events:
//
//	events, err := telemetry.NewEventPublisher(telemetry.DefaultEventsConfig())
//	if err != nil {
//	    return err
//	}
//	events.Subscribe(func(ev telemetry.Event) {
//	    logger.Debugf("%s: %s", ev.Type, ev.Message)
//	}, telemetry.FilterByType(telemetry.EventTypePluginResolved))
//
// # Field Conventions
//
// Loggers carry component, run_id, plugin, and release fields added
// through the With* helpers, so log lines from any component can be
// correlated back to one resolution batch.
package telemetry
