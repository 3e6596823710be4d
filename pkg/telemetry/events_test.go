package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestEventPublisher_SyncDelivery(t *testing.T) {
	ep, err := NewEventPublisher(DefaultEventsConfig())
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	var got []Event
	ep.Subscribe(func(ev Event) { got = append(got, ev) }, nil)

	if err := ep.PublishRunStarted("run-1", "/srv/plugins", 1); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := ep.PublishPluginResolved("run-1", "auth", "1.5", 2); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != EventTypeRunStarted || got[1].Type != EventTypePluginResolved {
		t.Errorf("unexpected event types: %s, %s", got[0].Type, got[1].Type)
	}
	if got[0].ID == "" || got[0].Timestamp.IsZero() {
		t.Error("event id and timestamp not filled in")
	}
	if got[1].PluginID != "auth" || got[1].Release != "1.5" {
		t.Errorf("plugin fields not carried: %+v", got[1])
	}
}

func TestEventPublisher_SubscriberFilter(t *testing.T) {
	ep, err := NewEventPublisher(DefaultEventsConfig())
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	var failures []Event
	ep.Subscribe(func(ev Event) { failures = append(failures, ev) }, FilterByLevel(EventLevelError))

	_ = ep.PublishRunStarted("run-1", "/srv/plugins", 1)
	_ = ep.PublishRunFailed("run-1", "duplicate plugin id")

	if len(failures) != 1 {
		t.Fatalf("expected 1 filtered event, got %d", len(failures))
	}
	if failures[0].Type != EventTypeRunFailed {
		t.Errorf("unexpected event type: %s", failures[0].Type)
	}
}

func TestEventPublisher_GlobalFilter(t *testing.T) {
	ep, err := NewEventPublisher(DefaultEventsConfig())
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	var got []Event
	ep.AddFilter(FilterByRunID("run-2"))
	ep.Subscribe(func(ev Event) { got = append(got, ev) }, nil)

	_ = ep.PublishRunStarted("run-1", "/srv/plugins", 1)
	_ = ep.PublishRunStarted("run-2", "/srv/plugins", 1)

	if len(got) != 1 || got[0].RunID != "run-2" {
		t.Errorf("global filter not applied: %+v", got)
	}
}

func TestEventPublisher_Disabled(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	called := false
	ep.Subscribe(func(Event) { called = true }, nil)

	if err := ep.PublishRunStarted("run-1", "/srv/plugins", 1); err != nil {
		t.Fatalf("disabled publisher returned error: %v", err)
	}
	if called {
		t.Error("disabled publisher delivered an event")
	}
	if err := ep.Shutdown(context.Background()); err != nil {
		t.Errorf("disabled publisher shutdown failed: %v", err)
	}
}

func TestEventPublisher_AsyncShutdownFlushes(t *testing.T) {
	cfg := DefaultEventsConfig()
	cfg.EnableAsync = true
	cfg.MaxBatchSize = 100

	ep, err := NewEventPublisher(cfg)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	done := make(chan Event, 8)
	ep.Subscribe(func(ev Event) { done <- ev }, nil)

	_ = ep.PublishRunCompleted("run-1", 4, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ep.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	select {
	case ev := <-done:
		if ev.Type != EventTypeRunCompleted {
			t.Errorf("unexpected event type: %s", ev.Type)
		}
	default:
		t.Error("buffered event not flushed on shutdown")
	}
}
