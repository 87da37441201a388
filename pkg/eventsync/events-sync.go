package eventsync

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/finishline/finishline-data/pkg/events"
)

// MetaLastSync is the app_meta key holding the last successful sync instant.
const MetaLastSync = "events.last_sync"

// EventSource is the remote API collaborator. It may be slow or fail; the
// orchestrator does not retry. The since parameter is reserved for delta
// sync and an empty value requests the full list.
type EventSource interface {
	ListEvents(since string) ([]events.Event, error)
	GetEventById(id string) (events.Event, error)
}

type Upserter interface {
	UpsertEvents(batch []events.Event) error
}

type MetaStore interface {
	GetMeta(key string) (string, error)
	SetMeta(key, value string) error
}

// Orchestrator pulls events from the remote source and reconciles them into
// the local store. A failed pull or upsert propagates and leaves the
// last-sync timestamp untouched, so the next attempt covers the same window.
type Orchestrator struct {
	source EventSource
	store  Upserter
	meta   MetaStore
	logger logrus.FieldLogger
}

func NewOrchestrator(source EventSource, store Upserter, meta MetaStore, logger logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{source, store, meta, logger}
}

// Sync performs a full pull-and-reconcile pass and records the completion
// instant in the metadata store.
func (o *Orchestrator) Sync() error {
	// delta sync is reserved for a future source revision; request everything
	batch, err := o.source.ListEvents("")
	if err != nil {
		return fmt.Errorf("listing remote events: %w", err)
	}

	for _, event := range batch {
		if err = event.Validate(); err != nil {
			return fmt.Errorf("rejecting remote event %q: %w", event.Id, err)
		}
	}

	if err = o.store.UpsertEvents(batch); err != nil {
		return fmt.Errorf("reconciling %d events: %w", len(batch), err)
	}

	if err = o.meta.SetMeta(MetaLastSync, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	o.logger.Infof("synced %d events", len(batch))
	return nil
}

// LastSync returns the recorded completion instant of the most recent
// successful sync, empty before the first one.
func (o *Orchestrator) LastSync() (string, error) {
	return o.meta.GetMeta(MetaLastSync)
}
