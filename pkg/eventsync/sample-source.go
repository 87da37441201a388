package eventsync

import (
	"github.com/finishline/finishline-data/pkg/events"
)

// SampleSource serves the bundled dataset through the EventSource contract;
// it stands in for the real backend during development and in tests.
type SampleSource struct{}

func (SampleSource) ListEvents(since string) ([]events.Event, error) {
	return events.SampleEvents(), nil
}

func (SampleSource) GetEventById(id string) (events.Event, error) {
	for _, event := range events.SampleEvents() {
		if event.Id == id {
			return event, nil
		}
	}
	return events.Event{}, events.ErrNotFound
}
