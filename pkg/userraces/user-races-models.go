package userraces

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/finishline/finishline-data/pkg/events"
	"github.com/finishline/finishline-data/pkg/ntime"
)

type Status = string

const (
	StatusFuture    Status = "FUTURE"
	StatusPast      Status = "PAST"
	StatusCancelled Status = "CANCELLED"
)

// Fields are the user-editable attributes of a race entry.
type Fields struct {
	BibNumber         *string `json:"bibNumber,omitempty"`
	WaveNumber        *string `json:"waveNumber,omitempty"`
	StartTimeLocal    *string `json:"startTimeLocal,omitempty"`
	TargetTimeMinutes *int    `json:"targetTimeMinutes,omitempty"`
	Note              *string `json:"note,omitempty"`
}

// Race is a user's personal participation record for one event. It starts
// out FUTURE when the user signs up, turns PAST once a result lands and
// CANCELLED when the user withdraws.
type Race struct {
	Id      string `json:"id"`
	EventId string `json:"eventId"`
	Status  Status `json:"status"`
	Fields
	ResultTimeSeconds *int        `json:"resultTimeSeconds,omitempty"`
	CreatedAt         ntime.NTime `json:"createdAt"`
	UpdatedAt         ntime.NTime `json:"updatedAt"`
}

// RaceWithEvent joins a race with the denormalised event columns the list
// screens render; the event metadata degrades to zero values when the event
// has left the cache.
type RaceWithEvent struct {
	Race
	Title            string           `json:"title"`
	Category         events.Category  `json:"eventCategory"`
	StartDate        *string          `json:"startDate,omitempty"`
	MinDistanceLabel *string          `json:"minDistanceLabel,omitempty"`
}

// PastRace adds the derived personal-record flag to a completed race.
type PastRace struct {
	RaceWithEvent
	PersonalRecord bool `json:"personalRecord"`
}

// Patch is a partial update; nil members are left untouched. Column names
// are resolved through a fixed allow-list, never from caller input.
// FUTURE is not a patchable status: sign-ups go through SaveFutureRace,
// which holds the one-upcoming-race-per-event check.
type Patch struct {
	BibNumber         *string
	WaveNumber        *string
	StartTimeLocal    *string
	TargetTimeMinutes *int
	ResultTimeSeconds *int
	Note              *string
	Status            *Status
}

func (p Patch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Status, validation.In(StatusPast, StatusCancelled)),
	)
}
