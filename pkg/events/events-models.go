package events

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/finishline/finishline-data/pkg/ntime"
)

type Category = string

const (
	CategoryOCR          Category = "OCR"
	CategoryMarathon     Category = "Marathon"
	CategoryHalfMarathon Category = "HalfMarathon"
	CategoryTriathlon    Category = "Triathlon"
	CategoryTrail        Category = "Trail"
	CategoryCycling      Category = "Cycling"
	CategorySwim         Category = "Swim"
	CategoryOther        Category = "Other"
)

type Status = string

const (
	StatusScheduled Status = "scheduled"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

type DistanceType = string

const (
	DistanceRun   DistanceType = "run"
	DistanceOCR   DistanceType = "ocr"
	DistanceRelay DistanceType = "relay"
	DistanceSwim  DistanceType = "swim"
	DistanceBike  DistanceType = "bike"
	DistanceOther DistanceType = "other"
)

// Distance is one race distance or category within an event. The full set of
// distances for an event is replaced atomically on every upsert of that
// event, never partially merged.
type Distance struct {
	Id            string       `json:"id"`
	EventId       string       `json:"eventId"`
	Label         string       `json:"label"`
	DistanceKm    *float64     `json:"distanceKm,omitempty"`
	Type          DistanceType `json:"type"`
	PriceFrom     *float64     `json:"priceFrom,omitempty"`
	CutoffMinutes *int         `json:"cutoffMinutes,omitempty"`
	WaveInfo      *string      `json:"waveInfo,omitempty"`
}

func (d Distance) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Id, validation.Required),
		validation.Field(&d.Label, validation.Required),
		validation.Field(&d.Type, validation.Required, validation.In(
			DistanceRun, DistanceOCR, DistanceRelay, DistanceSwim, DistanceBike, DistanceOther)),
	)
}

// Summary carries the event columns needed by list views, including the
// organising provider's display name when one is mapped.
type Summary struct {
	Id               string      `json:"id"`
	Title            string      `json:"title"`
	StartDate        string      `json:"startDate"` // ISO-8601 instant
	City             *string     `json:"city,omitempty"`
	Country          *string     `json:"country,omitempty"`
	Lat              *float64    `json:"lat,omitempty"`
	Lng              *float64    `json:"lng,omitempty"`
	Category         Category    `json:"eventCategory"`
	Status           Status      `json:"status"`
	CoverImage       *string     `json:"coverImage,omitempty"`
	UpdatedAt        string      `json:"updatedAt"` // last-write-wins marker
	DeletedAt        ntime.NTime `json:"deletedAt,omitempty"`
	MinDistanceLabel *string     `json:"minDistanceLabel,omitempty"`
	ProviderName     *string     `json:"providerName,omitempty"`
}

// Event is the full record reconciled from the remote API: summary columns
// plus the nested distance set.
type Event struct {
	Summary
	Distances []Distance `json:"distances"`
}

func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Id, validation.Required),
		validation.Field(&e.Title, validation.Required),
		validation.Field(&e.StartDate, validation.Required, validation.Date(timeLayout)),
		validation.Field(&e.UpdatedAt, validation.Required, validation.Date(timeLayout)),
		validation.Field(&e.Category, validation.Required, validation.In(
			CategoryOCR, CategoryMarathon, CategoryHalfMarathon, CategoryTriathlon,
			CategoryTrail, CategoryCycling, CategorySwim, CategoryOther)),
		validation.Field(&e.Status, validation.Required, validation.In(
			StatusScheduled, StatusOpen, StatusClosed, StatusCancelled)),
		validation.Field(&e.Distances),
	)
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Filters narrows ListSummaries results; zero values leave the dimension
// unconstrained.
type Filters struct {
	Category Category
	Status   Status
}

func (f Filters) matches(s Summary) bool {
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}
