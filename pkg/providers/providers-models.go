package providers

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Provider is an event organiser or race series operator.
type Provider struct {
	Id      string  `json:"id"`
	Name    string  `json:"name"`
	LogoUrl *string `json:"logoUrl,omitempty"`
	Website *string `json:"website,omitempty"`
}

func (p Provider) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Id, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Website, is.URL),
	)
}

// ListOptions narrows and orders a provider's event listing.
type ListOptions struct {
	Page     int
	PageSize int

	// Search applies a case-insensitive substring match across event title,
	// city and country.
	Search string

	// DateWindowDays keeps only events starting within the next N days;
	// zero disables the window. The UI offers 30 and 90 day windows.
	DateWindowDays int

	// SortDescending flips the default start-date ascending order.
	SortDescending bool
}

func (o ListOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Page, validation.Min(0)),
		validation.Field(&o.PageSize, validation.Min(0), validation.Max(100)),
		validation.Field(&o.DateWindowDays, validation.In(0, 30, 90)),
	)
}
