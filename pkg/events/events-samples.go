package events

// Bundled sample data keeps first-run and offline screens populated until a
// sync succeeds. The samples mirror the seed payload shipped with the mobile
// app and only carry columns the schema persists.

var sampleEvents = []Event{
	{
		Summary: Summary{
			Id:               "evt_1",
			Title:            "Forest Challenge OCR",
			StartDate:        "2025-10-10T08:00:00Z",
			City:             ptr("Brno"),
			Country:          ptr("Czech Republic"),
			Lat:              fptr(49.1951),
			Lng:              fptr(16.6068),
			Category:         CategoryOCR,
			Status:           StatusOpen,
			CoverImage:       ptr("https://picsum.photos/seed/ocr1/1200/600"),
			UpdatedAt:        "2025-09-01T10:00:00Z",
			MinDistanceLabel: ptr("5 km"),
		},
		Distances: []Distance{
			{Id: "dist_1a", EventId: "evt_1", Label: "5 km Open", DistanceKm: fptr(5), Type: DistanceOCR, PriceFrom: fptr(25)},
			{Id: "dist_1b", EventId: "evt_1", Label: "10 km Elite", DistanceKm: fptr(10), Type: DistanceOCR, PriceFrom: fptr(40)},
		},
	},
	{
		Summary: Summary{
			Id:               "evt_2",
			Title:            "Prague Marathon",
			StartDate:        "2025-09-22T08:00:00Z",
			City:             ptr("Prague"),
			Country:          ptr("Czech Republic"),
			Lat:              fptr(50.0755),
			Lng:              fptr(14.4378),
			Category:         CategoryMarathon,
			Status:           StatusOpen,
			CoverImage:       ptr("https://picsum.photos/seed/mar1/1200/600"),
			UpdatedAt:        "2025-09-02T09:00:00Z",
			MinDistanceLabel: ptr("42.2 km"),
		},
		Distances: []Distance{
			{Id: "dist_2a", EventId: "evt_2", Label: "Marathon", DistanceKm: fptr(42.195), Type: DistanceRun, PriceFrom: fptr(85)},
			{Id: "dist_2b", EventId: "evt_2", Label: "Half Marathon", DistanceKm: fptr(21.0975), Type: DistanceRun, PriceFrom: fptr(55)},
		},
	},
	{
		Summary: Summary{
			Id:               "evt_3",
			Title:            "Ironman 70.3 Baltic",
			StartDate:        "2025-11-05T07:00:00Z",
			City:             ptr("Gdansk"),
			Country:          ptr("Poland"),
			Lat:              fptr(54.3721),
			Lng:              fptr(18.6386),
			Category:         CategoryTriathlon,
			Status:           StatusScheduled,
			CoverImage:       ptr("https://picsum.photos/seed/tri1/1200/600"),
			UpdatedAt:        "2025-09-03T12:00:00Z",
			MinDistanceLabel: ptr("70.3"),
		},
		Distances: []Distance{
			{Id: "dist_3a", EventId: "evt_3", Label: "70.3 Individual", Type: DistanceOther},
			{Id: "dist_3b", EventId: "evt_3", Label: "Relay", Type: DistanceRelay},
		},
	},
}

// sampleEventProviders maps the sample events to the providers seeded by the
// schema migrations, for demo purposes.
var sampleEventProviders = map[string]string{
	"evt_1": "spartan",
	"evt_2": "marathon",
	"evt_3": "ironman",
}

// SampleEvents returns a copy of the bundled dataset, for seeding and tests.
// The distance slices are copied too, keeping callers from mutating the
// package-level samples.
func SampleEvents() []Event {
	samples := make([]Event, len(sampleEvents))
	for i, event := range sampleEvents {
		distances := make([]Distance, len(event.Distances))
		copy(distances, event.Distances)
		event.Distances = distances
		samples[i] = event
	}
	return samples
}

func ptr(value string) *string {
	return &value
}

func fptr(value float64) *float64 {
	return &value
}
