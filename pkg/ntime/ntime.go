package ntime

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// NTime represents a nullable instant, stored as an RFC3339 string in SQLite
// TEXT columns. It can be used as a scan destination and marshalled to JSON.
type NTime struct {
	time    time.Time
	isValid bool // false when the instant is null
}

func Now() NTime {
	return NTime{time: time.Now().UTC(), isValid: true}
}

func From(t time.Time) NTime {
	return NTime{time: t.UTC(), isValid: true}
}

// Parse builds an NTime from an RFC3339 string; empty strings map to null.
func Parse(value string) (NTime, error) {
	if value == "" {
		return NTime{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return NTime{}, err
	}
	return NTime{parsed, true}, nil
}

func (nt NTime) Valid() bool {
	return nt.isValid
}

func (nt NTime) Time() time.Time {
	return nt.time
}

// String yields the RFC3339 representation, or an empty string for null.
func (nt NTime) String() string {
	if nt.isValid {
		return nt.time.UTC().Format(time.RFC3339)
	}
	return ""
}

func (nt *NTime) Before(compared NTime) bool {
	return nt.time.Before(compared.time)
}

// UnmarshalJSON parses a quoted RFC3339 string into an NTime; JSON null
// yields a null instant.
func (nt *NTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*nt = NTime{}
		return nil
	}
	parsed, err := time.Parse(`"`+time.RFC3339+`"`, string(b))
	if err != nil {
		return err
	}
	*nt = NTime{parsed, true}
	return nil
}

// MarshalJSON implements the Marshaller interface and operates on values rather than pointers, given NTime's heft.
func (nt NTime) MarshalJSON() ([]byte, error) {
	if nt.isValid {
		return []byte(fmt.Sprintf("%q", nt.time.UTC().Format(time.RFC3339))), nil
	}
	return []byte("null"), nil
}

// Scan implements the Scanner interface; SQLite TEXT columns surface as
// strings or byte slices depending on column affinity.
func (nt *NTime) Scan(value interface{}) error {
	switch typed := value.(type) {
	case nil:
		*nt = NTime{}
		return nil
	case time.Time:
		*nt = NTime{typed, true}
		return nil
	case string:
		parsed, err := Parse(typed)
		if err != nil {
			return err
		}
		*nt = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(typed))
		if err != nil {
			return err
		}
		*nt = parsed
		return nil
	default:
		return fmt.Errorf("ntime: cannot scan %T", value)
	}
}

// Value implements the driver Valuer interface.
func (nt NTime) Value() (driver.Value, error) {
	if nt.isValid {
		return driver.Value(nt.time.UTC().Format(time.RFC3339)), nil
	}
	return nil, nil
}
