package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of entry dates.
const DateLayout = "2006-01-02"

// EntryDate is the date of a journal entry. It decodes both plain dates
// ("2024-01-15") and RFC 3339 timestamps, and encodes as a plain date.
type EntryDate struct {
	time.Time
}

// NewEntryDate returns the given calendar date at midnight UTC.
func NewEntryDate(year int, month time.Month, day int) EntryDate {
	return EntryDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *EntryDate) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{DateLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
}

func (d EntryDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(DateLayout))
}
