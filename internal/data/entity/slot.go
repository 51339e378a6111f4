package entity

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// SlotMinutes is the booking granularity.
	SlotMinutes = 30

	DefaultStartHour = 10
	DefaultEndHour   = 20
)

type SlotReason string

const (
	SlotReasonNone   SlotReason = ""
	SlotReasonBooked SlotReason = "booked"
	SlotReasonPast   SlotReason = "past"
)

// Slot is one half-hour boundary within a branch's operating hours.
type Slot struct {
	Time      string     `json:"time"`
	Available bool       `json:"available"`
	Reason    SlotReason `json:"reason,omitempty"`
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// NormalizeSlotTime accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM".
// The result must sit on a slot boundary.
func NormalizeSlotTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == len("15:04:05") {
		s = s[:5]
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", s, err)
	}
	if t.Minute()%SlotMinutes != 0 {
		return "", fmt.Errorf("time %q is not on a %d-minute boundary", s, SlotMinutes)
	}
	return t.Format(TimeLayout), nil
}

// ParseSlot combines a calendar date and slot time into an instant in loc.
func ParseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %s %s: %w", date, clock, err)
	}
	return t, nil
}
