package enums

import "fmt"

// EventStatus is derived from the event dates, never stored.
type EventStatus string

const (
	EventStatusUpcoming EventStatus = "upcoming"
	EventStatusOngoing  EventStatus = "ongoing"
	EventStatusFinished EventStatus = "finished"
)

func (e EventStatus) String() string { return string(e) }

// IsValid reports whether the value is a known EventStatus.
func (e EventStatus) IsValid() bool {
	switch e {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusFinished:
		return true
	}
	return false
}

// ParseEventStatus converts raw input into an EventStatus.
func ParseEventStatus(value string) (EventStatus, error) {
	status := EventStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid event status %q", value)
	}
	return status, nil
}
