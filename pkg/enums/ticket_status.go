package enums

import "fmt"

// TicketStatus tracks the redemption state of an issued ticket.
type TicketStatus string

const (
	TicketStatusValid     TicketStatus = "valid"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusExpired   TicketStatus = "expired"
)

func (t TicketStatus) String() string { return string(t) }

// IsValid reports whether the value is a known TicketStatus.
func (t TicketStatus) IsValid() bool {
	switch t {
	case TicketStatusValid, TicketStatusUsed, TicketStatusCancelled, TicketStatusExpired:
		return true
	}
	return false
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	status := TicketStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid ticket status %q", value)
	}
	return status, nil
}
