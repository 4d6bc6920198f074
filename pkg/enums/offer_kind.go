package enums

import "fmt"

// OfferKind identifies how many attendees a single purchased unit covers.
type OfferKind string

const (
	OfferKindSolo   OfferKind = "solo"
	OfferKindDuo    OfferKind = "duo"
	OfferKindFamily OfferKind = "family"
)

func (o OfferKind) String() string { return string(o) }

// IsValid reports whether the value is a known OfferKind.
func (o OfferKind) IsValid() bool {
	switch o {
	case OfferKindSolo, OfferKindDuo, OfferKindFamily:
		return true
	}
	return false
}

// ParseOfferKind converts raw input into an OfferKind.
func ParseOfferKind(value string) (OfferKind, error) {
	kind := OfferKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid offer kind %q", value)
	}
	return kind, nil
}

// Seats returns the number of attendees covered by one unit of the kind.
func (o OfferKind) Seats() int {
	switch o {
	case OfferKindDuo:
		return 2
	case OfferKindFamily:
		return 4
	default:
		return 1
	}
}
