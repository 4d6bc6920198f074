package enums

import "fmt"

// OfferStatus tracks the sale lifecycle of an offer.
type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "active"
	OfferStatusInactive OfferStatus = "inactive"
	OfferStatusSoldOut  OfferStatus = "sold_out"
	OfferStatusExpired  OfferStatus = "expired"
)

func (o OfferStatus) String() string { return string(o) }

// IsValid reports whether the value is a known OfferStatus.
func (o OfferStatus) IsValid() bool {
	switch o {
	case OfferStatusActive, OfferStatusInactive, OfferStatusSoldOut, OfferStatusExpired:
		return true
	}
	return false
}

// ParseOfferStatus converts raw input into an OfferStatus.
func ParseOfferStatus(value string) (OfferStatus, error) {
	status := OfferStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid offer status %q", value)
	}
	return status, nil
}
