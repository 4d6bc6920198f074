package enums

import "fmt"

// CartStatus tracks whether a cart is still mutable or has been frozen.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusLocked    CartStatus = "locked"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusExpired   CartStatus = "expired"
)

func (c CartStatus) String() string { return string(c) }

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	switch c {
	case CartStatusActive, CartStatusLocked, CartStatusAbandoned, CartStatusExpired:
		return true
	}
	return false
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	status := CartStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid cart status %q", value)
	}
	return status, nil
}
