package enums

import "fmt"

// UserStatus controls whether an account can authenticate.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

func (u UserStatus) String() string { return string(u) }

// IsValid reports whether the value is a known UserStatus.
func (u UserStatus) IsValid() bool {
	switch u {
	case UserStatusActive, UserStatusSuspended, UserStatusDeleted:
		return true
	}
	return false
}

// ParseUserStatus converts raw input into a UserStatus.
func ParseUserStatus(value string) (UserStatus, error) {
	status := UserStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid user status %q", value)
	}
	return status, nil
}
