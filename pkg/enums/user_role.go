package enums

import "fmt"

// UserRole gates access to the organizer and scanner surfaces.
type UserRole string

const (
	UserRoleClient    UserRole = "client"
	UserRoleOrganizer UserRole = "organizer"
	UserRoleScanner   UserRole = "scanner"
	UserRoleAdmin     UserRole = "admin"
)

func (u UserRole) String() string { return string(u) }

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	switch u {
	case UserRoleClient, UserRoleOrganizer, UserRoleScanner, UserRoleAdmin:
		return true
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	role := UserRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", value)
	}
	return role, nil
}
