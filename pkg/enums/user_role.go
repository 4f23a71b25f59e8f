package enums

import "fmt"

// UserRole is the role carried in access tokens.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleSalesRep UserRole = "sales_rep"
	UserRoleViewer   UserRole = "viewer"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleSalesRep,
	UserRoleViewer,
}

// UserRoles lists every known role.
func UserRoles() []UserRole {
	return append([]UserRole(nil), validUserRoles...)
}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanEditSales reports whether the role may mutate sales.
func (r UserRole) CanEditSales() bool {
	return r == UserRoleAdmin || r == UserRoleSalesRep
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
