package domain

import "strings"

// Well-known role names seeded by migrations.
const (
	RoleSuperAdmin    = "super_admin"
	RoleAdmin         = "admin"
	RoleTeacher       = "teacher"
	RoleStudent       = "student"
	RoleAdministrator = "administrator"
	RoleLibrarian     = "librarian"
)

// Role is immutable reference data shared by many accounts.
type Role struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Description *string `json:"description,omitempty"`
}

// Is compares role names case-insensitively.
func (r Role) Is(name string) bool {
	return strings.EqualFold(r.Name, name)
}

// ProfileKindForRole maps a role name to the profile variant staff registration creates.
func ProfileKindForRole(name string) ProfileKind {
	switch strings.ToLower(name) {
	case RoleStudent:
		return ProfileKindStudent
	case RoleTeacher:
		return ProfileKindTeacher
	default:
		return ProfileKindAdmin
	}
}
