package domain

import "time"

// Account is the authentication identity created by registration.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"roleId"`
	IsActive     bool      `json:"isActive"`
	AvatarURL    *string   `json:"avatar"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Populated by read paths that join the role and profile tables.
	Role           *Role    `json:"role,omitempty"`
	StudentProfile *Student `json:"studentProfile,omitempty"`
	TeacherProfile *Teacher `json:"teacherProfile,omitempty"`
	AdminProfile   *Admin   `json:"adminProfile,omitempty"`
}

// Profile returns whichever profile variant is attached, or nil.
func (a *Account) Profile() Profile {
	switch {
	case a.StudentProfile != nil:
		return a.StudentProfile
	case a.TeacherProfile != nil:
		return a.TeacherProfile
	case a.AdminProfile != nil:
		return a.AdminProfile
	}
	return nil
}

// AttachProfile sets the matching profile field for p.
func (a *Account) AttachProfile(p Profile) {
	switch v := p.(type) {
	case *Student:
		a.StudentProfile = v
	case *Teacher:
		a.TeacherProfile = v
	case *Admin:
		a.AdminProfile = v
	}
}
