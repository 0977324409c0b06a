package dto

import (
	"github.com/spec-kit/ims-service/internal/domain"
)

// RegistrationResponse wraps a created account and its profile.
type RegistrationResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// StudentRegistrationData is the payload of a student registration.
type StudentRegistrationData struct {
	User    *domain.Account `json:"user"`
	Student *domain.Student `json:"student"`
}

// StaffRegistrationData is the payload of a staff registration. Exactly one of Teacher
// and Admin is set.
type StaffRegistrationData struct {
	User    *domain.Account `json:"user"`
	Teacher *domain.Teacher `json:"teacher,omitempty"`
	Admin   *domain.Admin   `json:"admin,omitempty"`
}

// NewStaffRegistrationData places profile under the key matching its kind.
func NewStaffRegistrationData(user *domain.Account, profile domain.Profile) StaffRegistrationData {
	data := StaffRegistrationData{User: withoutProfiles(user)}
	switch p := profile.(type) {
	case *domain.Teacher:
		data.Teacher = p
	case *domain.Admin:
		data.Admin = p
	}
	return data
}

// NewStudentRegistrationData builds the student payload.
func NewStudentRegistrationData(user *domain.Account, student *domain.Student) StudentRegistrationData {
	return StudentRegistrationData{User: withoutProfiles(user), Student: student}
}

// withoutProfiles returns a copy of the account that does not repeat the profile, which
// is rendered alongside it.
func withoutProfiles(user *domain.Account) *domain.Account {
	if user == nil {
		return nil
	}
	copied := *user
	copied.StudentProfile, copied.TeacherProfile, copied.AdminProfile = nil, nil, nil
	return &copied
}
