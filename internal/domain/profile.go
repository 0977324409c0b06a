package domain

import "time"

// ProfileKind names a profile variant.
type ProfileKind string

const (
	ProfileKindStudent ProfileKind = "STUDENT"
	ProfileKindTeacher ProfileKind = "TEACHER"
	ProfileKindAdmin   ProfileKind = "ADMIN"
)

// Gender enumerates the values accepted for student profiles.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Profile is the role-specific record owned by exactly one Account.
type Profile interface {
	Kind() ProfileKind
	// SetOwner links the profile to its account before insertion.
	SetOwner(accountID string)
}

// Student profile.
type Student struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	AdmissionNo string    `json:"admissionNo"`
	FullName    string    `json:"fullName"`
	DOB         time.Time `json:"dob"`
	Gender      *Gender   `json:"gender"`
	ClassID     string    `json:"classId"`
	Phone       *string   `json:"phone"`
	Address     *string   `json:"address"`
	BloodGroup  *string   `json:"bloodGroup"`
	NeedsHostel bool      `json:"needsHostel"`
}

func (s *Student) Kind() ProfileKind { return ProfileKindStudent }
func (s *Student) SetOwner(accountID string) { s.UserID = accountID }

// Teacher profile.
type Teacher struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	FullName      string    `json:"fullName"`
	Phone         *string   `json:"phone"`
	Address       *string   `json:"address"`
	Qualification *string   `json:"qualification"`
	BloodGroup    *string   `json:"bloodGroup"`
	JoiningDate   time.Time `json:"joiningDate"`
}

func (t *Teacher) Kind() ProfileKind { return ProfileKindTeacher }
func (t *Teacher) SetOwner(accountID string) { t.UserID = accountID }

// Admin profile, used for every staff role other than teacher.
type Admin struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	FullName   string  `json:"fullName"`
	Phone      *string `json:"phone"`
	BloodGroup *string `json:"bloodGroup"`
}

func (a *Admin) Kind() ProfileKind { return ProfileKindAdmin }
func (a *Admin) SetOwner(accountID string) { a.UserID = accountID }
