package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/domain"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

// Accepted date layouts for dob and joiningDate, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

// StudentRegistration carries student registration fields in their transport encoding.
type StudentRegistration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RoleID      string `json:"roleId"`
	FullName    string `json:"fullName"`
	AdmissionNo string `json:"admissionNo"`
	DOB         string `json:"dob"`
	Gender      string `json:"gender"`
	ClassID     string `json:"classId"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	BloodGroup  string `json:"bloodGroup"`
	NeedsHostel string `json:"needsHostel"`
}

// Validate checks presence and shape of the required fields.
func (r StudentRegistration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(passwordFitsBcrypt)),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.AdmissionNo, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.DOB, validation.Required, validation.By(isDate)),
		validation.Field(&r.Gender, validation.By(isGender)),
		validation.Field(&r.ClassID, validation.Required),
		validation.Field(&r.NeedsHostel, validation.By(isFlag)),
	)
}

func (r *StudentRegistration) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.RoleID = strings.TrimSpace(r.RoleID)
	r.FullName = strings.TrimSpace(r.FullName)
	r.AdmissionNo = strings.TrimSpace(r.AdmissionNo)
	r.DOB = strings.TrimSpace(r.DOB)
	r.Gender = strings.ToUpper(strings.TrimSpace(r.Gender))
	r.ClassID = strings.TrimSpace(r.ClassID)
	r.NeedsHostel = strings.TrimSpace(r.NeedsHostel)
}

// profile converts the validated fields. Validate must have passed.
func (r StudentRegistration) profile() *domain.Student {
	dob, _ := parseDate(r.DOB)
	hostel, _ := parseFlag(r.NeedsHostel)
	p := &domain.Student{
		AdmissionNo: r.AdmissionNo,
		FullName:    r.FullName,
		DOB:         dob,
		ClassID:     r.ClassID,
		Phone:       optional(r.Phone),
		Address:     optional(r.Address),
		BloodGroup:  optional(r.BloodGroup),
		NeedsHostel: hostel,
	}
	if r.Gender != "" {
		g := domain.Gender(r.Gender)
		p.Gender = &g
	}
	return p
}

// StaffRegistration carries staff registration fields in their transport encoding.
type StaffRegistration struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	RoleID        string `json:"roleId"`
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Qualification string `json:"qualification"`
	BloodGroup    string `json:"bloodGroup"`
	JoiningDate   string `json:"joiningDate"`
}

// Validate checks presence and shape of the required fields.
func (r StaffRegistration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(passwordFitsBcrypt)),
		validation.Field(&r.RoleID, validation.Required),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.JoiningDate, validation.By(isDate)),
	)
}

func (r *StaffRegistration) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.RoleID = strings.TrimSpace(r.RoleID)
	r.FullName = strings.TrimSpace(r.FullName)
	r.JoiningDate = strings.TrimSpace(r.JoiningDate)
}

// profile builds the profile variant for the resolved staff role.
func (r StaffRegistration) profile(role *domain.Role, today time.Time) domain.Profile {
	if domain.ProfileKindForRole(role.Name) == domain.ProfileKindTeacher {
		joined := today
		if r.JoiningDate != "" {
			joined, _ = parseDate(r.JoiningDate)
		}
		return &domain.Teacher{
			FullName:      r.FullName,
			Phone:         optional(r.Phone),
			Address:       optional(r.Address),
			Qualification: optional(r.Qualification),
			BloodGroup:    optional(r.BloodGroup),
			JoiningDate:   joined,
		}
	}
	return &domain.Admin{
		FullName:   r.FullName,
		Phone:      optional(r.Phone),
		BloodGroup: optional(r.BloodGroup),
	}
}

// Upload is an optional profile image attached to a registration.
type Upload struct {
	Filename string
	Data     []byte
}

func (u *Upload) empty() bool {
	return u == nil || len(u.Data) == 0
}

func (u *Upload) validate(maxBytes int) error {
	if maxBytes > 0 && len(u.Data) > maxBytes {
		return apperrors.NewValidationError("validation failed", map[string]any{
			"avatar": fmt.Sprintf("must be at most %d bytes", maxBytes),
		})
	}
	if !strings.HasPrefix(http.DetectContentType(u.Data), "image/") {
		return apperrors.NewValidationError("validation failed", map[string]any{
			"avatar": "must be an image",
		})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseFlag reads the boolean encodings multipart clients send. Empty means false.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "f", "no", "off":
		return false, nil
	case "true", "1", "t", "yes", "on":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func isDate(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := parseDate(s); err != nil {
		return errors.New("must be a date (YYYY-MM-DD)")
	}
	return nil
}

func isFlag(value interface{}) error {
	s, _ := value.(string)
	if _, err := parseFlag(s); err != nil {
		return errors.New("must be true or false")
	}
	return nil
}

func isGender(value interface{}) error {
	s, _ := value.(string)
	switch domain.Gender(s) {
	case "", domain.GenderMale, domain.GenderFemale, domain.GenderOther:
		return nil
	}
	return errors.New("must be one of MALE, FEMALE, OTHER")
}

func passwordFitsBcrypt(value interface{}) error {
	s, _ := value.(string)
	if len(s) > auth.MaxPasswordBytes {
		return fmt.Errorf("must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}

// validationError converts ozzo field errors into the API validation error.
func validationError(err error) error {
	errs, ok := err.(validation.Errors)
	if !ok {
		return apperrors.NewInternalError(err)
	}
	details := make(map[string]any, len(errs))
	for field, fieldErr := range errs {
		details[field] = fieldErr.Error()
	}
	return apperrors.NewValidationError("validation failed", details)
}
