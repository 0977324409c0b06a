package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ims-service/internal/api/dto"
	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/service"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

const avatarField = "avatar"

// RegistrationHandler exposes the student and staff registration endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	maxUpload     int
}

// NewRegistrationHandler constructs handler. maxUpload bounds how much of an avatar is read.
func NewRegistrationHandler(registrations *service.RegistrationService, maxUpload int) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, maxUpload: maxUpload}
}

// RegisterStudent handles POST /api/students/register.
func (h *RegistrationHandler) RegisterStudent(c *fiber.Ctx) error {
	field, err := formFields(c)
	if err != nil {
		return err
	}
	avatar, err := h.avatar(c)
	if err != nil {
		return err
	}

	res, err := h.registrations.RegisterStudent(c.UserContext(), service.StudentRegistration{
		Email:       field("email"),
		Password:    field("password"),
		RoleID:      field("roleId"),
		FullName:    field("fullName"),
		AdmissionNo: field("admissionNo"),
		DOB:         field("dob"),
		Gender:      field("gender"),
		ClassID:     field("classId"),
		Phone:       field("phone"),
		Address:     field("address"),
		BloodGroup:  field("bloodGroup"),
		NeedsHostel: field("needsHostel"),
	}, avatar)
	if err != nil {
		return err
	}

	student, _ := res.Profile.(*domain.Student)
	return c.Status(http.StatusCreated).JSON(dto.RegistrationResponse{
		Message: "Student Registered successfully!",
		Data:    dto.NewStudentRegistrationData(res.Account, student),
	})
}

// RegisterStaff handles POST /api/staff/register.
func (h *RegistrationHandler) RegisterStaff(c *fiber.Ctx) error {
	field, err := formFields(c)
	if err != nil {
		return err
	}
	avatar, err := h.avatar(c)
	if err != nil {
		return err
	}

	res, err := h.registrations.RegisterStaff(c.UserContext(), service.StaffRegistration{
		Email:         field("email"),
		Password:      field("password"),
		RoleID:        field("roleId"),
		FullName:      field("fullName"),
		Phone:         field("phone"),
		Address:       field("address"),
		Qualification: field("qualification"),
		BloodGroup:    field("bloodGroup"),
		JoiningDate:   field("joiningDate"),
	}, avatar)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.RegistrationResponse{
		Message: "Staff Registered successfully!",
		Data:    dto.NewStaffRegistrationData(res.Account, res.Profile),
	})
}

// formFields returns a lookup over the request's fields. Form and multipart bodies are
// read as-is; JSON scalars are rendered in the same text form a multipart client sends.
func formFields(c *fiber.Ctx) (func(string) string, error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		return func(name string) string { return c.FormValue(name) }, nil
	}

	raw := map[string]interface{}{}
	if len(c.Body()) > 0 {
		if err := c.App().Config().JSONDecoder(c.Body(), &raw); err != nil {
			return nil, apperrors.NewValidationError("invalid JSON body", nil)
		}
	}
	return func(name string) string {
		switch v := raw[name].(type) {
		case string:
			return v
		case bool:
			return strconv.FormatBool(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return ""
		}
	}, nil
}

// avatar reads the optional image part. At most maxUpload+1 bytes are read so the
// service can reject oversized files.
func (h *RegistrationHandler) avatar(c *fiber.Ctx) (*service.Upload, error) {
	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	header, err := c.FormFile(avatarField)
	if err != nil {
		// No file part under that name.
		return nil, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable avatar", nil)
	}
	defer file.Close()

	var reader io.Reader = file
	if h.maxUpload > 0 {
		reader = io.LimitReader(file, int64(h.maxUpload)+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable avatar", nil)
	}
	return &service.Upload{Filename: header.Filename, Data: data}, nil
}
