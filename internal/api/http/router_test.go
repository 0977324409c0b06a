package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/api/http/handlers"
	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/observability"
	"github.com/spec-kit/ims-service/internal/repository/memory"
	"github.com/spec-kit/ims-service/internal/service"
	"github.com/spec-kit/ims-service/internal/storage"
)

const testSecret = "router-test-secret"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, folder string, _ []byte) (*storage.Asset, error) {
	return &storage.Asset{
		PublicID:  folder + "/01HZY",
		URL:       "https://res.cloudinary.com/demo/image/upload/" + folder + "/01HZY.png",
		CreatedAt: time.Now(),
	}, nil
}

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenIssuer
}

func newTestServer(t *testing.T, limit config.RateLimitConfig) *testServer {
	t.Helper()
	cfg := config.Config{
		App:       config.AppConfig{Name: "ims-service", Version: "test"},
		Auth:      config.AuthConfig{JWTSecret: testSecret, BcryptCost: 4},
		Assets:    config.AssetStoreConfig{Folder: "ims_avatars"},
		Upload:    config.UploadConfig{MaxBytes: 1 << 20},
		RateLimit: limit,
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store := memory.NewStore().SeedRoles()
	store.AddClass(domain.Class{ID: "class-1", Name: "Grade 1"})

	tokens := auth.NewTokenIssuer(testSecret)
	authService, err := service.NewAuthService(cfg, store.Accounts(), tokens, metrics, logger)
	require.NoError(t, err)
	registrations := service.NewRegistrationService(cfg, service.RegistrationDependencies{
		Accounts: store.Accounts(),
		Roles:    store.Roles(),
		Assets:   stubUploader{},
		Metrics:  metrics,
	}, logger)
	roles := service.NewRoleService(store.Roles(), store.Classes(), nil, logger)

	app := NewServer(cfg, logger, metrics)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version),
		Auth:           handlers.NewAuthHandler(authService),
		Registration:   handlers.NewRegistrationHandler(registrations, cfg.Upload.MaxBytes),
		Roles:          handlers.NewRolesHandler(roles),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
		RateLimit:      limit,
	})
	return &testServer{app: app, store: store, tokens: tokens}
}

func defaultLimit() config.RateLimitConfig {
	return config.RateLimitConfig{PerSecond: 1000, Burst: 1000}
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) (int, string) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (s *testServer) postJSON(t *testing.T, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(nethttp.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	status, body := s.do(t, req)
	return status, decode(t, body)
}

func decode(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(body), &out), body)
	return out
}

func studentPayload(email string) map[string]interface{} {
	return map[string]interface{}{
		"email":       email,
		"password":    "s3cret",
		"fullName":    "Ann Example",
		"admissionNo": "ADM-" + email,
		"dob":         "2005-01-01",
		"classId":     "class-1",
		"needsHostel": true,
	}
}

func TestRegisterStudentThenDuplicate(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	raw, err := json.Marshal(studentPayload("a@x.com"))
	require.NoError(t, err)
	req := httptest.NewRequest(nethttp.MethodPost, "/api/students/register", bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	status, body := s.do(t, req)
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.NotContains(t, strings.ToLower(body), "password")
	assert.NotContains(t, body, "s3cret")

	created := decode(t, body)
	assert.Equal(t, "Student Registered successfully!", created["message"])
	data := created["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	student := data["student"].(map[string]interface{})
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, user["id"], student["userId"])
	assert.Equal(t, true, student["needsHostel"])

	accounts, profiles := s.store.Counts()

	dup := studentPayload("a@x.com")
	dup["admissionNo"] = "ADM-other"
	status, conflict := s.postJSON(t, "/api/students/register", dup)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", conflict["code"])
	assert.NotEmpty(t, conflict["error"])

	afterAccounts, afterProfiles := s.store.Counts()
	assert.Equal(t, accounts, afterAccounts)
	assert.Equal(t, profiles, afterProfiles)
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values) int {
	t.Helper()
	req := httptest.NewRequest(nethttp.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	status, _ := s.do(t, req)
	return status
}

func TestFormRegistrationSurvivesLaterRequests(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	status := s.postForm(t, "/api/students/register", url.Values{
		"email":       {"ann@x.com"},
		"password":    {"s3cret"},
		"fullName":    {"Ann"},
		"admissionNo": {"A1"},
		"dob":         {"2005-01-01"},
		"classId":     {"class-1"},
	})
	require.Equal(t, fiber.StatusCreated, status)

	for i := 0; i < 3; i++ {
		status = s.postForm(t, "/api/auth/login", url.Values{"email": {"zzz@y.org"}, "password": {"qq"}})
		assert.Equal(t, fiber.StatusUnauthorized, status)
	}

	stored, err := s.store.Accounts().GetByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.StudentProfile)
	assert.Equal(t, "A1", stored.StudentProfile.AdmissionNo)
	assert.Equal(t, "class-1", stored.StudentProfile.ClassID)

	status, body := s.postJSON(t, "/api/auth/login", map[string]string{"email": "ann@x.com", "password": "s3cret"})
	require.Equal(t, fiber.StatusOK, status)
	profile := body["user"].(map[string]interface{})["studentProfile"].(map[string]interface{})
	assert.Equal(t, "A1", profile["admissionNo"])
	assert.Equal(t, "class-1", profile["classId"])

	status = s.postForm(t, "/api/students/register", url.Values{
		"email":       {"bob@x.com"},
		"password":    {"s3cret"},
		"fullName":    {"Bob"},
		"admissionNo": {"A1"},
		"dob":         {"2005-01-01"},
		"classId":     {"class-1"},
	})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestRegisterStudentMultipartWithAvatar(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"email":       "m@x.com",
		"password":    "pw",
		"fullName":    "Multi Part",
		"admissionNo": "ADM-M",
		"dob":         "2006-02-03",
		"gender":      "male",
		"classId":     "class-1",
		"needsHostel": "true",
	} {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/students/register", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	status, body := s.do(t, req)
	require.Equal(t, fiber.StatusCreated, status, body)

	data := decode(t, body)["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	student := data["student"].(map[string]interface{})
	assert.Contains(t, user["avatar"], "ims_avatars/01HZY")
	assert.Equal(t, "MALE", student["gender"])
	assert.Equal(t, true, student["needsHostel"])
}

func TestRegisterStudentValidationFailure(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	payload := studentPayload("bad")
	delete(payload, "dob")

	status, body := s.postJSON(t, "/api/students/register", payload)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	details := body["details"].(map[string]interface{})
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "dob")
}

func TestRegisterStaffTeacher(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	status, body := s.postJSON(t, "/api/staff/register", map[string]interface{}{
		"email":    "t@school.test",
		"password": "pw",
		"roleId":   "teacher-role-id",
		"fullName": "Tee Cher",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	data := body["data"].(map[string]interface{})
	assert.Contains(t, data, "teacher")
	assert.NotContains(t, data, "admin")
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	status, _ := s.postJSON(t, "/api/students/register", studentPayload("a@x.com"))
	require.Equal(t, fiber.StatusCreated, status)

	status, body := s.postJSON(t, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "s3cret"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])
	token := body["token"].(string)
	user := body["user"].(map[string]interface{})
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
	assert.Contains(t, user, "studentProfile")

	session, err := s.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user["id"], session.AccountID)
	assert.Equal(t, domain.RoleStudent, session.RoleName)
	assert.Equal(t, 7*24*time.Hour, session.ExpiresAt.Sub(session.IssuedAt))

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/session", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	status, raw := s.do(t, req)
	require.Equal(t, fiber.StatusOK, status, raw)
	assert.Equal(t, user["id"], decode(t, raw)["userId"])

	status, _ = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/auth/session", nil))
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	status, _ := s.postJSON(t, "/api/students/register", studentPayload("a@x.com"))
	require.Equal(t, fiber.StatusCreated, status)

	wrongStatus, wrong := s.postJSON(t, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "nope"})
	unknownStatus, unknown := s.postJSON(t, "/api/auth/login", map[string]string{"email": "b@x.com", "password": "s3cret"})

	assert.Equal(t, fiber.StatusUnauthorized, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.Equal(t, wrong, unknown)
	assert.Equal(t, "Invalid email or password", wrong["error"])
}

func TestLoginDisabledAccount(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	status, body := s.postJSON(t, "/api/students/register", studentPayload("a@x.com"))
	require.Equal(t, fiber.StatusCreated, status)
	id := body["data"].(map[string]interface{})["user"].(map[string]interface{})["id"].(string)
	require.NoError(t, s.store.SetActive(id, false))

	status, body = s.postJSON(t, "/api/auth/login", map[string]string{"email": "a@x.com", "password": "s3cret"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Account disabled.", body["error"])
}

func TestListRoles(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	status, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/roles?exclude=Student", nil))
	require.Equal(t, fiber.StatusOK, status)
	var roles []domain.Role
	require.NoError(t, json.Unmarshal([]byte(body), &roles))
	assert.Len(t, roles, 5)
	for _, r := range roles {
		assert.NotEqual(t, domain.RoleStudent, r.Name)
	}

	status, body = s.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/classes", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "Grade 1")
}

func TestLoginRateLimited(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{PerSecond: 0.001, Burst: 1})
	creds := map[string]string{"email": "x@x.com", "password": "pw"}

	status, _ := s.postJSON(t, "/api/auth/login", creds)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, body := s.postJSON(t, "/api/auth/login", creds)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	s := newTestServer(t, defaultLimit())
	status, raw := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/nope", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode(t, raw)["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	status, _ := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil))
	assert.Equal(t, fiber.StatusOK, status)

	status, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "http_requests_total")
}

func TestMetricsLabelsUseRouteTemplates(t *testing.T) {
	s := newTestServer(t, defaultLimit())

	status, _ := s.postJSON(t, "/api/auth/login", map[string]string{"email": "x@x.com", "password": "pw"})
	require.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = s.postJSON(t, "/api/students/register", map[string]string{"email": "bad"})
	require.Equal(t, fiber.StatusBadRequest, status)
	for i := 0; i < 3; i++ {
		status, _ = s.do(t, httptest.NewRequest(nethttp.MethodGet, fmt.Sprintf("/scan/%d", i), nil))
		require.Equal(t, fiber.StatusNotFound, status)
	}

	for i := 0; i < 2; i++ {
		status, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
		require.Equal(t, fiber.StatusOK, status, body)
		assert.Contains(t, body, `http_errors_total{code="INVALID_CREDENTIALS",method="POST",path="/api/auth/login"} 1`)
		assert.Contains(t, body, `http_errors_total{code="VALIDATION_FAILED",method="POST",path="/api/students/register"} 1`)
		assert.Contains(t, body, `http_errors_total{code="NOT_FOUND",method="GET",path="unmatched"} 3`)
		assert.NotContains(t, body, "/scan/")
	}
}
