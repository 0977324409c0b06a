package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/observability"
	"github.com/spec-kit/ims-service/internal/repository/memory"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

type authFixture struct {
	store  *memory.Store
	tokens *auth.TokenIssuer
	svc    *AuthService
	logs   *observer.ObservedLogs
	now    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := memory.NewStore().SeedRoles()
	store.AddClass(domain.Class{ID: "class-1", Name: "Grade 1"})

	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	tokens := auth.NewTokenIssuer("test-secret", auth.WithClock(func() time.Time { return now }))
	core, logs := observer.New(zap.InfoLevel)

	svc, err := NewAuthService(testConfig(), store.Accounts(), tokens, observability.NewMetrics(), zap.New(core))
	require.NoError(t, err)
	return &authFixture{store: store, tokens: tokens, svc: svc, logs: logs, now: now}
}

func (f *authFixture) register(t *testing.T, email, password string) *domain.Account {
	t.Helper()
	reg := NewRegistrationService(testConfig(), RegistrationDependencies{
		Accounts: f.store.Accounts(),
		Roles:    f.store.Roles(),
	}, zap.NewNop())
	in := validStudent()
	in.Email = email
	in.Password = password
	res, err := reg.RegisterStudent(context.Background(), in, nil)
	require.NoError(t, err)
	return res.Account
}

func TestLoginIssuesSevenDayToken(t *testing.T) {
	f := newAuthFixture(t)
	account := f.register(t, "a@x.com", "s3cret")

	res, err := f.svc.Login(context.Background(), "A@x.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, account.ID, res.Account.ID)
	assert.Equal(t, f.now.Add(7*24*time.Hour), res.ExpiresAt)
	require.NotNil(t, res.Account.StudentProfile)

	session, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.AccountID)
	assert.Equal(t, domain.RoleStudent, session.RoleName)
	assert.Equal(t, domain.SessionTTL, session.ExpiresAt.Sub(session.IssuedAt))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@x.com", "s3cret")

	_, unknownErr := f.svc.Login(context.Background(), "nobody@x.com", "s3cret")
	_, wrongErr := f.svc.Login(context.Background(), "a@x.com", "wrong")

	unknown := apperrors.ToDomainError(unknownErr)
	wrong := apperrors.ToDomainError(wrongErr)
	require.NotNil(t, unknown)
	require.NotNil(t, wrong)
	assert.Equal(t, apperrors.CodeInvalidCredentials, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, unknown.HTTPStatus, wrong.HTTPStatus)
	assert.Equal(t, "Invalid email or password", unknown.Message)

	reasons := []string{}
	for _, entry := range f.logs.FilterMessage("login rejected").All() {
		reasons = append(reasons, entry.ContextMap()["reason"].(string))
	}
	assert.Equal(t, []string{"unknown_identifier", "secret_mismatch"}, reasons)
}

func TestLoginDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	account := f.register(t, "a@x.com", "s3cret")
	require.NoError(t, f.store.SetActive(account.ID, false))

	_, err := f.svc.Login(context.Background(), "a@x.com", "s3cret")
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeAccountDisabled, de.Code)
	assert.Equal(t, 403, de.HTTPStatus)

	// A wrong password on a disabled account still reads as bad credentials.
	_, err = f.svc.Login(context.Background(), "a@x.com", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
}

func TestLoginRequiresBothFields(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Login(context.Background(), "", "pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	account := f.register(t, "a@x.com", "s3cret")
	res, err := f.svc.Login(context.Background(), "a@x.com", "s3cret")
	require.NoError(t, err)

	got, err := f.svc.Authenticate(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.Account.ID)
	assert.Equal(t, domain.RoleStudent, got.Session.RoleName)

	_, err = f.svc.Authenticate(context.Background(), res.Token+"x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTokenInvalid))

	later := auth.NewTokenIssuer("test-secret", auth.WithClock(func() time.Time { return f.now.Add(8 * 24 * time.Hour) }))
	expiredSvc, err := NewAuthService(testConfig(), f.store.Accounts(), later, nil, zap.NewNop())
	require.NoError(t, err)
	_, err = expiredSvc.Authenticate(context.Background(), res.Token)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTokenExpired))
}
