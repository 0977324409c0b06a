package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/observability"
	"github.com/spec-kit/ims-service/internal/repository"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// AuthenticatedSession pairs a verified token with the account it names.
type AuthenticatedSession struct {
	Session *domain.Session
	Account *domain.Account
}

// AuthService verifies credentials and issues session tokens.
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenIssuer
	metrics   *observability.Metrics
	logger    *zap.Logger
	dummyHash string
}

// NewAuthService builds the service. It hashes a throwaway secret at the configured
// cost so unknown emails take as long to reject as wrong passwords.
func NewAuthService(cfg config.Config, accounts repository.AccountRepository, tokens *auth.TokenIssuer, metrics *observability.Metrics, logger *zap.Logger) (*AuthService, error) {
	dummy, err := auth.HashPassword("ims-timing-equalizer", cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		metrics:   metrics,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Login checks the credential pair and returns a signed token with the account view.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.RecordLogin("invalid_request")
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = auth.ComparePassword(s.dummyHash, password)
		return nil, s.reject("unknown_identifier", email)
	}
	if err != nil {
		s.metrics.RecordLogin(observability.OutcomeFailure)
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, s.reject("secret_mismatch", email)
	}
	if !account.IsActive {
		s.logger.Info("login rejected", zap.String("reason", "account_disabled"), zap.String("account_id", account.ID))
		s.metrics.RecordLogin("account_disabled")
		return nil, apperrors.NewAccountDisabled()
	}

	roleName := ""
	if account.Role != nil {
		roleName = account.Role.Name
	}
	token, expiresAt, err := s.tokens.Issue(account.ID, roleName)
	if err != nil {
		s.metrics.RecordLogin(observability.OutcomeFailure)
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordLogin(observability.OutcomeSuccess)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// Authenticate verifies a token and loads the account it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*AuthenticatedSession, error) {
	session, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewTokenExpired()
		}
		return nil, apperrors.NewTokenInvalid()
	}
	return s.SessionAccount(ctx, session)
}

// SessionAccount loads the account behind an already verified session.
func (s *AuthService) SessionAccount(ctx context.Context, session *domain.Session) (*AuthenticatedSession, error) {
	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewTokenInvalid()
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !account.IsActive {
		return nil, apperrors.NewAccountDisabled()
	}
	return &AuthenticatedSession{Session: session, Account: account}, nil
}

// reject logs the internal reason and returns the single client-facing failure.
func (s *AuthService) reject(reason, email string) error {
	s.logger.Info("login rejected", zap.String("reason", reason), zap.String("email", email))
	s.metrics.RecordLogin("invalid_credentials")
	return apperrors.NewInvalidCredentials()
}
