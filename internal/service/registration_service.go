package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/events"
	"github.com/spec-kit/ims-service/internal/ids"
	"github.com/spec-kit/ims-service/internal/observability"
	"github.com/spec-kit/ims-service/internal/repository"
	"github.com/spec-kit/ims-service/internal/storage"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

// AssetUploader stores profile images.
type AssetUploader interface {
	Upload(ctx context.Context, folder string, data []byte) (*storage.Asset, error)
}

// RegistrationResult is the created account and its profile. The account never carries
// a password or hash in its serialized form.
type RegistrationResult struct {
	Account *domain.Account
	Profile domain.Profile
}

// RegistrationDependencies encapsulates collaborators of the registration service.
type RegistrationDependencies struct {
	Accounts   repository.AccountRepository
	Roles      repository.RoleRepository
	Assets     AssetUploader
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// RegistrationService creates accounts with their role-specific profiles.
type RegistrationService struct {
	accounts      repository.AccountRepository
	roles         repository.RoleRepository
	assets        AssetUploader
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	folder        string
	bcryptCost    int
	maxUpload     int
	uploadTimeout time.Duration
	now           func() time.Time
}

// NewRegistrationService builds the service. Assets may be nil, in which case
// registrations carrying an image fail with an upload error.
func NewRegistrationService(cfg config.Config, deps RegistrationDependencies, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{
		accounts:      deps.Accounts,
		roles:         deps.Roles,
		assets:        deps.Assets,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		folder:        cfg.Assets.Folder,
		bcryptCost:    cfg.Auth.BcryptCost,
		maxUpload:     cfg.Upload.MaxBytes,
		uploadTimeout: cfg.Upload.Timeout(),
		now:           time.Now,
	}
}

// RegisterStudent creates a student account and profile. The role defaults to the
// role named student when RoleID is empty.
func (s *RegistrationService) RegisterStudent(ctx context.Context, in StudentRegistration, avatar *Upload) (*RegistrationResult, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, s.fail(domain.ProfileKindStudent, validationError(err))
	}

	role, err := s.resolveStudentRole(ctx, in.RoleID)
	if err != nil {
		return nil, s.fail(domain.ProfileKindStudent, err)
	}
	return s.register(ctx, in.Email, in.Password, role, in.profile(), avatar)
}

// RegisterStaff creates a staff account. Role teacher gets a teacher profile and every
// other staff role an admin profile; the student role is rejected.
func (s *RegistrationService) RegisterStaff(ctx context.Context, in StaffRegistration, avatar *Upload) (*RegistrationResult, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, s.fail(domain.ProfileKindAdmin, validationError(err))
	}

	role, err := s.lookupRole(ctx, in.RoleID)
	if err != nil {
		return nil, s.fail(domain.ProfileKindAdmin, err)
	}
	if role.Is(domain.RoleStudent) {
		return nil, s.fail(domain.ProfileKindAdmin, apperrors.NewValidationError("validation failed", map[string]any{
			"roleId": "students register through the student route",
		}))
	}
	return s.register(ctx, in.Email, in.Password, role, in.profile(role, s.now().UTC().Truncate(24*time.Hour)), avatar)
}

func (s *RegistrationService) register(ctx context.Context, email, password string, role *domain.Role, profile domain.Profile, avatar *Upload) (*RegistrationResult, error) {
	kind := profile.Kind()
	if !avatar.empty() {
		if err := avatar.validate(s.maxUpload); err != nil {
			return nil, s.fail(kind, err)
		}
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, s.fail(kind, apperrors.NewInternalError(err))
	}

	// Fails fast before uploading; the unique constraint still decides races.
	exists, err := s.accounts.EmailExists(ctx, email)
	if err != nil {
		return nil, s.fail(kind, apperrors.NewStoreError(err))
	}
	if exists {
		return nil, s.fail(kind, emailConflict())
	}

	var asset *storage.Asset
	if !avatar.empty() {
		asset, err = s.upload(ctx, avatar)
		if err != nil {
			return nil, s.fail(kind, apperrors.NewUploadError(err))
		}
	}

	account := &domain.Account{
		Email:        email,
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if asset != nil {
		account.AvatarURL = &asset.URL
	}

	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if asset != nil {
			s.reportOrphan(ctx, asset, err)
		}
		return nil, s.fail(kind, mapStoreError(err))
	}
	account.Role = role

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("role", role.Name),
		zap.String("profile_kind", string(kind)))
	s.metrics.RecordRegistration(string(kind), observability.OutcomeSuccess)
	s.publish(ctx, events.Event{
		ID:        ids.New(),
		Type:      events.EventAccountRegistered,
		AccountID: account.ID,
		Timestamp: s.now().UTC(),
		Payload: events.AccountRegisteredPayload{
			Email:       account.Email,
			RoleName:    role.Name,
			ProfileKind: kind,
			HasAvatar:   asset != nil,
		},
	})

	return &RegistrationResult{Account: account, Profile: profile}, nil
}

func (s *RegistrationService) upload(ctx context.Context, avatar *Upload) (*storage.Asset, error) {
	if s.assets == nil {
		return nil, storage.ErrNotConfigured
	}
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}
	return s.assets.Upload(ctx, s.folder, avatar.Data)
}

// reportOrphan records an uploaded asset whose account was never created. The
// reconciliation sweep deletes it later.
func (s *RegistrationService) reportOrphan(ctx context.Context, asset *storage.Asset, cause error) {
	s.logger.Warn("asset orphaned by failed registration",
		zap.String("url", asset.URL),
		zap.String("public_id", asset.PublicID),
		zap.Error(cause))
	s.metrics.RecordOrphanedAsset()
	s.publish(ctx, events.Event{
		ID:        ids.New(),
		Type:      events.EventAssetOrphaned,
		Timestamp: s.now().UTC(),
		Payload: events.AssetOrphanedPayload{
			URL:      asset.URL,
			PublicID: asset.PublicID,
			Reason:   cause.Error(),
		},
	})
}

func (s *RegistrationService) resolveStudentRole(ctx context.Context, roleID string) (*domain.Role, error) {
	if roleID == "" {
		role, err := s.roles.GetByName(ctx, domain.RoleStudent)
		if err != nil {
			return nil, apperrors.NewStoreError(err)
		}
		return role, nil
	}
	role, err := s.lookupRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !role.Is(domain.RoleStudent) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{
			"roleId": "must be the student role",
		})
	}
	return role, nil
}

func (s *RegistrationService) lookupRole(ctx context.Context, roleID string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{
			"roleId": "does not exist",
		})
	}
	if err != nil {
		return nil, apperrors.NewStoreError(err)
	}
	return role, nil
}

func (s *RegistrationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *RegistrationService) fail(kind domain.ProfileKind, err error) error {
	outcome := observability.OutcomeFailure
	if de := apperrors.ToDomainError(err); de != nil {
		outcome = strings.ToLower(de.Code)
	}
	s.metrics.RecordRegistration(string(kind), outcome)
	return err
}

func emailConflict() error {
	return apperrors.NewConflict("Email already registered", map[string]any{"field": "email"})
}

// mapStoreError translates constraint violations into client errors.
func mapStoreError(err error) error {
	switch repository.ConstraintName(err) {
	case repository.ConstraintAccountEmail:
		return emailConflict()
	case repository.ConstraintStudentAdmission:
		return apperrors.NewConflict("Admission number already registered", map[string]any{"field": "admissionNo"})
	case repository.ConstraintStudentClass:
		return apperrors.NewValidationError("validation failed", map[string]any{"classId": "does not exist"})
	case repository.ConstraintAccountRole:
		return apperrors.NewValidationError("validation failed", map[string]any{"roleId": "does not exist"})
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("Account already registered", nil)
	}
	return apperrors.NewStoreError(err)
}
