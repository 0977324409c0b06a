package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/repository"
	apperrors "github.com/spec-kit/ims-service/pkg/util/errorutil"
)

// RoleService serves role and class reference data.
type RoleService struct {
	roles   repository.RoleRepository
	classes repository.ClassRepository
	cache   repository.RoleCache
	logger  *zap.Logger
}

// NewRoleService builds the service. cache may be nil.
func NewRoleService(roles repository.RoleRepository, classes repository.ClassRepository, cache repository.RoleCache, logger *zap.Logger) *RoleService {
	return &RoleService{roles: roles, classes: classes, cache: cache, logger: logger}
}

// ListRoles returns every role.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	if s.cache != nil {
		roles, ok, err := s.cache.GetRoles(ctx)
		if err != nil {
			s.logger.Warn("role cache read failed", zap.Error(err))
		} else if ok {
			return roles, nil
		}
	}

	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if s.cache != nil {
		if err := s.cache.SetRoles(ctx, roles); err != nil {
			s.logger.Warn("role cache write failed", zap.Error(err))
		}
	}
	return roles, nil
}

// ListRolesExcluding returns every role whose name does not match name, ignoring case.
func (s *RoleService) ListRolesExcluding(ctx context.Context, name string) ([]domain.Role, error) {
	roles, err := s.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return roles, nil
	}
	result := make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		if !role.Is(name) {
			result = append(result, role)
		}
	}
	return result, nil
}

// ListClasses returns every class.
func (s *RoleService) ListClasses(ctx context.Context) ([]domain.Class, error) {
	classes, err := s.classes.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return classes, nil
}
