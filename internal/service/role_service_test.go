package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/repository/memory"
)

type stubRoleCache struct {
	roles  []domain.Role
	hit    bool
	getErr error
	sets   int
}

func (c *stubRoleCache) GetRoles(context.Context) ([]domain.Role, bool, error) {
	return c.roles, c.hit, c.getErr
}

func (c *stubRoleCache) SetRoles(_ context.Context, roles []domain.Role) error {
	c.sets++
	c.roles = roles
	c.hit = true
	return nil
}

func roleNames(roles []domain.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}

func TestListRolesExcluding(t *testing.T) {
	store := memory.NewStore().SeedRoles()
	svc := NewRoleService(store.Roles(), store.Classes(), nil, zap.NewNop())

	all, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 6)

	staff, err := svc.ListRolesExcluding(context.Background(), "STUDENT")
	require.NoError(t, err)
	assert.Len(t, staff, 5)
	assert.NotContains(t, roleNames(staff), domain.RoleStudent)

	unchanged, err := svc.ListRolesExcluding(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, unchanged, 6)
}

func TestListRolesUsesCache(t *testing.T) {
	store := memory.NewStore().SeedRoles()
	cache := &stubRoleCache{}
	svc := NewRoleService(store.Roles(), store.Classes(), cache, zap.NewNop())

	_, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	cache.roles = []domain.Role{{ID: "cached", Name: "cached"}}
	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, roleNames(roles))
}

func TestListRolesFallsThroughOnCacheError(t *testing.T) {
	store := memory.NewStore().SeedRoles()
	cache := &stubRoleCache{getErr: errors.New("redis down")}
	svc := NewRoleService(store.Roles(), store.Classes(), cache, zap.NewNop())

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 6)
}

func TestListClasses(t *testing.T) {
	store := memory.NewStore()
	store.AddClass(domain.Class{ID: "c2", Name: "Grade 2"})
	store.AddClass(domain.Class{ID: "c1", Name: "Grade 1"})
	svc := NewRoleService(store.Roles(), store.Classes(), nil, zap.NewNop())

	classes, err := svc.ListClasses(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "Grade 1", classes[0].Name)
}
