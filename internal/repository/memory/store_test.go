package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/repository"
)

func newSeededStore() *Store {
	store := NewStore().SeedRoles()
	store.AddClass(domain.Class{ID: "c1", Name: "Grade 1"})
	return store
}

func student(admissionNo string) *domain.Student {
	return &domain.Student{
		AdmissionNo: admissionNo,
		FullName:    "Ann",
		DOB:         time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC),
		ClassID:     "c1",
	}
}

func TestCreateWithProfileLinksRows(t *testing.T) {
	store := newSeededStore()
	ctx := context.Background()

	account := &domain.Account{Email: "a@x.com", PasswordHash: "hash", RoleID: "student-role-id"}
	profile := student("A1")
	require.NoError(t, store.Accounts().CreateWithProfile(ctx, account, profile))

	assert.NotEmpty(t, account.ID)
	assert.True(t, account.IsActive)
	assert.Equal(t, account.ID, profile.UserID)
	assert.Same(t, profile, account.StudentProfile)

	loaded, err := store.Accounts().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, loaded.Role)
	assert.Equal(t, domain.RoleStudent, loaded.Role.Name)
	require.NotNil(t, loaded.StudentProfile)
	assert.Equal(t, "A1", loaded.StudentProfile.AdmissionNo)

	accounts, profiles := store.Counts()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, profiles)
}

func TestCreateWithProfileRejectsWithoutPartialWrites(t *testing.T) {
	store := newSeededStore()
	ctx := context.Background()
	require.NoError(t, store.Accounts().CreateWithProfile(ctx,
		&domain.Account{Email: "a@x.com", RoleID: "student-role-id"}, student("A1")))

	cases := map[string]struct {
		account    *domain.Account
		profile    domain.Profile
		kind       error
		constraint string
	}{
		"duplicate email": {
			account:    &domain.Account{Email: "a@x.com", RoleID: "student-role-id"},
			profile:    student("A2"),
			kind:       repository.ErrDuplicate,
			constraint: repository.ConstraintAccountEmail,
		},
		"duplicate admission number": {
			account:    &domain.Account{Email: "b@x.com", RoleID: "student-role-id"},
			profile:    student("A1"),
			kind:       repository.ErrDuplicate,
			constraint: repository.ConstraintStudentAdmission,
		},
		"unknown class": {
			account:    &domain.Account{Email: "c@x.com", RoleID: "student-role-id"},
			profile:    &domain.Student{AdmissionNo: "A3", ClassID: "missing"},
			kind:       repository.ErrReferenceNotFound,
			constraint: repository.ConstraintStudentClass,
		},
		"unknown role": {
			account:    &domain.Account{Email: "d@x.com", RoleID: "missing"},
			profile:    &domain.Admin{FullName: "Dee"},
			kind:       repository.ErrReferenceNotFound,
			constraint: repository.ConstraintAccountRole,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := store.Accounts().CreateWithProfile(ctx, tc.account, tc.profile)
			require.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.constraint, repository.ConstraintName(err))
			assert.Empty(t, tc.account.ID)

			accounts, profiles := store.Counts()
			assert.Equal(t, 1, accounts)
			assert.Equal(t, 1, profiles)
		})
	}
}

func TestAvatarInUse(t *testing.T) {
	store := newSeededStore()
	ctx := context.Background()
	url := "https://res.cloudinary.com/demo/image/upload/ims_avatars/x.jpg"

	require.NoError(t, store.Accounts().CreateWithProfile(ctx,
		&domain.Account{Email: "t@x.com", RoleID: "teacher-role-id", AvatarURL: &url},
		&domain.Teacher{FullName: "Tee"}))

	inUse, err := store.Accounts().AvatarInUse(ctx, url)
	require.NoError(t, err)
	assert.True(t, inUse)

	inUse, err = store.Accounts().AvatarInUse(ctx, url+"?other")
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestRoleLookups(t *testing.T) {
	store := newSeededStore()
	ctx := context.Background()

	roles, err := store.Roles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 6)

	role, err := store.Roles().GetByName(ctx, "STUDENT")
	require.NoError(t, err)
	assert.Equal(t, "student-role-id", role.ID)

	_, err = store.Roles().GetByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSeededStoreAcceptsStarterClass(t *testing.T) {
	store := NewStore().SeedRoles().SeedClasses()
	ctx := context.Background()

	classes, err := store.Classes().List(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 3)

	profile := &domain.Student{AdmissionNo: "A1", FullName: "Ann", ClassID: "c1"}
	require.NoError(t, store.Accounts().CreateWithProfile(ctx,
		&domain.Account{Email: "a@x.com", RoleID: "student-role-id"}, profile))
	assert.Equal(t, "c1", profile.ClassID)
}
