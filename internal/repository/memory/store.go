// Package memory holds process-local repositories used when no database is configured
// and by tests. They enforce the same uniqueness and reference constraints as the
// Postgres schema, and CreateWithProfile is all-or-nothing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ims-service/internal/domain"
	"github.com/spec-kit/ims-service/internal/repository"
)

// Store is the shared state behind the memory repositories.
type Store struct {
	mu       sync.RWMutex
	roles    map[string]domain.Role
	classes  map[string]domain.Class
	accounts map[string]domain.Account
	byEmail  map[string]string
	students map[string]domain.Student
	teachers map[string]domain.Teacher
	admins   map[string]domain.Admin
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		roles:    make(map[string]domain.Role),
		classes:  make(map[string]domain.Class),
		accounts: make(map[string]domain.Account),
		byEmail:  make(map[string]string),
		students: make(map[string]domain.Student),
		teachers: make(map[string]domain.Teacher),
		admins:   make(map[string]domain.Admin),
		now:      time.Now,
	}
}

// SeedRoles inserts the standard role set with ids equal to "<name>-role-id".
func (s *Store) SeedRoles() *Store {
	seed := []struct{ name, display string }{
		{domain.RoleSuperAdmin, "Super Admin"},
		{domain.RoleAdmin, "Admin"},
		{domain.RoleTeacher, "Teacher"},
		{domain.RoleStudent, "Student"},
		{domain.RoleAdministrator, "Administrator"},
		{domain.RoleLibrarian, "Librarian"},
	}
	for _, r := range seed {
		s.AddRole(domain.Role{ID: r.name + "-role-id", Name: r.name, DisplayName: r.display})
	}
	return s
}

// SeedClasses inserts the starter classes c1..c3, matching the database seed.
func (s *Store) SeedClasses() *Store {
	for i := 1; i <= 3; i++ {
		s.AddClass(domain.Class{ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("Class %d", i)})
	}
	return s
}

// AddRole inserts or replaces a role.
func (s *Store) AddRole(role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
}

// AddClass inserts or replaces a class.
func (s *Store) AddClass(class domain.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = s.now()
	}
	s.classes[class.ID] = class
}

// SetActive flips an account's active flag, mirroring an administrative update.
func (s *Store) SetActive(accountID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	account.IsActive = active
	account.UpdatedAt = s.now()
	s.accounts[accountID] = account
	return nil
}

// Counts reports the number of account and profile rows.
func (s *Store) Counts() (accounts, profiles int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), len(s.students) + len(s.teachers) + len(s.admins)
}

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() repository.AccountRepository { return &accountRepository{s} }

// Roles returns the role repository view of the store.
func (s *Store) Roles() repository.RoleRepository { return &roleRepository{s} }

// Classes returns the class repository view of the store.
func (s *Store) Classes() repository.ClassRepository { return &classRepository{s} }

type accountRepository struct{ s *Store }

func (r *accountRepository) CreateWithProfile(_ context.Context, account *domain.Account, profile domain.Profile) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[account.Email]; taken {
		return &repository.ConstraintError{Kind: repository.ErrDuplicate, Constraint: repository.ConstraintAccountEmail}
	}
	if _, ok := s.roles[account.RoleID]; !ok {
		return &repository.ConstraintError{Kind: repository.ErrReferenceNotFound, Constraint: repository.ConstraintAccountRole}
	}

	id := uuid.NewString()
	switch p := profile.(type) {
	case *domain.Student:
		for _, existing := range s.students {
			if existing.AdmissionNo == p.AdmissionNo {
				return &repository.ConstraintError{Kind: repository.ErrDuplicate, Constraint: repository.ConstraintStudentAdmission}
			}
		}
		if _, ok := s.classes[p.ClassID]; !ok {
			return &repository.ConstraintError{Kind: repository.ErrReferenceNotFound, Constraint: repository.ConstraintStudentClass}
		}
	case *domain.Teacher, *domain.Admin:
	default:
		return fmt.Errorf("unsupported profile type %T", profile)
	}

	// Every check passed; nothing below can fail.
	now := s.now()
	profile.SetOwner(id)
	switch p := profile.(type) {
	case *domain.Student:
		p.ID = uuid.NewString()
		s.students[id] = *p
	case *domain.Teacher:
		p.ID = uuid.NewString()
		s.teachers[id] = *p
	case *domain.Admin:
		p.ID = uuid.NewString()
		s.admins[id] = *p
	}

	account.ID = id
	account.IsActive = true
	account.CreatedAt = now
	account.UpdatedAt = now
	stored := *account
	stored.Role = nil
	stored.StudentProfile, stored.TeacherProfile, stored.AdminProfile = nil, nil, nil
	s.accounts[id] = stored
	s.byEmail[account.Email] = id

	account.AttachProfile(profile)
	return nil
}

func (r *accountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.loadLocked(id)
}

func (r *accountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.loadLocked(id)
}

func (s *Store) loadLocked(id string) (*domain.Account, error) {
	stored, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	account := stored
	if role, ok := s.roles[account.RoleID]; ok {
		account.Role = &role
	}
	if p, ok := s.students[id]; ok {
		account.StudentProfile = &p
	}
	if p, ok := s.teachers[id]; ok {
		account.TeacherProfile = &p
	}
	if p, ok := s.admins[id]; ok {
		account.AdminProfile = &p
	}
	return &account, nil
}

func (r *accountRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.byEmail[email]
	return ok, nil
}

func (r *accountRepository) AvatarInUse(_ context.Context, url string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, account := range r.s.accounts {
		if account.AvatarURL != nil && *account.AvatarURL == url {
			return true, nil
		}
	}
	return false, nil
}

type roleRepository struct{ s *Store }

func (r *roleRepository) List(_ context.Context) ([]domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		result = append(result, role)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *roleRepository) GetByID(_ context.Context, id string) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	role, ok := r.s.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &role, nil
}

func (r *roleRepository) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, role := range r.s.roles {
		if strings.EqualFold(role.Name, name) {
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

type classRepository struct{ s *Store }

func (r *classRepository) List(_ context.Context) ([]domain.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.Class, 0, len(r.s.classes))
	for _, class := range r.s.classes {
		result = append(result, class)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
