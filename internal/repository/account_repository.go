package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ims-service/internal/domain"
)

// AccountRepository is the credential store for accounts and their profiles.
type AccountRepository interface {
	// CreateWithProfile inserts the account and its profile atomically. On success the
	// account carries its generated id and timestamps and the profile is attached.
	CreateWithProfile(ctx context.Context, account *domain.Account, profile domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByEmail loads the account with its role and profile.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	AvatarInUse(ctx context.Context, url string) (bool, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `
        a.id, a.email, a.password_hash, a.role_id, a.is_active, a.avatar_url, a.created_at, a.updated_at,
        r.id, r.name, r.display_name, r.description`

func (r *accountRepository) CreateWithProfile(ctx context.Context, account *domain.Account, profile domain.Profile) error {
	const insertAccount = `
        INSERT INTO accounts (email, password_hash, role_id, avatar_url)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_active, created_at, updated_at`

	var (
		id                   string
		active               bool
		createdAt, updatedAt time.Time
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertAccount,
			account.Email,
			account.PasswordHash,
			account.RoleID,
			account.AvatarURL,
		).Scan(&id, &active, &createdAt, &updatedAt); err != nil {
			return err
		}
		profile.SetOwner(id)
		return insertProfile(ctx, tx, profile)
	})
	if err != nil {
		return mapError(err)
	}

	account.ID = id
	account.IsActive = active
	account.CreatedAt = createdAt
	account.UpdatedAt = updatedAt
	account.AttachProfile(profile)
	return nil
}

func insertProfile(ctx context.Context, tx pgx.Tx, profile domain.Profile) error {
	switch p := profile.(type) {
	case *domain.Student:
		const query = `
        INSERT INTO students (user_id, admission_no, full_name, dob, gender, class_id, phone, address, blood_group, needs_hostel)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
		var gender *string
		if p.Gender != nil {
			g := string(*p.Gender)
			gender = &g
		}
		return tx.QueryRow(ctx, query,
			p.UserID,
			p.AdmissionNo,
			p.FullName,
			p.DOB,
			gender,
			p.ClassID,
			p.Phone,
			p.Address,
			p.BloodGroup,
			p.NeedsHostel,
		).Scan(&p.ID)
	case *domain.Teacher:
		const query = `
        INSERT INTO teachers (user_id, full_name, phone, address, qualification, blood_group, joining_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
		return tx.QueryRow(ctx, query,
			p.UserID,
			p.FullName,
			p.Phone,
			p.Address,
			p.Qualification,
			p.BloodGroup,
			p.JoiningDate,
		).Scan(&p.ID)
	case *domain.Admin:
		const query = `
        INSERT INTO admins (user_id, full_name, phone, blood_group)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
		return tx.QueryRow(ctx, query,
			p.UserID,
			p.FullName,
			p.Phone,
			p.BloodGroup,
		).Scan(&p.ID)
	default:
		return fmt.Errorf("unsupported profile type %T", profile)
	}
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `
        FROM accounts a JOIN roles r ON r.id = a.role_id
        WHERE a.id=$1`
	return r.getOne(ctx, query, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `
        FROM accounts a JOIN roles r ON r.id = a.role_id
        WHERE a.email=$1`
	return r.getOne(ctx, query, email)
}

func (r *accountRepository) getOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	var (
		account domain.Account
		role    domain.Role
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.RoleID,
		&account.IsActive,
		&account.AvatarURL,
		&account.CreatedAt,
		&account.UpdatedAt,
		&role.ID,
		&role.Name,
		&role.DisplayName,
		&role.Description,
	); err != nil {
		return nil, mapError(err)
	}
	account.Role = &role

	if err := r.loadProfile(ctx, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) loadProfile(ctx context.Context, account *domain.Account) error {
	const studentQuery = `
        SELECT id, user_id, admission_no, full_name, dob, gender, class_id, phone, address, blood_group, needs_hostel
        FROM students WHERE user_id=$1`
	var (
		student domain.Student
		gender  *string
	)
	err := r.pool.QueryRow(ctx, studentQuery, account.ID).Scan(
		&student.ID,
		&student.UserID,
		&student.AdmissionNo,
		&student.FullName,
		&student.DOB,
		&gender,
		&student.ClassID,
		&student.Phone,
		&student.Address,
		&student.BloodGroup,
		&student.NeedsHostel,
	)
	switch {
	case err == nil:
		if gender != nil {
			g := domain.Gender(*gender)
			student.Gender = &g
		}
		account.StudentProfile = &student
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	const teacherQuery = `
        SELECT id, user_id, full_name, phone, address, qualification, blood_group, joining_date
        FROM teachers WHERE user_id=$1`
	var teacher domain.Teacher
	err = r.pool.QueryRow(ctx, teacherQuery, account.ID).Scan(
		&teacher.ID,
		&teacher.UserID,
		&teacher.FullName,
		&teacher.Phone,
		&teacher.Address,
		&teacher.Qualification,
		&teacher.BloodGroup,
		&teacher.JoiningDate,
	)
	switch {
	case err == nil:
		account.TeacherProfile = &teacher
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	const adminQuery = `
        SELECT id, user_id, full_name, phone, blood_group
        FROM admins WHERE user_id=$1`
	var admin domain.Admin
	err = r.pool.QueryRow(ctx, adminQuery, account.ID).Scan(
		&admin.ID,
		&admin.UserID,
		&admin.FullName,
		&admin.Phone,
		&admin.BloodGroup,
	)
	switch {
	case err == nil:
		account.AdminProfile = &admin
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}
	// Seeded or legacy accounts may have no profile.
	return nil
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE email=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *accountRepository) AvatarInUse(ctx context.Context, url string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM accounts WHERE avatar_url=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, url).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
