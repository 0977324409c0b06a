package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Constraint names declared in migrations.
const (
	ConstraintAccountEmail     = "accounts_email_key"
	ConstraintAccountRole      = "accounts_role_id_fkey"
	ConstraintStudentAdmission = "students_admission_no_key"
	ConstraintStudentClass     = "students_class_id_fkey"
	ConstraintStudentUser      = "students_user_id_key"
	ConstraintTeacherUser      = "teachers_user_id_key"
	ConstraintAdminUser        = "admins_user_id_key"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrReferenceNotFound = errors.New("referenced record not found")
)

// ConstraintError reports which constraint rejected a write.
type ConstraintError struct {
	Kind       error
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Constraint)
}

func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// ConstraintName extracts the violated constraint from err, if any.
func ConstraintName(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return &ConstraintError{Kind: ErrDuplicate, Constraint: pgErr.ConstraintName, Err: err}
		case pgErrForeignKeyViolation:
			return &ConstraintError{Kind: ErrReferenceNotFound, Constraint: pgErr.ConstraintName, Err: err}
		}
	}
	return err
}
