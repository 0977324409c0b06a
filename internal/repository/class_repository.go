package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ims-service/internal/domain"
)

// ClassRepository lists academic classes.
type ClassRepository interface {
	List(ctx context.Context) ([]domain.Class, error)
}

type classRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository builds the repository.
func NewClassRepository(pool *pgxpool.Pool) ClassRepository {
	return &classRepository{pool: pool}
}

func (r *classRepository) List(ctx context.Context) ([]domain.Class, error) {
	const query = `
        SELECT id, name, description, created_at
        FROM classes ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Class{}
	for rows.Next() {
		var class domain.Class
		if err := rows.Scan(&class.ID, &class.Name, &class.Description, &class.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, class)
	}
	return result, rows.Err()
}
