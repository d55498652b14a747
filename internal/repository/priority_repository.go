package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

type priorityRepository struct {
	pool *pgxpool.Pool
}

// NewPriorityRepository instantiates the pgx-backed catalog repository.
func NewPriorityRepository(pool *pgxpool.Pool) PriorityRepository {
	return &priorityRepository{pool: pool}
}

func (r *priorityRepository) GetByID(ctx context.Context, id string) (*domain.PriorityLevel, error) {
	const query = `
        SELECT id, rank, label
        FROM priority_levels WHERE id=$1`
	var level domain.PriorityLevel
	if err := r.pool.QueryRow(ctx, query, id).Scan(&level.ID, &level.Rank, &level.Label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

func (r *priorityRepository) List(ctx context.Context) ([]domain.PriorityLevel, error) {
	const query = `
        SELECT id, rank, label
        FROM priority_levels ORDER BY rank`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PriorityLevel
	for rows.Next() {
		var level domain.PriorityLevel
		if err := rows.Scan(&level.ID, &level.Rank, &level.Label); err != nil {
			return nil, err
		}
		result = append(result, level)
	}
	return result, rows.Err()
}
