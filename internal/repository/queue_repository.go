package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates the pgx-backed queue repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	const query = `
        INSERT INTO queues (id, priority_id, capacity, status)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		queue.ID,
		queue.PriorityID,
		queue.Capacity,
		queue.Status,
	).Scan(&queue.CreatedAt, &queue.UpdatedAt)
}

func (r *queueRepository) Update(ctx context.Context, queue *domain.Queue) error {
	const query = `
        UPDATE queues SET capacity=$1, status=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, queue.Capacity, queue.Status, queue.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	const query = `
        SELECT id, priority_id, capacity, status, created_at, updated_at
        FROM queues WHERE id=$1`
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&queue.ID,
		&queue.PriorityID,
		&queue.Capacity,
		&queue.Status,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) ListOpenByPriority(ctx context.Context, priorityID string) ([]domain.Queue, error) {
	const query = `
        SELECT id, priority_id, capacity, status, created_at, updated_at
        FROM queues WHERE priority_id=$1 AND status=$2 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, priorityID, domain.QueueStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Queue
	for rows.Next() {
		var queue domain.Queue
		if err := rows.Scan(
			&queue.ID,
			&queue.PriorityID,
			&queue.Capacity,
			&queue.Status,
			&queue.CreatedAt,
			&queue.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, queue)
	}
	return result, rows.Err()
}
