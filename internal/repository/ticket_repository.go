package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alonso06/showcase-queueapi/internal/domain"
)

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the pgx-backed ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.CustomerTicket) error {
	const query = `
        INSERT INTO customer_tickets (id, queue_id, priority_id, customer_name, customer_ref, position, status, admitted_at, superseded_by, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at, updated_at`
	ticket.Version = 1
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.QueueID,
		ticket.PriorityID,
		ticket.CustomerName,
		ticket.CustomerRef,
		ticket.Position,
		ticket.Status,
		ticket.AdmittedAt,
		ticket.SupersededBy,
		ticket.Version,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.CustomerTicket) error {
	const query = `
        UPDATE customer_tickets
        SET queue_id=$1, position=$2, status=$3, served_at=$4, superseded_by=$5,
            version=version+1, updated_at=NOW()
        WHERE id=$6 AND version=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.QueueID,
		ticket.Position,
		ticket.Status,
		ticket.ServedAt,
		ticket.SupersededBy,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) UpdatePosition(ctx context.Context, id string, position int) error {
	const query = `
        UPDATE customer_tickets SET position=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, position, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.CustomerTicket, error) {
	const query = `
        SELECT id, queue_id, priority_id, customer_name, customer_ref, position, status,
               admitted_at, served_at, superseded_by, version, created_at, updated_at
        FROM customer_tickets WHERE id=$1`
	var ticket domain.CustomerTicket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.QueueID,
		&ticket.PriorityID,
		&ticket.CustomerName,
		&ticket.CustomerRef,
		&ticket.Position,
		&ticket.Status,
		&ticket.AdmittedAt,
		&ticket.ServedAt,
		&ticket.SupersededBy,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListActiveByQueue(ctx context.Context, queueID string) ([]domain.CustomerTicket, error) {
	const query = `
        SELECT id, queue_id, priority_id, customer_name, customer_ref, position, status,
               admitted_at, served_at, superseded_by, version, created_at, updated_at
        FROM customer_tickets
        WHERE queue_id=$1 AND status IN ($2,$3)
        ORDER BY position, admitted_at`
	rows, err := r.pool.Query(ctx, query, queueID, domain.TicketStatusWaiting, domain.TicketStatusBeingServed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountActiveByQueue(ctx context.Context, queueID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM customer_tickets
        WHERE queue_id=$1 AND status IN ($2,$3)`
	var count int
	if err := r.pool.QueryRow(ctx, query, queueID, domain.TicketStatusWaiting, domain.TicketStatusBeingServed).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTickets(rows pgx.Rows) ([]domain.CustomerTicket, error) {
	var result []domain.CustomerTicket
	for rows.Next() {
		var ticket domain.CustomerTicket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.QueueID,
			&ticket.PriorityID,
			&ticket.CustomerName,
			&ticket.CustomerRef,
			&ticket.Position,
			&ticket.Status,
			&ticket.AdmittedAt,
			&ticket.ServedAt,
			&ticket.SupersededBy,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
