package domain

import "time"

// QueueStatus enumerates queue lifecycle states.
type QueueStatus string

const (
	QueueStatusOpen   QueueStatus = "OPEN"
	QueueStatusClosed QueueStatus = "CLOSED"
)

// Queue is an ordered line of waiting customers bound to one priority level.
// Capacity is a soft maximum; designated overflow queues may exceed it.
type Queue struct {
	ID         string
	PriorityID string
	Capacity   int
	Status     QueueStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOpen reports whether the queue accepts admissions.
func (q *Queue) IsOpen() bool {
	return q.Status == QueueStatusOpen
}
