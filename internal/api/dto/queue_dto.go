package dto

import "github.com/alonso06/showcase-queueapi/internal/domain"

// CreateQueueRequest payload for the administrative queue endpoint.
type CreateQueueRequest struct {
	QueueID    string `json:"queue_id"`
	PriorityID string `json:"priority_id"`
	Capacity   int    `json:"capacity"`
}

// QueueLoadResponse is one row of the queue load snapshot.
type QueueLoadResponse struct {
	QueueID    string             `json:"queue_id"`
	PriorityID string             `json:"priority_id"`
	Capacity   int                `json:"capacity"`
	Status     domain.QueueStatus `json:"status"`
	Occupancy  int                `json:"occupancy"`
}

// RebalanceSummaryResponse reports a rebalance outcome.
type RebalanceSummaryResponse struct {
	PriorityID string `json:"priority_id"`
	Moved      int    `json:"moved"`
	Skipped    int    `json:"skipped"`
}
