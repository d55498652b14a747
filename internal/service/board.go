package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/alonso06/showcase-queueapi/internal/events"
	"github.com/alonso06/showcase-queueapi/internal/persistence"
)

// BoardPublisher relays engine events to a Redis channel for the waiting
// room display boards. Publishing is best-effort; a board that misses an
// update catches up on the next one.
type BoardPublisher struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	channel    string
	logger     *zap.Logger
}

// NewBoardPublisher creates the publisher.
func NewBoardPublisher(dispatcher events.Dispatcher, redis *persistence.Redis, channel string, logger *zap.Logger) *BoardPublisher {
	return &BoardPublisher{
		dispatcher: dispatcher,
		redis:      redis,
		channel:    channel,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the events the boards care about.
func (b *BoardPublisher) RegisterHandlers() {
	if b.dispatcher == nil {
		return
	}
	b.dispatcher.Subscribe(events.EventTicketAdmitted, b.relay)
	b.dispatcher.Subscribe(events.EventTicketClaimed, b.relay)
	b.dispatcher.Subscribe(events.EventServiceCompleted, b.relay)
	b.dispatcher.Subscribe(events.EventTicketReassigned, b.relay)
}

func (b *BoardPublisher) relay(ctx context.Context, event events.Event) error {
	if b.redis == nil || b.redis.Client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("board event marshal failed", zap.Error(err))
		return nil
	}
	if err := b.redis.Client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Debug("board publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}
