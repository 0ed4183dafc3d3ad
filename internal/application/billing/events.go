package billing

import (
	"context"

	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"go.uber.org/zap"
)

// publishAggregateEvents drains an aggregate's pending domain events into
// the publisher. Publish failures are logged, not surfaced: the financial
// mutation is already durable and event delivery is best-effort.
func publishAggregateEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, aggregate shared.AggregateRoot) {
	if publisher == nil {
		aggregate.ClearDomainEvents()
		return
	}

	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}

	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
