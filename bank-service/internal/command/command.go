package command

import (
	"context"

	"github.com/Vashist1110/AVS-Bank/shared/models"
	"go.uber.org/zap"
)

// EventPublisher appends domain events to a stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// ReadModel is the part of the read side a command touches after it commits.
type ReadModel interface {
	InvalidateAccountView(ctx context.Context, accountIDs ...string)
	DropAccount(ctx context.Context, accountID string)
	ProjectTransaction(ctx context.Context, txn models.Transaction) error
}

// publish logs instead of failing: the write has already committed.
func publish(ctx context.Context, p EventPublisher, logger *zap.Logger, stream, eventType string, data any) {
	if err := p.Publish(ctx, stream, eventType, data); err != nil {
		logger.Warn("failed to publish event",
			zap.String("stream", stream),
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}
