package usecase

import (
	"context"
	"time"

	"github.com/iho/branchledger/internal/domain"
)

// outboxWriter records events in the same transaction as the change they describe.
type outboxWriter struct {
	repo  OutboxRepository
	idGen IDGenerator
}

func (w outboxWriter) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any) error {
	if w.repo == nil {
		return nil
	}

	return w.repo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            w.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
}
