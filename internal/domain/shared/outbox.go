package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
)

// OutboxEntry is a domain event persisted in the same transaction as the aggregate change.
// Entries double as the audit trail of an order.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

// NewOutboxEntry creates a new outbox entry for a domain event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		CreatedAt:     event.OccurredAt(),
	}
}

// MarkSent marks the entry as delivered to in-process handlers
func (e *OutboxEntry) MarkSent(at time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &at
}

// IsPending returns true while the entry has not been delivered
func (e *OutboxEntry) IsPending() bool {
	return e.Status == OutboxStatusPending
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	// Save persists one or more outbox entries
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// MarkSent flags the entries for the given event IDs as delivered
	MarkSent(ctx context.Context, eventIDs []uuid.UUID, at time.Time) error
	// FindByAggregate returns the entries of one aggregate, oldest first
	FindByAggregate(ctx context.Context, tenantID, aggregateID uuid.UUID) ([]*OutboxEntry, error)
}
