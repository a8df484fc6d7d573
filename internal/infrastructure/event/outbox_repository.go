package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence/models"
)

// GormOutboxRepository implements shared.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// Save persists one or more outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OutboxEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.OutboxEntryModelFromDomain(e)
	}
	if err := r.db.WithContext(ctx).Create(rows).Error; err != nil {
		return fmt.Errorf("insert outbox entries: %w", err)
	}
	return nil
}

// MarkSent flags the entries of the given events as delivered
func (r *GormOutboxRepository) MarkSent(ctx context.Context, eventIDs []uuid.UUID, at time.Time) error {
	if len(eventIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEntryModel{}).
		Where("event_id IN ? AND status = ?", eventIDs, shared.OutboxStatusPending).
		Updates(map[string]any{
			"status":       shared.OutboxStatusSent,
			"processed_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("mark outbox entries sent: %w", err)
	}
	return nil
}

// FindByAggregate returns an aggregate's entries in the order they were recorded
func (r *GormOutboxRepository) FindByAggregate(ctx context.Context, tenantID, aggregateID uuid.UUID) ([]*shared.OutboxEntry, error) {
	var rows []models.OutboxEntryModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND aggregate_id = ?", tenantID, aggregateID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list outbox entries for %s: %w", aggregateID, err)
	}

	entries := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// FindPendingBefore returns up to limit undelivered entries recorded before the cutoff, oldest first
func (r *GormOutboxRepository) FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var rows []models.OutboxEntryModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", shared.OutboxStatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list pending outbox entries: %w", err)
	}

	entries := make([]*shared.OutboxEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
