package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence/models"
)

// GormCommissionRepository implements ordering.CommissionRepository using GORM
type GormCommissionRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormCommissionRepository creates a new GormCommissionRepository. outbox may be nil.
func NewGormCommissionRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormCommissionRepository {
	return &GormCommissionRepository{db: db, outbox: outbox}
}

// FindByIDForTenant finds a commission by ID within a tenant
func (r *GormCommissionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ordering.Commission, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByOrder returns the commission of an order
func (r *GormCommissionRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*ordering.Commission, error) {
	return r.findOne(ctx, "tenant_id = ? AND order_id = ?", tenantID, orderID)
}

func (r *GormCommissionRepository) findOne(ctx context.Context, query string, tenantID, id uuid.UUID) (*ordering.Commission, error) {
	var model models.CommissionModel
	if err := r.db.WithContext(ctx).Where(query, tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("commission for %s not found", id)
		}
		return nil, fmt.Errorf("find commission: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByDealer lists a dealer's commissions, newest first
func (r *GormCommissionRepository) FindByDealer(ctx context.Context, tenantID, dealerID uuid.UUID) ([]ordering.Commission, error) {
	var rows []models.CommissionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND dealer_id = ?", tenantID, dealerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list commissions for dealer %s: %w", dealerID, err)
	}

	commissions := make([]ordering.Commission, len(rows))
	for i := range rows {
		commissions[i] = *rows[i].ToDomain()
	}
	return commissions, nil
}

// SaveWithLock inserts a new commission or updates an existing one with a version check
func (r *GormCommissionRepository) SaveWithLock(ctx context.Context, commission *ordering.Commission) error {
	now := time.Now()
	var version int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := saveCommissionTx(tx, commission, now)
		if err != nil {
			return err
		}
		version = v
		if events := commission.GetDomainEvents(); r.outbox != nil && len(events) > 0 {
			if err := r.outbox.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("write outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	commission.Version = version
	return nil
}

// saveCommissionTx writes the commission inside tx and returns its stored version
func saveCommissionTx(tx *gorm.DB, c *ordering.Commission, now time.Time) (int, error) {
	var currentVersion int
	res := tx.Model(&models.CommissionModel{}).
		Where("id = ?", c.ID).
		Select("version").
		Scan(&currentVersion)
	if res.Error != nil {
		return 0, fmt.Errorf("read commission version: %w", res.Error)
	}

	model := models.CommissionModelFromDomain(c)
	if res.RowsAffected == 0 {
		if err := tx.Create(model).Error; err != nil {
			return 0, fmt.Errorf("insert commission for order %s: %w", c.OrderID, err)
		}
		return model.Version, nil
	}

	if currentVersion != c.Version {
		return 0, concurrentModification("commission", c.ID)
	}
	model.Version = currentVersion + 1
	model.UpdatedAt = now
	result := tx.Model(&models.CommissionModel{}).
		Where("id = ? AND version = ?", c.ID, currentVersion).
		Updates(model.Columns())
	if result.Error != nil {
		return 0, fmt.Errorf("update commission %s: %w", c.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, concurrentModification("commission", c.ID)
	}
	return model.Version, nil
}

var _ ordering.CommissionRepository = (*GormCommissionRepository)(nil)
