package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements ordering.OrderRepository using GORM.
// Pending domain events are written to the outbox inside the save transaction.
type GormOrderRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormOrderRepository creates a new GormOrderRepository. outbox may be nil.
func NewGormOrderRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormOrderRepository {
	return &GormOrderRepository{db: db, outbox: outbox}
}

// FindByIDForTenant loads an order with its items, options and receipts
func (r *GormOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ordering.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Receipts", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("order %s not found", id)
		}
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// Create inserts a new order with its items
func (r *GormOrderRepository) Create(ctx context.Context, order *ordering.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := *model
		header.Items, header.Receipts = nil, nil
		if err := tx.Omit(clause.Associations).Create(&header).Error; err != nil {
			return fmt.Errorf("insert order %s: %w", order.ID, err)
		}
		if err := writeOrderChildren(tx, model); err != nil {
			return err
		}
		return r.saveEvents(ctx, tx, order.GetDomainEvents())
	})
}

// SaveWithLock updates the order with optimistic locking
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *ordering.Order) error {
	return r.save(ctx, order, nil)
}

// SaveWithCommission updates the order and upserts its commission in one transaction
func (r *GormOrderRepository) SaveWithCommission(ctx context.Context, order *ordering.Order, commission *ordering.Commission) error {
	return r.save(ctx, order, commission)
}

func (r *GormOrderRepository) save(ctx context.Context, order *ordering.Order, commission *ordering.Commission) error {
	now := time.Now()
	nextVersion := order.Version + 1
	commissionVersion := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		res := tx.Model(&models.OrderModel{}).
			Where("tenant_id = ? AND id = ?", order.TenantID, order.ID).
			Select("version").
			Scan(&currentVersion)
		if res.Error != nil {
			return fmt.Errorf("read order version: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return shared.NewNotFoundError("order %s not found", order.ID)
		}
		if currentVersion != order.Version {
			return concurrentModification("order", order.ID)
		}

		model := models.OrderModelFromDomain(order)
		model.Version = nextVersion
		model.UpdatedAt = now

		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", order.ID, currentVersion).
			Updates(model.Columns())
		if result.Error != nil {
			return fmt.Errorf("update order %s: %w", order.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return concurrentModification("order", order.ID)
		}

		// Options are rewritten wholesale; re-pricing replaces them.
		itemIDs := make([]uuid.UUID, len(model.Items))
		for i := range model.Items {
			itemIDs[i] = model.Items[i].ID
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("item_id IN ?", itemIDs).Delete(&models.PricingOptionModel{}).Error; err != nil {
				return fmt.Errorf("clear pricing options: %w", err)
			}
		}
		if err := writeOrderChildren(tx, model); err != nil {
			return err
		}

		events := order.GetDomainEvents()
		if commission != nil {
			v, err := saveCommissionTx(tx, commission, now)
			if err != nil {
				return err
			}
			commissionVersion = v
			events = append(events, commission.GetDomainEvents()...)
		}
		return r.saveEvents(ctx, tx, events)
	})
	if err != nil {
		return err
	}

	order.Version = nextVersion
	order.UpdatedAt = now
	if commission != nil {
		commission.Version = commissionVersion
	}
	return nil
}

func (r *GormOrderRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	if err := r.outbox.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}

// writeOrderChildren upserts items and receipts and inserts the items' current options
func writeOrderChildren(tx *gorm.DB, model *models.OrderModel) error {
	for i := range model.Items {
		item := &model.Items[i]
		row := *item
		row.Options = nil
		if err := tx.Omit(clause.Associations).Save(&row).Error; err != nil {
			return fmt.Errorf("save order item %s: %w", item.ID, err)
		}
		if len(item.Options) > 0 {
			if err := tx.Create(&item.Options).Error; err != nil {
				return fmt.Errorf("insert pricing options for item %s: %w", item.ID, err)
			}
		}
	}
	for i := range model.Receipts {
		if err := tx.Save(&model.Receipts[i]).Error; err != nil {
			return fmt.Errorf("save payment receipt %s: %w", model.Receipts[i].ID, err)
		}
	}
	return nil
}

func concurrentModification(resource string, id uuid.UUID) error {
	return shared.NewConflictError(shared.CodeConcurrentModification,
		fmt.Sprintf("%s %s was modified by another request, reload and retry", resource, id))
}

var _ ordering.OrderRepository = (*GormOrderRepository)(nil)
