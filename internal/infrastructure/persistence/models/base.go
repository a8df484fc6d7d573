package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// BaseModel provides identity and timestamps for every table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the optimistic concurrency version
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null"`
}

// TenantAggregateModel is the common header of tenant-scoped aggregate tables
type TenantAggregateModel struct {
	AggregateModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// FromTenantAggregateRoot copies the aggregate header into the model
func (m *TenantAggregateModel) FromTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
	m.Version = t.Version
	m.TenantID = t.TenantID
	m.CreatedBy = t.CreatedBy
}

// ToTenantAggregateRoot rebuilds the aggregate header. Pending domain events start empty.
func (m *TenantAggregateModel) ToTenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			Version:    m.Version,
		},
		TenantID:  m.TenantID,
		CreatedBy: m.CreatedBy,
	}
}

// All returns every model of the schema, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&ProductModel{},
		&DealerModel{},
		&OrderModel{},
		&OrderItemModel{},
		&PricingOptionModel{},
		&PaymentReceiptModel{},
		&CommissionModel{},
		&OutboxEntryModel{},
	}
}
