package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence/models"
)

// GormDealerDirectory reads dealers from the shared dealers table
type GormDealerDirectory struct {
	db *gorm.DB
}

// NewGormDealerDirectory creates a new GormDealerDirectory
func NewGormDealerDirectory(db *gorm.DB) *GormDealerDirectory {
	return &GormDealerDirectory{db: db}
}

// FindByID returns the dealer or a NotFound error
func (d *GormDealerDirectory) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ordering.Dealer, error) {
	var model models.DealerModel
	if err := d.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("dealer %s not found", id)
		}
		return nil, fmt.Errorf("find dealer %s: %w", id, err)
	}
	return model.ToDomain(), nil
}

// GormProductCatalog reads products from the shared products table
type GormProductCatalog struct {
	db *gorm.DB
}

// NewGormProductCatalog creates a new GormProductCatalog
func NewGormProductCatalog(db *gorm.DB) *GormProductCatalog {
	return &GormProductCatalog{db: db}
}

// FindByIDs returns the requested products keyed by ID
func (c *GormProductCatalog) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ordering.Product, error) {
	products := make(map[uuid.UUID]ordering.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	var rows []models.ProductModel
	if err := c.db.WithContext(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	for i := range rows {
		products[rows[i].ID] = rows[i].ToDomain()
	}
	return products, nil
}

var (
	_ ordering.DealerDirectory = (*GormDealerDirectory)(nil)
	_ ordering.ProductCatalog  = (*GormProductCatalog)(nil)
)
