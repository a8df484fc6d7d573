package ordering

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository persists Order aggregates.
// Save methods write the aggregate's pending domain events to the outbox in the same transaction.
type OrderRepository interface {
	// FindByIDForTenant loads an order with items, options and receipts
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	// Create inserts a new order
	Create(ctx context.Context, order *Order) error
	// SaveWithLock updates the order if its version still matches the stored one,
	// then bumps the version. A stale version yields a CONCURRENT_MODIFICATION conflict.
	SaveWithLock(ctx context.Context, order *Order) error
	// SaveWithCommission is SaveWithLock plus the insert or update of the order's commission
	// inside the same transaction.
	SaveWithCommission(ctx context.Context, order *Order, commission *Commission) error
}

// CommissionRepository persists Commission aggregates
type CommissionRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Commission, error)
	// FindByOrder returns the order's commission or a NotFound error
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*Commission, error)
	FindByDealer(ctx context.Context, tenantID, dealerID uuid.UUID) ([]Commission, error)
	// SaveWithLock updates a commission with an optimistic version check
	SaveWithLock(ctx context.Context, commission *Commission) error
}

// ProductCatalog reads products owned by the catalog collaborator
type ProductCatalog interface {
	// FindByIDs returns the requested products keyed by ID; unknown IDs are absent from the map
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Product, error)
}

// DealerDirectory reads dealers owned by the dealer collaborator
type DealerDirectory interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Dealer, error)
}
