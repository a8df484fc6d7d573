package ordering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DealerAssignment links a dealer to an order and freezes the dealer's commission rate
type DealerAssignment struct {
	DealerID               uuid.UUID
	DealerName             string
	AssignedAt             time.Time
	AssignedBy             uuid.UUID
	Notes                  string
	CommissionRateSnapshot decimal.Decimal
}

func newDealerAssignment(dealer Dealer, notes string, assignedBy uuid.UUID, at time.Time) *DealerAssignment {
	return &DealerAssignment{
		DealerID:               dealer.ID,
		DealerName:             dealer.Name,
		AssignedAt:             at,
		AssignedBy:             assignedBy,
		Notes:                  notes,
		CommissionRateSnapshot: dealer.CommissionRate,
	}
}
