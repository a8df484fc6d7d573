package ordering

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
)

// MockOrderRepository is a mock implementation of ordering.OrderRepository.
// Successful saves bump the order version like the real repository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ordering.Order, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil {
		order.Version++
	}
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithCommission(ctx context.Context, order *ordering.Order, commission *ordering.Commission) error {
	args := m.Called(ctx, order, commission)
	if args.Error(0) == nil {
		order.Version++
		commission.Version++
	}
	return args.Error(0)
}

// MockCommissionRepository is a mock implementation of ordering.CommissionRepository
type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ordering.Commission, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Commission), args.Error(1)
}

func (m *MockCommissionRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*ordering.Commission, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Commission), args.Error(1)
}

func (m *MockCommissionRepository) FindByDealer(ctx context.Context, tenantID, dealerID uuid.UUID) ([]ordering.Commission, error) {
	args := m.Called(ctx, tenantID, dealerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Commission), args.Error(1)
}

func (m *MockCommissionRepository) SaveWithLock(ctx context.Context, commission *ordering.Commission) error {
	args := m.Called(ctx, commission)
	if args.Error(0) == nil {
		commission.Version++
	}
	return args.Error(0)
}

// MockProductCatalog is a mock implementation of ordering.ProductCatalog
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ordering.Product, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]ordering.Product), args.Error(1)
}

// MockDealerDirectory is a mock implementation of ordering.DealerDirectory
type MockDealerDirectory struct {
	mock.Mock
}

func (m *MockDealerDirectory) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ordering.Dealer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Dealer), args.Error(1)
}

// MockOutboxRepository is a mock implementation of shared.OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, eventIDs []uuid.UUID, at time.Time) error {
	args := m.Called(ctx, eventIDs, at)
	return args.Error(0)
}

func (m *MockOutboxRepository) FindByAggregate(ctx context.Context, tenantID, aggregateID uuid.UUID) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, tenantID, aggregateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockReceiptStorage is a mock implementation of ReceiptStorage
type MockReceiptStorage struct {
	mock.Mock
}

func (m *MockReceiptStorage) PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockReceiptStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// stubLocker grants locks unless the key is marked busy
type stubLocker struct {
	mu       sync.Mutex
	busy     map[string]bool
	acquired []string
	released int
}

func newStubLocker() *stubLocker {
	return &stubLocker{busy: map[string]bool{}}
}

func (l *stubLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[key] {
		return nil, shared.NewConflictError("ORDER_BUSY", "order is being modified by another request")
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func eventTypes(events []shared.DomainEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}
