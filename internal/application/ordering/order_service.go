// Package ordering orchestrates the order pricing and fulfillment workflow:
// it serializes requests per order, runs the domain transitions, persists the
// result atomically with its outbox events and publishes them in-process.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/logger"
	"github.com/wholesale/orderflow/internal/infrastructure/telemetry"
)

// OrderServiceDeps are the collaborators of OrderService
type OrderServiceDeps struct {
	Orders      ordering.OrderRepository
	Commissions ordering.CommissionRepository
	Products    ordering.ProductCatalog
	Dealers     ordering.DealerDirectory
	Locker      shared.Locker
	Outbox      shared.OutboxRepository
}

// OrderService handles the order workflow operations
type OrderService struct {
	orders      ordering.OrderRepository
	commissions ordering.CommissionRepository
	products    ordering.ProductCatalog
	dealers     ordering.DealerDirectory
	locker      shared.Locker
	outbox      shared.OutboxRepository
	lock        LockSettings
	logger      *zap.Logger

	eventPublisher shared.EventPublisher
	storage        ReceiptStorage
	metrics        *telemetry.WorkflowMetrics
}

// NewOrderService creates a new OrderService
func NewOrderService(deps OrderServiceDeps, lock LockSettings, logger *zap.Logger) *OrderService {
	defaults := DefaultLockSettings()
	if lock.TTL <= 0 {
		lock.TTL = defaults.TTL
	}
	if lock.KeyPrefix == "" {
		lock.KeyPrefix = defaults.KeyPrefix
	}
	return &OrderService{
		orders:      deps.Orders,
		commissions: deps.Commissions,
		products:    deps.Products,
		dealers:     deps.Dealers,
		locker:      deps.Locker,
		outbox:      deps.Outbox,
		lock:        lock,
		logger:      logger,
	}
}

// SetEventPublisher sets the in-process publisher notified after each save
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetReceiptStorage enables presigned receipt uploads
func (s *OrderService) SetReceiptStorage(storage ReceiptStorage) {
	s.storage = storage
}

// SetMetrics sets the workflow metrics recorder
func (s *OrderService) SetMetrics(metrics *telemetry.WorkflowMetrics) {
	s.metrics = metrics
}

// Create creates an order in pending_pricing from a customer submission
func (s *OrderService) Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create")
	start := time.Now()
	defer func() {
		telemetry.EndSpan(span, err)
		s.recordOperation(ctx, "create", start, err)
	}()

	if !actor.IsAdmin() && req.CustomerID != actor.UserID {
		return nil, shared.ErrForbidden
	}

	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	products, err := s.products.FindByIDs(ctx, actor.TenantID, ids)
	if err != nil {
		return nil, err
	}

	var errs shared.FieldErrors
	inputs := make([]ordering.NewItemInput, 0, len(req.Items))
	for i, item := range req.Items {
		product, ok := products[item.ProductID]
		switch {
		case !ok:
			errs.Add(fmt.Sprintf("items[%d].product_id", i), "product %s not found", item.ProductID)
			continue
		case !product.IsActive:
			errs.Add(fmt.Sprintf("items[%d].product_id", i), "product %s is not available", item.ProductID)
			continue
		}
		inputs = append(inputs, ordering.NewItemInput{
			Product:       product,
			Quantity:      item.Quantity,
			CustomerNotes: item.CustomerNotes,
		})
	}
	if err := errs.Err("invalid order"); err != nil {
		return nil, err
	}

	order, err := ordering.NewOrder(actor, req.CustomerID, req.CustomerName,
		ordering.InvoiceType(req.BusinessInvoiceType), req.CustomerComment, inputs)
	if err != nil {
		return nil, err
	}

	events := order.GetDomainEvents()
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	order.ClearDomainEvents()
	s.publish(ctx, events)

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("tenant_id", order.TenantID.String()),
		zap.Int("items", len(order.Items)),
		zap.String("request_id", logger.GetRequestID(ctx)),
	)
	return ToOrderResponse(order), nil
}

// Get returns an order with its totals
func (s *OrderService) Get(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return ToOrderResponse(order), nil
}

// SubmitPricing applies the first multi-option pricing
func (s *OrderService) SubmitPricing(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req PricingRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "submit_pricing", func(_ context.Context, order *ordering.Order) error {
		return order.SubmitPricing(actor, toItemPricing(order, req.Items), req.AdminComment)
	})
}

// UpdatePricing re-prices an order, optionally sending it back to the customer
func (s *OrderService) UpdatePricing(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req UpdatePricingRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "update_pricing", func(_ context.Context, order *ordering.Order) error {
		return order.UpdatePricing(actor, toItemPricing(order, req.Items), req.AdminComment, req.NotifyCustomer)
	})
}

// SelectOption records a customer's choice for one item
func (s *OrderService) SelectOption(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req SelectOptionRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "select_option", func(_ context.Context, order *ordering.Order) error {
		return order.SelectOption(req.ItemID, req.key())
	})
}

// ApprovePricing applies the selections and confirms the order
func (s *OrderService) ApprovePricing(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req ApprovePricingRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "approve_pricing", func(_ context.Context, order *ordering.Order) error {
		for i, sel := range req.Selections {
			if err := order.SelectOption(sel.ItemID, sel.key()); err != nil {
				var de *shared.DomainError
				if errors.As(err, &de) && de.Kind == shared.KindNotFound {
					return shared.NewValidationError("invalid selection",
						shared.FieldError{Field: fmt.Sprintf("selections[%d]", i), Message: de.Message})
				}
				return err
			}
		}
		return order.ApproveSelections(actor, req.CustomerComment)
	})
}

// Reject records the refusal of the quote
func (s *OrderService) Reject(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req ReasonRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "reject", func(_ context.Context, order *ordering.Order) error {
		return order.Reject(actor, req.Reason)
	})
}

// Cancel withdraws an unconfirmed order
func (s *OrderService) Cancel(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req ReasonRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "cancel", func(_ context.Context, order *ordering.Order) error {
		return order.Cancel(actor, req.Reason)
	})
}

// RemoveItem soft-deletes an item
func (s *OrderService) RemoveItem(ctx context.Context, actor shared.Actor, orderID, itemID uuid.UUID, req VersionedRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "remove_item", func(_ context.Context, order *ordering.Order) error {
		return order.RemoveItem(actor, itemID)
	})
}

// AssignDealer attaches a dealer and snapshots its commission rate
func (s *OrderService) AssignDealer(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req AssignDealerRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "assign_dealer", func(ctx context.Context, order *ordering.Order) error {
		dealer, err := s.dealers.FindByID(ctx, actor.TenantID, req.DealerID)
		if err != nil {
			return err
		}
		return order.AssignDealer(actor, *dealer, req.Notes)
	})
}

// UnassignDealer removes the order's dealer
func (s *OrderService) UnassignDealer(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req VersionedRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "unassign_dealer", func(_ context.Context, order *ordering.Order) error {
		return order.UnassignDealer(actor)
	})
}

// SetInvoiceType switches between official and unofficial invoicing
func (s *OrderService) SetInvoiceType(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req SetInvoiceTypeRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "set_invoice_type", func(_ context.Context, order *ordering.Order) error {
		return order.SetInvoiceType(actor, ordering.InvoiceType(req.BusinessInvoiceType))
	})
}

// InvoiceStatus returns the invoice projection of an order
func (s *OrderService) InvoiceStatus(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*InvoiceStatusResponse, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return ToInvoiceStatusResponse(order), nil
}

// CreateReceiptUpload issues a presigned URL for a receipt file under the order's key space
func (s *OrderService) CreateReceiptUpload(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req ReceiptUploadRequest) (*ReceiptUploadResponse, error) {
	if s.storage == nil {
		return nil, ErrReceiptStorageDisabled
	}
	fileType, err := receiptFileType(req.ContentType)
	if err != nil {
		return nil, err
	}
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case ordering.StatusConfirmed, ordering.StatusPaymentUploaded:
	case ordering.StatusCompleted:
		return nil, shared.NewLockedError(fmt.Sprintf("order %s is completed; cannot upload receipts to it", order.ID))
	default:
		return nil, shared.NewInvalidStateError("receipts can only be uploaded for confirmed orders, order is %s", order.Status)
	}

	key := receiptKeyPrefix(order) + uuid.NewString() + "-" + sanitizeFileName(req.FileName)
	url, expiresAt, err := s.storage.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		return nil, err
	}
	return &ReceiptUploadResponse{
		UploadURL: url,
		FileKey:   key,
		FileType:  string(fileType),
		ExpiresAt: expiresAt,
	}, nil
}

// AddReceipt registers uploaded payment evidence. With storage configured the key must
// belong to the order and the object must exist.
func (s *OrderService) AddReceipt(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req AddReceiptRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "add_receipt", func(ctx context.Context, order *ordering.Order) error {
		if s.storage != nil {
			if !strings.HasPrefix(req.FileKey, receiptKeyPrefix(order)) {
				return shared.NewValidationError("invalid receipt",
					shared.FieldError{Field: "file_key", Message: "file key does not belong to this order"})
			}
			exists, err := s.storage.ObjectExists(ctx, req.FileKey)
			if err != nil {
				return err
			}
			if !exists {
				return shared.NewValidationError("invalid receipt",
					shared.FieldError{Field: "file_key", Message: "no uploaded file found for this key"})
			}
		}
		_, err := order.AddReceipt(actor, req.FileKey, ordering.ReceiptFileType(req.FileType))
		return err
	})
}

// ListReceipts returns the receipts of an order
func (s *OrderService) ListReceipts(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*PaymentReceiptsResponse, error) {
	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return &PaymentReceiptsResponse{
		OrderID:      order.ID,
		Status:       string(order.Status),
		PendingCount: len(order.PendingReceipts()),
		Receipts:     toReceiptResponses(order.Receipts),
	}, nil
}

// VerifyPayment records the admin review of the pending receipts
func (s *OrderService) VerifyPayment(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req VerifyPaymentRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "verify_payment", func(_ context.Context, order *ordering.Order) error {
		return order.VerifyPayment(actor, *req.PaymentVerified, req.PaymentNotes)
	})
}

// Complete finishes a confirmed order
func (s *OrderService) Complete(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req VersionedRequest) (*OrderResponse, error) {
	return s.mutate(ctx, actor, orderID, req.Version, "complete", func(_ context.Context, order *ordering.Order) error {
		return order.Complete(actor)
	})
}

// Events returns the audit trail of an order, oldest first
func (s *OrderService) Events(ctx context.Context, actor shared.Actor, orderID uuid.UUID) ([]OrderEventResponse, error) {
	if _, err := s.load(ctx, actor, orderID); err != nil {
		return nil, err
	}
	entries, err := s.outbox.FindByAggregate(ctx, actor.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderEventResponses(entries), nil
}

// load fetches an order visible to actor. Customers only see their own orders.
func (s *OrderService) load(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*ordering.Order, error) {
	order, err := s.orders.FindByIDForTenant(ctx, actor.TenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && order.CustomerID != actor.UserID {
		return nil, shared.NewNotFoundError("order %s not found", orderID)
	}
	return order, nil
}

// mutate runs fn on the order under the per-order lock and persists the result.
// A non-zero expectedVersion must match the stored version.
func (s *OrderService) mutate(
	ctx context.Context,
	actor shared.Actor,
	orderID uuid.UUID,
	expectedVersion int,
	operation string,
	fn func(ctx context.Context, order *ordering.Order) error,
) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", operation,
		attribute.String("order.id", orderID.String()),
	)
	start := time.Now()
	defer func() {
		telemetry.EndSpan(span, err)
		s.recordOperation(ctx, operation, start, err)
	}()

	release, err := s.locker.Acquire(ctx, s.lock.KeyPrefix+orderID.String(), s.lock.TTL)
	if err != nil {
		return nil, err
	}
	defer release()

	order, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && expectedVersion != order.Version {
		return nil, shared.NewConflictError(shared.CodeConcurrentModification,
			fmt.Sprintf("order %s is at version %d, request was based on version %d; reload and retry",
				order.ID, order.Version, expectedVersion))
	}

	from := order.Status
	if err := fn(ctx, order); err != nil {
		return nil, err
	}

	commission, err := s.syncCommission(ctx, order)
	if err != nil {
		return nil, err
	}

	events := order.GetDomainEvents()
	if commission != nil {
		events = append(events, commission.GetDomainEvents()...)
		err = s.orders.SaveWithCommission(ctx, order, commission)
	} else {
		err = s.orders.SaveWithLock(ctx, order)
	}
	if err != nil {
		return nil, err
	}
	order.ClearDomainEvents()
	if commission != nil {
		commission.ClearDomainEvents()
	}
	s.publish(ctx, events)

	fields := append(logger.ActorFields(actor),
		zap.String("order_id", order.ID.String()),
		zap.String("operation", operation),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
		zap.Int("version", order.Version),
		zap.String("request_id", logger.GetRequestID(ctx)),
	)
	if from != order.Status {
		s.logger.Info("Order transitioned", fields...)
	} else {
		s.logger.Debug("Order updated", fields...)
	}
	return ToOrderResponse(order), nil
}

// syncCommission derives the order's commission once it is confirmed, keeps it on the
// current quoted total until completion and flags it payable then. It returns nil when nothing needs saving.
func (s *OrderService) syncCommission(ctx context.Context, order *ordering.Order) (*ordering.Commission, error) {
	switch order.Status {
	case ordering.StatusConfirmed, ordering.StatusPaymentUploaded, ordering.StatusCompleted:
	default:
		return nil, nil
	}

	existing, err := s.commissions.FindByOrder(ctx, order.TenantID, order.ID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		existing = nil
	}

	commission, changed := ordering.DeriveCommission(order, existing)
	if commission == nil {
		return nil, nil
	}
	// Invoice switches, item removals and re-pricing move the total after confirmation
	if !changed && order.QuotedTotal != nil && commission.Recalculate(*order.QuotedTotal, time.Now()) {
		changed = true
	}
	if order.Status == ordering.StatusCompleted && order.CompletedAt != nil && commission.MarkPayable(*order.CompletedAt) {
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return commission, nil
}

// publish notifies in-process handlers and marks the outbox rows sent.
// Failures are logged; the state change is already committed.
func (s *OrderService) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	for _, e := range events {
		if s.metrics != nil {
			s.metrics.RecordEvent(ctx, e.EventType())
		}
	}
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Error(err), zap.Int("events", len(events)))
		return
	}
	if s.outbox == nil {
		return
	}
	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.EventID()
	}
	if err := s.outbox.MarkSent(ctx, ids, time.Now()); err != nil {
		s.logger.Warn("Failed to mark outbox entries sent", zap.Error(err))
	}
}

func (s *OrderService) recordOperation(ctx context.Context, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(ctx, operation, time.Since(start), err)
	var de *shared.DomainError
	if errors.As(err, &de) && de.Kind == shared.KindConflict {
		s.metrics.RecordConflict(ctx, operation, de.Code)
	}
}

// toItemPricing maps the request onto domain input, defaulting the final quantity to the current one
func toItemPricing(order *ordering.Order, items []ItemPricingInput) []ordering.ItemPricing {
	out := make([]ordering.ItemPricing, len(items))
	for i, in := range items {
		p := ordering.ItemPricing{
			ItemID:     in.ItemID,
			AdminNotes: in.AdminNotes,
			Options:    make([]ordering.PricingOptionInput, len(in.PricingOptions)),
		}
		if in.FinalQuantity != nil {
			p.FinalQuantity = *in.FinalQuantity
		} else if item, err := order.Items.Find(in.ItemID); err == nil {
			p.FinalQuantity = item.FinalQuantity
		}
		for j, opt := range in.PricingOptions {
			p.Options[j] = ordering.PricingOptionInput{
				Term:               ordering.PaymentTerm(opt.PaymentTerm),
				CustomLabel:        opt.CustomTermLabel,
				UnitPrice:          opt.UnitPrice,
				DiscountPercentage: opt.DiscountPercentage,
			}
		}
		out[i] = p
	}
	return out
}

func receiptKeyPrefix(order *ordering.Order) string {
	return path.Join("orders", order.TenantID.String(), order.ID.String(), "receipts") + "/"
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFileName keeps the base name of a client file name safe for an object key
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "receipt"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

func receiptFileType(contentType string) (ordering.ReceiptFileType, error) {
	switch {
	case contentType == "application/pdf":
		return ordering.ReceiptFilePDF, nil
	case strings.HasPrefix(contentType, "image/"):
		return ordering.ReceiptFileImage, nil
	}
	return "", shared.NewValidationError("invalid receipt",
		shared.FieldError{Field: "content_type", Message: "content type must be an image or application/pdf"})
}
