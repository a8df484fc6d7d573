package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	orderingapp "github.com/wholesale/orderflow/internal/application/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/auth"
	"github.com/wholesale/orderflow/internal/infrastructure/cache"
	"github.com/wholesale/orderflow/internal/infrastructure/config"
	"github.com/wholesale/orderflow/internal/infrastructure/event"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence/models"
	"github.com/wholesale/orderflow/internal/interfaces/http/dto"
	"github.com/wholesale/orderflow/internal/interfaces/http/handler"
	"github.com/wholesale/orderflow/internal/interfaces/http/middleware"
	"github.com/wholesale/orderflow/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors dto.Response with a raw data payload
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *dto.ErrorInfo  `json:"error"`
	RequestID string          `json:"request_id"`
}

type fakeStorage struct {
	mu       sync.Mutex
	uploaded map[string]bool
}

func (s *fakeStorage) PresignUpload(_ context.Context, key, _ string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded[key] = true
	return "https://uploads.test/" + key, time.Now().Add(15 * time.Minute), nil
}

func (s *fakeStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded[key], nil
}

type testAPI struct {
	t          *testing.T
	engine     *gin.Engine
	orders     *orderingapp.OrderService
	admin      string
	customer   string
	other      string
	customerID uuid.UUID
	productA   uuid.UUID
	productB   uuid.UUID
	dealerID   uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	tenantID := uuid.New()
	api := &testAPI{
		t:          t,
		customerID: uuid.New(),
		productA:   uuid.New(),
		productB:   uuid.New(),
		dealerID:   uuid.New(),
	}
	now := time.Now()
	taxRate := decimal.NewFromInt(8)
	require.NoError(t, db.Create([]*models.ProductModel{
		{BaseModel: models.BaseModel{ID: api.productA, CreatedAt: now, UpdatedAt: now}, TenantID: tenantID, Name: "Steel beam", TaxRate: &taxRate, IsActive: true},
		{BaseModel: models.BaseModel{ID: api.productB, CreatedAt: now, UpdatedAt: now}, TenantID: tenantID, Name: "Anchor bolt", IsActive: true},
	}).Error)
	require.NoError(t, db.Create(&models.DealerModel{
		BaseModel:      models.BaseModel{ID: api.dealerID, CreatedAt: now, UpdatedAt: now},
		TenantID:       tenantID,
		Name:           "North Agency",
		CommissionRate: decimal.NewFromInt(5),
		IsActive:       true,
	}).Error)

	outboxSaver := event.NewOutboxPublisher(event.NewOrderingSerializer())
	outbox := event.NewGormOutboxRepository(db)
	commissions := persistence.NewGormCommissionRepository(db, outboxSaver)

	api.orders = orderingapp.NewOrderService(orderingapp.OrderServiceDeps{
		Orders:      persistence.NewGormOrderRepository(db, outboxSaver),
		Commissions: commissions,
		Products:    persistence.NewGormProductCatalog(db),
		Dealers:     persistence.NewGormDealerDirectory(db),
		Locker:      cache.NewInMemoryOrderLocker(),
		Outbox:      outbox,
	}, orderingapp.LockSettings{}, zap.NewNop())
	commissionService := orderingapp.NewCommissionService(commissions, outbox, zap.NewNop())

	jwtService := auth.NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "orderflow-test"})
	token := func(actor shared.Actor) string {
		tok, err := jwtService.GenerateToken(actor, time.Hour)
		require.NoError(t, err)
		return tok
	}
	api.admin = token(shared.Actor{UserID: uuid.New(), TenantID: tenantID, Role: shared.RoleAdmin})
	api.customer = token(shared.Actor{UserID: api.customerID, TenantID: tenantID, Role: shared.RoleCustomer})
	api.other = token(shared.Actor{UserID: uuid.New(), TenantID: tenantID, Role: shared.RoleCustomer})

	api.engine = gin.New()
	api.engine.Use(middleware.RequestID(), middleware.JWTAuthMiddleware(jwtService))
	router.NewRouter(api.engine).
		Register(
			router.OrderRoutes(handler.NewOrderHandler(api.orders)),
			router.CommissionRoutes(handler.NewCommissionHandler(commissionService)),
		).
		Setup()
	return api
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *testAPI) order(env envelope) orderingapp.OrderResponse {
	a.t.Helper()
	var resp orderingapp.OrderResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &resp))
	return resp
}

func (a *testAPI) createOrder(invoiceType string) orderingapp.OrderResponse {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/orders/", a.customer, gin.H{
		"customer_id":           a.customerID,
		"customer_name":         "Acme Builders",
		"business_invoice_type": invoiceType,
		"items": []gin.H{
			{"product_id": a.productA, "quantity": "10"},
			{"product_id": a.productB, "quantity": "5", "customer_notes": "galvanized"},
		},
	})
	require.Equal(a.t, http.StatusCreated, status, env.Error)
	return a.order(env)
}

// pricingBody quotes product A at 100/110 and product B at 20/22
func (a *testAPI) pricingBody(order orderingapp.OrderResponse) gin.H {
	prices := map[uuid.UUID][2]string{a.productA: {"100", "110"}, a.productB: {"20", "22"}}
	items := make([]gin.H, len(order.Items))
	for i, item := range order.Items {
		p := prices[item.ProductID]
		items[i] = gin.H{
			"item_id": item.ID,
			"pricing_options": []gin.H{
				{"payment_term": "instant", "unit_price": p[0], "discount_percentage": "0"},
				{"payment_term": "1_month", "unit_price": p[1], "discount_percentage": "0"},
			},
		}
	}
	return gin.H{"version": order.Version, "items": items, "admin_comment": "valid for 7 days"}
}

func instantSelections(order orderingapp.OrderResponse) []gin.H {
	selections := make([]gin.H, len(order.Items))
	for i, item := range order.Items {
		selections[i] = gin.H{"item_id": item.ID, "payment_term": "instant"}
	}
	return selections
}

func TestOrderHandler_NegotiationToCompletion(t *testing.T) {
	api := newTestAPI(t)
	created := api.createOrder("unofficial")
	assert.Equal(t, "pending_pricing", created.Status)
	assert.Equal(t, 1, created.Version)
	assert.Nil(t, created.QuotedTotal)
	base := "/orders/" + created.ID.String()

	status, env := api.do(http.MethodPost, base+"/submit-multiple-pricing/", api.customer, api.pricingBody(created))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, dto.ErrCodeForbidden, env.Error.Code)

	status, env = api.do(http.MethodPost, base+"/assign-dealer/", api.admin, gin.H{"version": 1, "dealer_id": api.dealerID})
	require.Equal(t, http.StatusOK, status, env.Error)
	order := api.order(env)
	require.NotNil(t, order.Dealer)
	assert.Equal(t, "North Agency", order.Dealer.DealerName)

	status, env = api.do(http.MethodPost, base+"/submit-multiple-pricing/", api.admin, api.pricingBody(order))
	require.Equal(t, http.StatusOK, status, env.Error)
	order = api.order(env)
	assert.Equal(t, "waiting_customer_approval", order.Status)
	assert.Len(t, order.Items[0].PricingOptions, 2)

	status, env = api.do(http.MethodPost, base+"/approve-pricing/", api.customer, gin.H{
		"version":    order.Version,
		"selections": instantSelections(order),
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	order = api.order(env)
	assert.Equal(t, "confirmed", order.Status)
	require.NotNil(t, order.QuotedTotal)
	assert.True(t, order.QuotedTotal.Equal(decimal.NewFromInt(1100)), order.QuotedTotal.String())

	status, env = api.do(http.MethodGet, base+"/invoice-status/", api.customer, nil)
	require.Equal(t, http.StatusOK, status)
	var invoice orderingapp.InvoiceStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &invoice))
	assert.False(t, invoice.IsTaxed)
	assert.False(t, invoice.Totals.Pending)
	assert.True(t, invoice.Totals.Tax.IsZero())

	status, env = api.do(http.MethodPost, base+"/payment-receipts/", api.customer, gin.H{
		"version":   order.Version,
		"file_key":  "receipts/transfer.pdf",
		"file_type": "pdf",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	order = api.order(env)
	assert.Equal(t, "payment_uploaded", order.Status)

	status, env = api.do(http.MethodGet, base+"/payment-receipts/", api.admin, nil)
	require.Equal(t, http.StatusOK, status)
	var receipts orderingapp.PaymentReceiptsResponse
	require.NoError(t, json.Unmarshal(env.Data, &receipts))
	assert.Equal(t, 1, receipts.PendingCount)

	verified := true
	status, env = api.do(http.MethodPost, base+"/verify-payment/", api.admin, gin.H{
		"version":          order.Version,
		"payment_verified": verified,
		"payment_notes":    "matched bank statement",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	order = api.order(env)
	assert.Equal(t, "completed", order.Status)

	status, env = api.do(http.MethodPost, base+"/remove-item/"+order.Items[0].ID.String()+"/", api.admin, nil)
	assert.Equal(t, http.StatusLocked, status)
	assert.Equal(t, shared.CodeOrderLocked, env.Error.Code)

	status, env = api.do(http.MethodGet, base+"/events/", api.admin, nil)
	require.Equal(t, http.StatusOK, status)
	var events []orderingapp.OrderEventResponse
	require.NoError(t, json.Unmarshal(env.Data, &events))
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	assert.Equal(t, "OrderCreated", types[0])
	assert.Contains(t, types, "DealerAssigned")
	assert.Contains(t, types, "PaymentVerified")
	assert.Equal(t, "OrderCompleted", types[len(types)-1])

	status, env = api.do(http.MethodGet, "/admin/dealers/"+api.dealerID.String()+"/commissions/", api.admin, nil)
	require.Equal(t, http.StatusOK, status)
	var commissions []orderingapp.CommissionResponse
	require.NoError(t, json.Unmarshal(env.Data, &commissions))
	require.Len(t, commissions, 1)
	assert.True(t, commissions[0].Amount.Equal(decimal.NewFromInt(55)), commissions[0].Amount.String())
	assert.True(t, commissions[0].IsPayable)

	status, env = api.do(http.MethodPost, "/admin/dealers/pay-commissions/", api.admin, gin.H{
		"commission_ids":    []uuid.UUID{commissions[0].ID, uuid.New()},
		"payment_reference": "BATCH-2026-10",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	var result orderingapp.MarkPaidResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Succeeded, 1)
	assert.True(t, result.Succeeded[0].IsPaid)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, shared.CodeNotFound, result.Failed[0].Code)
}

func TestOrderHandler_Errors(t *testing.T) {
	api := newTestAPI(t)
	created := api.createOrder("official")
	base := "/orders/" + created.ID.String()

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1"+base+"/assign-dealer/", strings.NewReader("{"))
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+api.admin)
		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})

	t.Run("binding failures carry field details", func(t *testing.T) {
		status, env := api.do(http.MethodPost, "/orders/", api.customer, gin.H{
			"customer_id":           api.customerID,
			"customer_name":         "Acme Builders",
			"business_invoice_type": "proforma",
			"items":                 []gin.H{},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		fields := make([]string, len(env.Error.Details))
		for i, d := range env.Error.Details {
			fields[i] = d.Field
		}
		assert.ElementsMatch(t, []string{"business_invoice_type", "items"}, fields)
	})

	t.Run("single option is a domain validation error", func(t *testing.T) {
		body := api.pricingBody(created)
		items := body["items"].([]gin.H)
		items[0]["pricing_options"] = items[0]["pricing_options"].([]gin.H)[:1]

		status, env := api.do(http.MethodPost, base+"/submit-multiple-pricing/", api.admin, body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, shared.CodeValidationFailed, env.Error.Code)
		assert.NotEmpty(t, env.Error.Details)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		status, env := api.do(http.MethodPost, base+"/cancel/", api.customer, gin.H{"version": 7, "reason": "changed plans"})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, shared.CodeConcurrentModification, env.Error.Code)
	})

	t.Run("approval before pricing is an invalid state", func(t *testing.T) {
		status, env := api.do(http.MethodPost, base+"/approve-pricing/", api.customer, gin.H{"version": created.Version})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, shared.CodeInvalidState, env.Error.Code)
	})

	t.Run("other customers cannot see the order", func(t *testing.T) {
		status, _ := api.do(http.MethodGet, base+"/", api.other, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("unknown order", func(t *testing.T) {
		status, env := api.do(http.MethodGet, "/orders/"+uuid.NewString()+"/", api.admin, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, shared.CodeNotFound, env.Error.Code)
	})

	t.Run("invalid path id", func(t *testing.T) {
		status, env := api.do(http.MethodGet, "/orders/not-a-uuid/", api.admin, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "id", env.Error.Details[0].Field)
	})

	t.Run("upload url without storage", func(t *testing.T) {
		status, env := api.do(http.MethodPost, base+"/payment-receipts/upload-url/", api.customer, gin.H{
			"file_name":    "transfer.png",
			"content_type": "image/png",
		})
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, dto.ErrCodeStorageDisabled, env.Error.Code)
	})

	t.Run("cancel succeeds once", func(t *testing.T) {
		status, env := api.do(http.MethodPost, base+"/cancel/", api.customer, gin.H{"reason": "changed plans"})
		require.Equal(t, http.StatusOK, status, env.Error)
		assert.Equal(t, "cancelled", api.order(env).Status)

		status, _ = api.do(http.MethodPost, base+"/cancel/", api.customer, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})
}

func TestOrderHandler_ReceiptUpload(t *testing.T) {
	api := newTestAPI(t)
	api.orders.SetReceiptStorage(&fakeStorage{uploaded: map[string]bool{}})

	order := api.createOrder("official")
	base := "/orders/" + order.ID.String()

	status, env := api.do(http.MethodPost, base+"/submit-multiple-pricing/", api.admin, api.pricingBody(order))
	require.Equal(t, http.StatusOK, status, env.Error)
	order = api.order(env)
	status, env = api.do(http.MethodPost, base+"/approve-pricing/", api.customer, gin.H{
		"version":    order.Version,
		"selections": instantSelections(order),
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	order = api.order(env)

	status, env = api.do(http.MethodPost, base+"/payment-receipts/upload-url/", api.customer, gin.H{
		"file_name":    "bank transfer.png",
		"content_type": "image/png",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	var upload orderingapp.ReceiptUploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &upload))
	assert.Equal(t, "image", upload.FileType)
	assert.True(t, strings.HasPrefix(upload.UploadURL, "https://uploads.test/"))

	status, env = api.do(http.MethodPost, base+"/payment-receipts/", api.customer, gin.H{
		"version":   order.Version,
		"file_key":  "someone-else/receipt.png",
		"file_type": "image",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "file_key", env.Error.Details[0].Field)

	status, env = api.do(http.MethodPost, base+"/payment-receipts/", api.customer, gin.H{
		"version":   order.Version,
		"file_key":  upload.FileKey,
		"file_type": upload.FileType,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	order = api.order(env)
	require.Len(t, order.Receipts, 1)
	assert.Equal(t, upload.FileKey, order.Receipts[0].FileKey)

	status, env = api.do(http.MethodPost, base+"/verify-payment/", api.admin, gin.H{
		"version":          order.Version,
		"payment_verified": false,
		"payment_notes":    "amount does not match",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	order = api.order(env)
	assert.Equal(t, "confirmed", order.Status)
	assert.Equal(t, "rejected", order.Receipts[0].Status)
}
