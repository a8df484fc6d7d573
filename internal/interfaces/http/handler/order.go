package handler

import (
	"github.com/gin-gonic/gin"

	orderingapp "github.com/wholesale/orderflow/internal/application/ordering"
)

// OrderHandler handles the order negotiation and fulfillment endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderingapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderingapp.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// Create godoc
// @ID           createOrder
// @Summary      Create an order
// @Description  Submit a new order request. Items start without pricing.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body orderingapp.CreateOrderRequest true "Order request"
// @Success      201 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/ [post]
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req orderingapp.CreateOrderRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, order)
}

// Get godoc
// @ID           getOrder
// @Summary      Get an order
// @Description  Returns the order with its items, pricing options, receipts and invoice totals
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/ [get]
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// SubmitPricing godoc
// @ID           submitOrderPricing
// @Summary      Submit multi-option pricing
// @Description  Quotes every active item with at least two payment-term options and sends the order for approval
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.PricingRequest true "Pricing"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/submit-multiple-pricing/ [post]
func (h *OrderHandler) SubmitPricing(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.PricingRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.SubmitPricing(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// UpdatePricing godoc
// @ID           updateOrderPricing
// @Summary      Update multi-option pricing
// @Description  Replaces the options of an order already sent to the customer. Selections are cleared.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.UpdatePricingRequest true "Pricing"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/update-multiple-pricing/ [post]
func (h *OrderHandler) UpdatePricing(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.UpdatePricingRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.UpdatePricing(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// SelectOption godoc
// @ID           selectOrderOption
// @Summary      Select a pricing option
// @Description  Selects one option of an item. Any other selection on that item is cleared.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.SelectOptionRequest true "Selection"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/select-option/ [post]
func (h *OrderHandler) SelectOption(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.SelectOptionRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.SelectOption(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// ApprovePricing godoc
// @ID           approveOrderPricing
// @Summary      Approve pricing
// @Description  Applies the selections and confirms the order once every active item has exactly one selected option
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.ApprovePricingRequest true "Selections"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/approve-pricing/ [post]
func (h *OrderHandler) ApprovePricing(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.ApprovePricingRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.ApprovePricing(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Reject godoc
// @ID           rejectOrder
// @Summary      Reject an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/reject/ [post]
func (h *OrderHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.ReasonRequest
	if !h.BindJSON(c, &req, true) {
		return
	}

	order, err := h.orderService.Reject(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Cancel godoc
// @ID           cancelOrder
// @Summary      Cancel an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.ReasonRequest false "Reason"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/cancel/ [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.ReasonRequest
	if !h.BindJSON(c, &req, true) {
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// RemoveItem godoc
// @ID           removeOrderItem
// @Summary      Remove an order item
// @Description  Soft-removes an item. At least one active item must remain.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        itemId path string true "Item ID" format(uuid)
// @Param        request body orderingapp.VersionedRequest false "Version"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      423 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/remove-item/{itemId}/ [post]
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.uuidParam(c, "itemId")
	if !ok {
		return
	}

	var req orderingapp.VersionedRequest
	if !h.BindJSON(c, &req, true) {
		return
	}

	order, err := h.orderService.RemoveItem(c.Request.Context(), actor, orderID, itemID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// AssignDealer godoc
// @ID           assignOrderDealer
// @Summary      Assign a dealer
// @Description  Attaches an active dealer and snapshots its commission rate
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.AssignDealerRequest true "Dealer"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      423 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/assign-dealer/ [post]
func (h *OrderHandler) AssignDealer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.AssignDealerRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.AssignDealer(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// RemoveDealer godoc
// @ID           removeOrderDealer
// @Summary      Remove the dealer
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.VersionedRequest false "Version"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      423 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/remove-dealer/ [post]
func (h *OrderHandler) RemoveDealer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.VersionedRequest
	if !h.BindJSON(c, &req, true) {
		return
	}

	order, err := h.orderService.UnassignDealer(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// UpdateInvoiceType godoc
// @ID           updateOrderInvoiceType
// @Summary      Switch the business invoice type
// @Description  The invoice type can be switched at most once per order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.SetInvoiceTypeRequest true "Invoice type"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      423 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/update-business-invoice-type/ [post]
func (h *OrderHandler) UpdateInvoiceType(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.SetInvoiceTypeRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.SetInvoiceType(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// CreateReceiptUploadURL godoc
// @ID           createOrderReceiptUploadURL
// @Summary      Get a receipt upload URL
// @Description  Returns a presigned URL the client uploads the payment receipt to
// @Tags         payment-receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.ReceiptUploadRequest true "File"
// @Success      200 {object} dto.Response{data=orderingapp.ReceiptUploadResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/payment-receipts/upload-url/ [post]
func (h *OrderHandler) CreateReceiptUploadURL(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.ReceiptUploadRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	upload, err := h.orderService.CreateReceiptUpload(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, upload)
}

// AddReceipt godoc
// @ID           addOrderPaymentReceipt
// @Summary      Register a payment receipt
// @Description  Attaches an uploaded receipt to a confirmed order for admin review
// @Tags         payment-receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.AddReceiptRequest true "Receipt"
// @Success      201 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/payment-receipts/ [post]
func (h *OrderHandler) AddReceipt(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.AddReceiptRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.AddReceipt(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, order)
}

// ListReceipts godoc
// @ID           listOrderPaymentReceipts
// @Summary      List payment receipts
// @Tags         payment-receipts
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=orderingapp.PaymentReceiptsResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/payment-receipts/ [get]
func (h *OrderHandler) ListReceipts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	receipts, err := h.orderService.ListReceipts(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipts)
}

// VerifyPayment godoc
// @ID           verifyOrderPayment
// @Summary      Review pending receipts
// @Description  Verifies or rejects every pending receipt of the order
// @Tags         payment-receipts
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.VerifyPaymentRequest true "Review"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/verify-payment/ [post]
func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.VerifyPaymentRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	order, err := h.orderService.VerifyPayment(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// Complete godoc
// @ID           completeOrder
// @Summary      Complete an order
// @Description  Completes a confirmed order without the receipt review. The dealer commission becomes payable.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body orderingapp.VersionedRequest false "Version"
// @Success      200 {object} dto.Response{data=orderingapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/complete/ [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req orderingapp.VersionedRequest
	if !h.BindJSON(c, &req, true) {
		return
	}

	order, err := h.orderService.Complete(c.Request.Context(), actor, orderID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, order)
}

// InvoiceStatus godoc
// @ID           getOrderInvoiceStatus
// @Summary      Get the invoice status
// @Description  Returns the invoice type, per-line tax and totals. Totals are pending until every active item has a selected option.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=orderingapp.InvoiceStatusResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/invoice-status/ [get]
func (h *OrderHandler) InvoiceStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	status, err := h.orderService.InvoiceStatus(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, status)
}

// Events godoc
// @ID           listOrderEvents
// @Summary      List order events
// @Description  Returns the audit trail of the order, oldest first
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]orderingapp.OrderEventResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{id}/events/ [get]
func (h *OrderHandler) Events(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	events, err := h.orderService.Events(c.Request.Context(), actor, orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, events)
}
