package router

import (
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/interfaces/http/handler"
	"github.com/wholesale/orderflow/internal/interfaces/http/middleware"
)

// OrderRoutes builds the /orders group. Customers only reach their own orders;
// the ownership check lives in the service.
func OrderRoutes(h *handler.OrderHandler) *DomainGroup {
	anyone := middleware.RequireRole(shared.RoleCustomer, shared.RoleAdmin)
	admin := middleware.RequireRole(shared.RoleAdmin)

	orders := NewDomainGroup("orders", "/orders")
	orders.POST("/", anyone, h.Create)
	orders.GET("/:id/", anyone, h.Get)

	// Negotiation
	orders.POST("/:id/submit-multiple-pricing/", admin, h.SubmitPricing)
	orders.POST("/:id/update-multiple-pricing/", admin, h.UpdatePricing)
	orders.POST("/:id/select-option/", anyone, h.SelectOption)
	orders.POST("/:id/approve-pricing/", anyone, h.ApprovePricing)
	orders.POST("/:id/reject/", anyone, h.Reject)
	orders.POST("/:id/cancel/", anyone, h.Cancel)
	orders.POST("/:id/remove-item/:itemId/", admin, h.RemoveItem)

	// Dealer and invoice
	orders.POST("/:id/assign-dealer/", admin, h.AssignDealer)
	orders.POST("/:id/remove-dealer/", admin, h.RemoveDealer)
	orders.POST("/:id/update-business-invoice-type/", admin, h.UpdateInvoiceType)
	orders.GET("/:id/invoice-status/", anyone, h.InvoiceStatus)

	// Payment evidence
	orders.POST("/:id/payment-receipts/upload-url/", anyone, h.CreateReceiptUploadURL)
	orders.POST("/:id/payment-receipts/", anyone, h.AddReceipt)
	orders.GET("/:id/payment-receipts/", anyone, h.ListReceipts)
	orders.POST("/:id/verify-payment/", admin, h.VerifyPayment)
	orders.POST("/:id/complete/", admin, h.Complete)

	orders.GET("/:id/events/", anyone, h.Events)
	return orders
}

// CommissionRoutes builds the admin-only /admin/dealers group
func CommissionRoutes(h *handler.CommissionHandler) *DomainGroup {
	dealers := NewDomainGroup("commissions", "/admin/dealers").
		Use(middleware.RequireRole(shared.RoleAdmin))
	dealers.POST("/pay-commissions/", h.PayCommissions)
	dealers.GET("/:dealerId/commissions/", h.ListByDealer)
	return dealers
}
