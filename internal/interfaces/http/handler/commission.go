package handler

import (
	"github.com/gin-gonic/gin"

	orderingapp "github.com/wholesale/orderflow/internal/application/ordering"
)

// CommissionHandler handles dealer commission endpoints
type CommissionHandler struct {
	BaseHandler
	commissionService *orderingapp.CommissionService
}

// NewCommissionHandler creates a new CommissionHandler
func NewCommissionHandler(commissionService *orderingapp.CommissionService) *CommissionHandler {
	return &CommissionHandler{
		commissionService: commissionService,
	}
}

// PayCommissions godoc
// @ID           payDealerCommissions
// @Summary      Mark commissions paid
// @Description  Pays each payable commission independently. Ids that cannot be paid are listed under failed.
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        request body orderingapp.PayCommissionsRequest true "Commission ids"
// @Success      200 {object} dto.Response{data=orderingapp.MarkPaidResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/dealers/pay-commissions/ [post]
func (h *CommissionHandler) PayCommissions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req orderingapp.PayCommissionsRequest
	if !h.BindJSON(c, &req, false) {
		return
	}

	result, err := h.commissionService.MarkPaid(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListByDealer godoc
// @ID           listDealerCommissions
// @Summary      List dealer commissions
// @Tags         commissions
// @Produce      json
// @Param        dealerId path string true "Dealer ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]orderingapp.CommissionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/dealers/{dealerId}/commissions/ [get]
func (h *CommissionHandler) ListByDealer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	dealerID, ok := h.uuidParam(c, "dealerId")
	if !ok {
		return
	}

	commissions, err := h.commissionService.ListByDealer(c.Request.Context(), actor, dealerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, commissions)
}
