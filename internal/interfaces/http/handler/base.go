package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	orderingapp "github.com/wholesale/orderflow/internal/application/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/logger"
	"github.com/wholesale/orderflow/internal/interfaces/http/dto"
	"github.com/wholesale/orderflow/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data, middleware.GetRequestID(c)))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data, middleware.GetRequestID(c)))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string, details ...shared.FieldError) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, middleware.GetRequestID(c), details...))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// BindJSON binds the request body into req and writes the error response on failure.
// An empty body is accepted when optional is true.
func (h *BaseHandler) BindJSON(c *gin.Context, req any, optional bool) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	h.HandleBindError(c, err)
	return false
}

// HandleBindError maps a binding failure to a 400 or 413 response
func (h *BaseHandler) HandleBindError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body too large")
		return
	}
	if details := middleware.FormatValidationErrors(err); len(details) > 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Request validation failed", details...)
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed JSON body")
}

// HandleDomainError converts service errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Kind), domainErr.Code, domainErr.Message, domainErr.Details...)
		return
	}
	if errors.Is(err, orderingapp.ErrReceiptStorageDisabled) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeStorageDisabled, "Receipt uploads are not available")
		return
	}

	logger.L(c.Request.Context()).Error("request failed",
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	_ = c.Error(err)
	h.InternalError(c)
}

// actor returns the authenticated actor or writes a 401 response
func (h *BaseHandler) actor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return shared.Actor{}, false
	}
	return actor, true
}

// uuidParam parses a path parameter or writes a 400 response
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid path parameter",
			shared.FieldError{Field: name, Message: "Invalid UUID format"})
		return uuid.Nil, false
	}
	return id, true
}
