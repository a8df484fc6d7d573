package dto

import "github.com/wholesale/orderflow/internal/domain/shared"

// Response represents a standard API response
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []shared.FieldError `json:"details,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any, requestID string) Response {
	return Response{
		Success:   true,
		Data:      data,
		RequestID: requestID,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string, details ...shared.FieldError) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		RequestID: requestID,
	}
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
