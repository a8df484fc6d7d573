package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesale/orderflow/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		expected int
	}{
		{shared.KindValidation, http.StatusBadRequest},
		{shared.KindInvalidState, http.StatusUnprocessableEntity},
		{shared.KindConflict, http.StatusConflict},
		{shared.KindLocked, http.StatusLocked},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindUnauthorized, http.StatusUnauthorized},
		{shared.KindForbidden, http.StatusForbidden},
		// Unknown kind should return 500
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.kind))
		})
	}
}

func TestNewErrorResponse_JSON(t *testing.T) {
	resp := NewErrorResponse(shared.CodeValidationFailed, "invalid pricing", "req-1",
		shared.FieldError{Field: "items[0].pricing_options", Message: "at least 2 pricing options required"})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "VALIDATION_FAILED",
			"message": "invalid pricing",
			"details": [{"field": "items[0].pricing_options", "message": "at least 2 pricing options required"}]
		},
		"request_id": "req-1"
	}`, string(raw))
}

func TestNewSuccessResponse_OmitsError(t *testing.T) {
	raw, err := json.Marshal(NewSuccessResponse(map[string]int{"count": 2}, ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "data": {"count": 2}}`, string(raw))
}
