package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"invoice-ledger/internal/core"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        &core.ValidationError{Message: "line quantity cannot be negative"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "not found",
			err:        &core.NotFoundError{Entity: "invoice", ID: 42},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "state error",
			err:        &core.StateError{Message: "Cannot transition from 'draft' to 'paid'"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "STATE_ERROR",
		},
		{
			name:       "business rule error",
			err:        &core.BusinessRuleError{Message: "Payment exceeds amount due"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BUSINESS_RULE_ERROR",
		},
		{
			name:       "wrapped domain error",
			err:        fmt.Errorf("recording payment: %w", &core.BusinessRuleError{Message: "Payment exceeds amount due"}),
			wantStatus: http.StatusBadRequest,
			wantCode:   "BUSINESS_RULE_ERROR",
		},
		{
			name:       "infrastructure failure",
			err:        errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classifyError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classifyError() = %d/%s, want %d/%s", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
