package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"invoice-ledger/internal/core"
)

// Every response carries the same envelope: {"ok": true, "data": ...} on
// success, {"ok": false, "error": {...}} on failure.

type envelope struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: false, Error: &errorBody{
		Code:      code,
		Message:   message,
		RequestID: requestIDFromContext(r.Context()),
	}})
}

// classifyError maps a domain error onto its HTTP status and machine code.
func classifyError(err error) (status int, code string) {
	var (
		validationErr   *core.ValidationError
		notFoundErr     *core.NotFoundError
		stateErr        *core.StateError
		businessRuleErr *core.BusinessRuleError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &stateErr):
		return http.StatusBadRequest, "STATE_ERROR"
	case errors.As(err, &businessRuleErr):
		return http.StatusBadRequest, "BUSINESS_RULE_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeDomainError renders a service error through the taxonomy mapping.
// Infrastructure failures are masked behind a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeError(w, r, message, code, status)
}
