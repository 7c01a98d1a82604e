package web

import (
	"encoding/json"
	"net/http"

	"invoice-ledger/internal/core"
)

// recordPayment handles POST /payments.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req core.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	payment, err := h.svc.RecordPayment(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// getPayment handles GET /payments/{id}.
func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, "payment not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	payment, err := h.svc.GetPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
