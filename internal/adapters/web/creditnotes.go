package web

import (
	"encoding/json"
	"net/http"

	"invoice-ledger/internal/core"
)

// createCreditNote handles POST /credit-notes.
func (h *Handler) createCreditNote(w http.ResponseWriter, r *http.Request) {
	var req core.CreateCreditNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	note, err := h.svc.CreateCreditNote(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// getCreditNote handles GET /credit-notes/{id}.
func (h *Handler) getCreditNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, "credit note not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	note, err := h.svc.GetCreditNote(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// listCreditNotes handles GET /credit-notes?status=.
func (h *Handler) listCreditNotes(w http.ResponseWriter, r *http.Request) {
	var status *core.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := core.Status(s)
		status = &st
	}

	notes, err := h.svc.ListCreditNotes(r.Context(), status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// transitionCreditNote handles PUT /credit-notes/{id}/status.
func (h *Handler) transitionCreditNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, "credit note not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		writeError(w, r, "status is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	note, err := h.svc.TransitionCreditNote(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// applyCredit handles POST /credit-notes/{id}/apply.
func (h *Handler) applyCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, "credit note not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	var req core.ApplyCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	note, err := h.svc.ApplyCredit(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// autoAllocateCredit handles POST /credit-notes/{id}/auto-allocate.
func (h *Handler) autoAllocateCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, "credit note not found", "NOT_FOUND", http.StatusNotFound)
		return
	}

	result, err := h.svc.AutoAllocateCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
