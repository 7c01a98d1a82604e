package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"invoice-ledger/internal/core"
)

// createDocument handles POST /invoices and POST /bills.
func (h *Handler) createDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req core.CreateDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
			return
		}

		doc, err := h.svc.CreateDocument(r.Context(), kind, req)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

// getDocument handles GET /{invoices|bills}/{id}.
func (h *Handler) getDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, r, kind.Noun()+" not found", "NOT_FOUND", http.StatusNotFound)
			return
		}

		doc, err := h.svc.GetDocument(r.Context(), kind, id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// listDocuments handles GET /{invoices|bills}?status=&contact_id=.
func (h *Handler) listDocuments(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *core.Status
		if s := r.URL.Query().Get("status"); s != "" {
			st := core.Status(s)
			status = &st
		}
		var contactID *int
		if c := r.URL.Query().Get("contact_id"); c != "" {
			id, err := strconv.Atoi(c)
			if err != nil {
				writeError(w, r, "invalid contact_id filter", "VALIDATION_ERROR", http.StatusBadRequest)
				return
			}
			contactID = &id
		}

		docs, err := h.svc.ListDocuments(r.Context(), kind, status, contactID)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

// updateDocument handles PUT /{invoices|bills}/{id} — draft-only line edits.
func (h *Handler) updateDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, r, kind.Noun()+" not found", "NOT_FOUND", http.StatusNotFound)
			return
		}

		var req core.UpdateDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
			return
		}

		doc, err := h.svc.UpdateDocument(r.Context(), kind, id, req)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

type transitionRequest struct {
	Status core.Status `json:"status"`
}

// transitionDocument handles PUT /{invoices|bills}/{id}/status.
func (h *Handler) transitionDocument(kind core.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, r, kind.Noun()+" not found", "NOT_FOUND", http.StatusNotFound)
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

		doc, err := h.svc.TransitionDocument(r.Context(), kind, id, req.Status)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}
