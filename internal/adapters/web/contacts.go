package web

import (
	"encoding/json"
	"net/http"
)

type createContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// createContact handles POST /contacts.
func (h *Handler) createContact(w http.ResponseWriter, r *http.Request) {
	var req createContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}

	contact, err := h.svc.CreateContact(r.Context(), req.Name, req.Email)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// listContacts handles GET /contacts.
func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.ListContacts(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}
