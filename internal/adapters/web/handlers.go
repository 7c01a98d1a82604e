package web

import (
	"net/http"
	"strconv"

	"invoice-ledger/internal/app"
	"invoice-ledger/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc app.ApplicationService
	log zerolog.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log zerolog.Logger) http.Handler {
	h := &Handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(maxRequestBody))

	r.Get("/api/health", h.health)

	r.Post("/contacts", h.createContact)
	r.Get("/contacts", h.listContacts)

	// Invoices and bills share handler logic, parameterized by kind.
	for _, route := range []struct {
		prefix string
		kind   core.DocumentKind
	}{
		{"/invoices", core.KindInvoice},
		{"/bills", core.KindBill},
	} {
		kind := route.kind
		r.Route(route.prefix, func(r chi.Router) {
			r.Post("/", h.createDocument(kind))
			r.Get("/", h.listDocuments(kind))
			r.Get("/{id}", h.getDocument(kind))
			r.Put("/{id}", h.updateDocument(kind))
			r.Put("/{id}/status", h.transitionDocument(kind))
		})
	}

	r.Post("/payments", h.recordPayment)
	r.Get("/payments/{id}", h.getPayment)

	r.Route("/credit-notes", func(r chi.Router) {
		r.Post("/", h.createCreditNote)
		r.Get("/", h.listCreditNotes)
		r.Get("/{id}", h.getCreditNote)
		r.Put("/{id}/status", h.transitionCreditNote)
		r.Post("/{id}/apply", h.applyCredit)
		r.Post("/{id}/auto-allocate", h.autoAllocateCredit)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} URL parameter. A non-numeric id is a 404, matching
// how an unknown id behaves.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}
