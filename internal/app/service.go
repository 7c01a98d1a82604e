package app

import (
	"context"

	"invoice-ledger/internal/core"
)

// ApplicationService is the single interface the web adapter calls. It
// decouples presentation from the engine services; implementations contain no
// HTTP or display logic of any kind.
type ApplicationService interface {
	CreateContact(ctx context.Context, name, email string) (*core.Contact, error)
	ListContacts(ctx context.Context) ([]core.Contact, error)

	CreateDocument(ctx context.Context, kind core.DocumentKind, req core.CreateDocumentRequest) (*core.Document, error)
	GetDocument(ctx context.Context, kind core.DocumentKind, id int) (*core.Document, error)
	ListDocuments(ctx context.Context, kind core.DocumentKind, status *core.Status, contactID *int) ([]core.Document, error)
	// UpdateDocument edits a draft document; non-draft documents are rejected.
	UpdateDocument(ctx context.Context, kind core.DocumentKind, id int, req core.UpdateDocumentRequest) (*core.Document, error)
	TransitionDocument(ctx context.Context, kind core.DocumentKind, id int, to core.Status) (*core.Document, error)

	RecordPayment(ctx context.Context, req core.RecordPaymentRequest) (*core.Payment, error)
	GetPayment(ctx context.Context, id int) (*core.Payment, error)

	CreateCreditNote(ctx context.Context, req core.CreateCreditNoteRequest) (*core.CreditNote, error)
	GetCreditNote(ctx context.Context, id int) (*core.CreditNote, error)
	ListCreditNotes(ctx context.Context, status *core.Status) ([]core.CreditNote, error)
	TransitionCreditNote(ctx context.Context, id int, to core.Status) (*core.CreditNote, error)
	ApplyCredit(ctx context.Context, id int, req core.ApplyCreditRequest) (*core.CreditNote, error)
	AutoAllocateCredit(ctx context.Context, id int) (*core.AutoAllocateResult, error)
}

type appService struct {
	contacts    core.ContactService
	documents   core.DocumentService
	payments    core.PaymentService
	creditNotes core.CreditNoteService
}

// NewAppService wires the engine services behind the ApplicationService facade.
func NewAppService(contacts core.ContactService, documents core.DocumentService,
	payments core.PaymentService, creditNotes core.CreditNoteService) ApplicationService {
	return &appService{
		contacts:    contacts,
		documents:   documents,
		payments:    payments,
		creditNotes: creditNotes,
	}
}

func (s *appService) CreateContact(ctx context.Context, name, email string) (*core.Contact, error) {
	return s.contacts.CreateContact(ctx, name, email)
}

func (s *appService) ListContacts(ctx context.Context) ([]core.Contact, error) {
	return s.contacts.ListContacts(ctx)
}

func (s *appService) CreateDocument(ctx context.Context, kind core.DocumentKind, req core.CreateDocumentRequest) (*core.Document, error) {
	if kind == core.KindBill {
		return s.documents.CreateBill(ctx, req)
	}
	return s.documents.CreateInvoice(ctx, req)
}

func (s *appService) GetDocument(ctx context.Context, kind core.DocumentKind, id int) (*core.Document, error) {
	return s.documents.GetDocument(ctx, kind, id)
}

func (s *appService) ListDocuments(ctx context.Context, kind core.DocumentKind, status *core.Status, contactID *int) ([]core.Document, error) {
	return s.documents.ListDocuments(ctx, kind, status, contactID)
}

func (s *appService) UpdateDocument(ctx context.Context, kind core.DocumentKind, id int, req core.UpdateDocumentRequest) (*core.Document, error) {
	return s.documents.UpdateDraft(ctx, kind, id, req)
}

func (s *appService) TransitionDocument(ctx context.Context, kind core.DocumentKind, id int, to core.Status) (*core.Document, error) {
	return s.documents.Transition(ctx, kind, id, to)
}

func (s *appService) RecordPayment(ctx context.Context, req core.RecordPaymentRequest) (*core.Payment, error) {
	return s.payments.RecordPayment(ctx, req)
}

func (s *appService) GetPayment(ctx context.Context, id int) (*core.Payment, error) {
	return s.payments.GetPayment(ctx, id)
}

func (s *appService) CreateCreditNote(ctx context.Context, req core.CreateCreditNoteRequest) (*core.CreditNote, error) {
	return s.creditNotes.CreateCreditNote(ctx, req)
}

func (s *appService) GetCreditNote(ctx context.Context, id int) (*core.CreditNote, error) {
	return s.creditNotes.GetCreditNote(ctx, id)
}

func (s *appService) ListCreditNotes(ctx context.Context, status *core.Status) ([]core.CreditNote, error) {
	return s.creditNotes.ListCreditNotes(ctx, status)
}

func (s *appService) TransitionCreditNote(ctx context.Context, id int, to core.Status) (*core.CreditNote, error) {
	return s.creditNotes.Transition(ctx, id, to)
}

func (s *appService) ApplyCredit(ctx context.Context, id int, req core.ApplyCreditRequest) (*core.CreditNote, error) {
	return s.creditNotes.Apply(ctx, id, req)
}

func (s *appService) AutoAllocateCredit(ctx context.Context, id int) (*core.AutoAllocateResult, error) {
	return s.creditNotes.AutoAllocate(ctx, id)
}
