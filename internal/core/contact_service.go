package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactService manages the counterparty master records documents reference.
type ContactService interface {
	CreateContact(ctx context.Context, name, email string) (*Contact, error)
	GetContact(ctx context.Context, id int) (*Contact, error)
	ListContacts(ctx context.Context) ([]Contact, error)
}

type contactService struct {
	pool *pgxpool.Pool
}

func NewContactService(pool *pgxpool.Pool) ContactService {
	return &contactService{pool: pool}
}

func (s *contactService) CreateContact(ctx context.Context, name, email string) (*Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErrorf("contact name is required")
	}

	var c Contact
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (name, email)
		VALUES ($1, $2)
		RETURNING id, name, email, created_at
	`, name, strings.TrimSpace(email)).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return &c, nil
}

func (s *contactService) GetContact(ctx context.Context, id int) (*Contact, error) {
	var c Contact
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, email, created_at FROM contacts WHERE id = $1", id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundError("contact", id)
		}
		return nil, fmt.Errorf("failed to fetch contact %d: %w", id, err)
	}
	return &c, nil
}

func (s *contactService) ListContacts(ctx context.Context) ([]Contact, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, name, email, created_at FROM contacts ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
