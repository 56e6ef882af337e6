package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/aspect-export/internal/domain"
)

// ContactRepo reads contacts from the CRM's contact table. It satisfies
// encoder.ContactSource; this integration never writes contacts.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact source.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

func (r *ContactRepo) Get(ctx context.Context, id string) (*domain.Contact, error) {
	c := &domain.Contact{}
	var attrs []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(email,''), COALESCE(first_name,''), COALESCE(last_name,''),
		       attributes, created_at
		FROM contacts
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &attrs, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("contact %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &c.Attributes); err != nil {
			return nil, fmt.Errorf("parse contact attributes: %w", err)
		}
	}
	return c, nil
}
