package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/leadflow/internal/domain"
)

// LeadRepo implements dossier.LeadRepository against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

func (r *LeadRepo) Get(ctx context.Context, id string) (*domain.Lead, error) {
	var (
		l      domain.Lead
		custom []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, company, source,
		       status, custom_fields, created_at
		FROM leads
		WHERE id = $1
	`, id).Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.Company, &l.Source,
		&l.Status, &custom, &l.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	if err := unmarshalColumn(custom, &l.CustomFields); err != nil {
		return nil, fmt.Errorf("decode custom fields: %w", err)
	}
	return &l, nil
}
