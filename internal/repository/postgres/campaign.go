package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository and handover.CampaignRepository
// against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	var (
		c                       domain.Campaign
		stepsJSON, criteriaJSON []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, from_name, from_email, steps, handover_criteria,
		       active, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.FromName, &c.FromEmail, &stepsJSON, &criteriaJSON,
		&c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, campaign.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if err := unmarshalColumn(stepsJSON, &c.Steps); err != nil {
		return nil, fmt.Errorf("decode campaign steps: %w", err)
	}
	if err := unmarshalColumn(criteriaJSON, &c.HandoverCriteria); err != nil {
		return nil, fmt.Errorf("decode handover criteria: %w", err)
	}
	return &c, nil
}

// Create inserts a campaign. Used by seeding and tests.
func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	steps, err := json.Marshal(c.Steps)
	if err != nil {
		return fmt.Errorf("encode campaign steps: %w", err)
	}
	criteria, err := json.Marshal(c.HandoverCriteria)
	if err != nil {
		return fmt.Errorf("encode handover criteria: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, name, from_name, from_email, steps, handover_criteria, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, c.ID, c.Name, c.FromName, c.FromEmail, steps, criteria, c.Active)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// unmarshalColumn decodes a JSONB column. NULL and empty values leave dst
// untouched.
func unmarshalColumn(data []byte, dst any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}
