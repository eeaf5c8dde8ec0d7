package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/leadflow/internal/domain"
)

// EnrollmentRepo implements campaign.EnrollmentRepository against
// PostgreSQL.
type EnrollmentRepo struct{ db *sql.DB }

// NewEnrollmentRepo creates a Postgres-backed enrollment repository.
func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{db: db} }

// processable are the enrollment states the executor sends to.
var processable = []string{string(domain.EnrollmentPending), string(domain.EnrollmentActive)}

func (r *EnrollmentRepo) EnrollmentsForCampaign(ctx context.Context, campaignID string) ([]domain.EnrolledLead, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.lead_id, e.campaign_id, e.status, e.current_step, e.last_processed_at,
		       l.id, l.first_name, l.last_name, l.email, l.phone, l.company, l.source,
		       l.status, l.custom_fields, l.created_at
		FROM campaign_enrollments e
		JOIN leads l ON l.id = e.lead_id
		WHERE e.campaign_id = $1 AND e.status = ANY($2)
		ORDER BY e.id
	`, campaignID, pq.Array(processable))
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []domain.EnrolledLead
	for rows.Next() {
		var (
			el        domain.EnrolledLead
			processed sql.NullTime
			custom    []byte
		)
		if err := rows.Scan(
			&el.Enrollment.ID, &el.Enrollment.LeadID, &el.Enrollment.CampaignID,
			&el.Enrollment.Status, &el.Enrollment.CurrentStep, &processed,
			&el.Lead.ID, &el.Lead.FirstName, &el.Lead.LastName, &el.Lead.Email, &el.Lead.Phone,
			&el.Lead.Company, &el.Lead.Source, &el.Lead.Status, &custom, &el.Lead.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		if processed.Valid {
			t := processed.Time
			el.Enrollment.LastProcessedAt = &t
		}
		if err := unmarshalColumn(custom, &el.Lead.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
		out = append(out, el)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return out, nil
}

func (r *EnrollmentRepo) UpdateEnrollment(ctx context.Context, e domain.Enrollment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_enrollments
		SET status = $2, current_step = $3, last_processed_at = $4
		WHERE id = $1
	`, e.ID, string(e.Status), e.CurrentStep, e.LastProcessedAt)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("enrollment %s: %w", e.ID, domain.ErrNotFound)
	}
	return nil
}
