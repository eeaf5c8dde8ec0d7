package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadflow/internal/domain"
)

// CommunicationRepo implements handover.CommunicationRepository and the
// dossier communication and channel activity repositories.
type CommunicationRepo struct{ db *sql.DB }

// NewCommunicationRepo creates a Postgres-backed communication repository.
func NewCommunicationRepo(db *sql.DB) *CommunicationRepo { return &CommunicationRepo{db: db} }

func (r *CommunicationRepo) Create(ctx context.Context, c *domain.Communication) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode communication metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO communications
			(id, lead_id, conversation_id, campaign_id, channel, direction, type, content, metadata, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
	`, c.ID, c.LeadID, c.ConversationID, c.CampaignID, string(c.Channel), string(c.Direction),
		c.Type, c.Content, meta, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create communication: %w", err)
	}
	return nil
}

// ListByLead returns the lead's communications, oldest first.
func (r *CommunicationRepo) ListByLead(ctx context.Context, leadID string) ([]domain.Communication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, COALESCE(conversation_id, ''), COALESCE(campaign_id, ''),
		       channel, direction, type, content, metadata, created_at
		FROM communications
		WHERE lead_id = $1
		ORDER BY created_at, id
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	defer rows.Close()

	var out []domain.Communication
	for rows.Next() {
		var (
			c    domain.Communication
			meta []byte
		)
		if err := rows.Scan(
			&c.ID, &c.LeadID, &c.ConversationID, &c.CampaignID,
			&c.Channel, &c.Direction, &c.Type, &c.Content, &meta, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan communication: %w", err)
		}
		if err := unmarshalColumn(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode communication metadata: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate communications: %w", err)
	}
	return out, nil
}

// ChannelActivity aggregates conversations and communications per channel.
func (r *CommunicationRepo) ChannelActivity(ctx context.Context, leadID string) ([]domain.ChannelActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel,
		       SUM(conversations)::int,
		       SUM(communications)::int,
		       MAX(last_at)
		FROM (
			SELECT channel, 1 AS conversations, 0 AS communications, updated_at AS last_at
			FROM conversations WHERE lead_id = $1
			UNION ALL
			SELECT channel, 0, 1, created_at
			FROM communications WHERE lead_id = $1
		) activity
		GROUP BY channel
		ORDER BY channel
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("channel activity: %w", err)
	}
	defer rows.Close()

	var out []domain.ChannelActivity
	for rows.Next() {
		var (
			a    domain.ChannelActivity
			last sql.NullTime
		)
		if err := rows.Scan(&a.Channel, &a.Conversations, &a.Communications, &last); err != nil {
			return nil, fmt.Errorf("scan channel activity: %w", err)
		}
		if last.Valid {
			t := last.Time
			a.LastContactAt = &t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel activity: %w", err)
	}
	return out, nil
}
