package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/leadflow/internal/domain"
)

// EmailLog implements watchdog.VolumeCounter over the outbound email log.
type EmailLog struct{ db *sql.DB }

// NewEmailLog creates a Postgres-backed volume counter.
func NewEmailLog(db *sql.DB) *EmailLog { return &EmailLog{db: db} }

// Record logs one sent email.
func (l *EmailLog) Record(ctx context.Context, msg domain.OutboundMessage, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO outbound_email_log (message_id, recipient, campaign_id, lead_id, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.To, msg.CampaignID, msg.LeadID, at)
	if err != nil {
		return fmt.Errorf("record outbound email: %w", err)
	}
	return nil
}

// CountSince counts emails sent at or after since.
func (l *EmailLog) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbound_email_log WHERE sent_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbound email: %w", err)
	}
	return n, nil
}

// Prune deletes log rows older than cutoff and returns how many were removed.
func (l *EmailLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM outbound_email_log WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune outbound email log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
