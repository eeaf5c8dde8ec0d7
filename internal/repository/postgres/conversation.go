package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/handover"
)

// ConversationRepo implements handover.ConversationRepository and
// dossier.ConversationRepository against PostgreSQL.
type ConversationRepo struct{ db *sql.DB }

// NewConversationRepo creates a Postgres-backed conversation repository.
func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

const conversationColumns = `id, lead_id, COALESCE(campaign_id, ''), channel, status,
	qualification_score, goal_progress, created_at, updated_at`

func (r *ConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, handover.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	msgs, err := r.messages(ctx, []string{c.ID})
	if err != nil {
		return nil, err
	}
	c.Messages = msgs[c.ID]
	return c, nil
}

// ListByLead returns the lead's conversations with their messages, oldest
// first.
func (r *ConversationRepo) ListByLead(ctx context.Context, leadID string) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE lead_id = $1
		ORDER BY created_at, id
	`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var (
		out []domain.Conversation
		ids []string
	)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, *c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	msgs, err := r.messages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Messages = msgs[out[i].ID]
	}
	return out, nil
}

// UpdateStatus applies a status transition. Transitions the domain forbids
// fail with domain.ErrValidation.
func (r *ConversationRepo) UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`, id, string(status), pq.Array(predecessors(status)))
	if err != nil {
		return fmt.Errorf("update conversation status: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM conversations WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return handover.ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("get conversation status: %w", err)
	}
	return fmt.Errorf("conversation %s cannot move from %s to %s: %w", id, current, status, domain.ErrValidation)
}

func (r *ConversationRepo) AddMessage(ctx context.Context, id string, msg domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add message: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return handover.ErrConversationNotFound
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_messages (conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, string(msg.Role), msg.Content, msg.Timestamp); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

// UpdateQualification stores the score and merges the achieved goals into
// goal_progress. Goals are never cleared.
func (r *ConversationRepo) UpdateQualification(ctx context.Context, id string, score float64, goals map[string]bool) error {
	achieved := map[string]bool{}
	for g, ok := range goals {
		if ok {
			achieved[g] = true
		}
	}
	patch, err := json.Marshal(achieved)
	if err != nil {
		return fmt.Errorf("encode goal progress: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET qualification_score = $2, goal_progress = goal_progress || $3::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id, domain.ClampScore(score), patch)
	if err != nil {
		return fmt.Errorf("update qualification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return handover.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepo) messages(ctx context.Context, ids []string) (map[string][]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = ANY($1)
		ORDER BY created_at, id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Message, len(ids))
	for rows.Next() {
		var (
			convID string
			m      domain.Message
		)
		if err := rows.Scan(&convID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out[convID] = append(out[convID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		c     domain.Conversation
		goals []byte
	)
	if err := row.Scan(
		&c.ID, &c.LeadID, &c.CampaignID, &c.Channel, &c.Status,
		&c.QualificationScore, &goals, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.GoalProgress = map[string]bool{}
	if err := unmarshalColumn(goals, &c.GoalProgress); err != nil {
		return nil, fmt.Errorf("decode goal progress: %w", err)
	}
	return &c, nil
}

// predecessors lists the statuses that may move to next.
func predecessors(next domain.ConversationStatus) []string {
	all := []domain.ConversationStatus{
		domain.ConversationActive,
		domain.ConversationHandoverPending,
		domain.ConversationCompleted,
		domain.ConversationAbandoned,
	}
	var out []string
	for _, s := range all {
		if s.CanTransitionTo(next) {
			out = append(out, string(s))
		}
	}
	return out
}
