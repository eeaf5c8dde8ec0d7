package dossier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/analysis"
)

var tracer = otel.Tracer("github.com/ignite/leadflow/internal/service/dossier")

// Generator builds lead dossiers.
type Generator struct {
	src      Sources
	analyzer analysis.ConversationAnalyzer
}

// NewGenerator creates a generator over src. A nil analyzer uses the
// keyword analyzer.
func NewGenerator(src Sources, analyzer analysis.ConversationAnalyzer) *Generator {
	if analyzer == nil {
		analyzer = analysis.NewKeywordAnalyzer()
	}
	return &Generator{src: src, analyzer: analyzer}
}

// snapshot is everything a dossier is derived from.
type snapshot struct {
	lead           domain.Lead
	conversations  []domain.Conversation
	analyses       []analysis.Analysis
	communications []domain.Communication
	channels       []domain.ChannelActivity
	evaluation     domain.HandoverEvaluation
	conversationID string
}

// GenerateDossier fetches the lead, its conversations, communications and
// channel activity concurrently and builds the dossier. conversationID, when
// set, names the conversation that triggered the handover.
func (g *Generator) GenerateDossier(ctx context.Context, leadID string, eval domain.HandoverEvaluation, conversationID string) (*domain.LeadDossier, error) {
	ctx, span := tracer.Start(ctx, "dossier.GenerateDossier")
	defer span.End()

	snap := snapshot{evaluation: eval, conversationID: conversationID}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		lead, err := g.src.Leads.Get(egCtx, leadID)
		if err != nil {
			return fmt.Errorf("get lead %s: %w", leadID, err)
		}
		if lead == nil {
			return fmt.Errorf("get lead %s: %w", leadID, domain.ErrNotFound)
		}
		snap.lead = *lead
		return nil
	})
	eg.Go(func() error {
		convs, err := g.src.Conversations.ListByLead(egCtx, leadID)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		snap.conversations = convs
		return nil
	})
	eg.Go(func() error {
		comms, err := g.src.Communications.ListByLead(egCtx, leadID)
		if err != nil {
			return fmt.Errorf("list communications: %w", err)
		}
		snap.communications = comms
		return nil
	})
	if g.src.Channels != nil {
		eg.Go(func() error {
			channels, err := g.src.Channels.ChannelActivity(egCtx, leadID)
			if err != nil {
				return fmt.Errorf("channel activity: %w", err)
			}
			snap.channels = channels
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	sort.SliceStable(snap.conversations, func(i, j int) bool {
		a, b := snap.conversations[i], snap.conversations[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	snap.analyses = make([]analysis.Analysis, len(snap.conversations))
	for i := range snap.conversations {
		snap.analyses[i] = g.analyzer.Analyze(&snap.conversations[i], nil)
	}
	if g.src.Channels == nil {
		snap.channels = deriveChannels(snap.conversations, snap.communications)
	}

	d := build(snap)
	return &d, nil
}

// deriveChannels aggregates activity per channel from the fetched records.
func deriveChannels(convs []domain.Conversation, comms []domain.Communication) []domain.ChannelActivity {
	byChannel := make(map[domain.Channel]*domain.ChannelActivity)
	get := func(ch domain.Channel) *domain.ChannelActivity {
		a, ok := byChannel[ch]
		if !ok {
			a = &domain.ChannelActivity{Channel: ch}
			byChannel[ch] = a
		}
		return a
	}
	touch := func(a *domain.ChannelActivity, ts time.Time) {
		if ts.IsZero() {
			return
		}
		if a.LastContactAt == nil || ts.After(*a.LastContactAt) {
			t := ts
			a.LastContactAt = &t
		}
	}
	for _, c := range convs {
		a := get(c.Channel)
		a.Conversations++
		for _, m := range c.Messages {
			touch(a, m.Timestamp)
		}
	}
	for _, c := range comms {
		a := get(c.Channel)
		a.Communications++
		touch(a, c.CreatedAt)
	}

	out := make([]domain.ChannelActivity, 0, len(byChannel))
	for _, a := range byChannel {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
