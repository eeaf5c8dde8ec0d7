package dossier

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/leadflow/internal/domain"
)

// notProvided replaces missing scalar fields.
const notProvided = "Not provided"

const handoverTemplate = `LEAD HANDOVER DOSSIER
=====================

CONTEXT
{{ context | provided }}

LEAD SNAPSHOT
Name: {{ lead.name | provided }}
Email: {{ lead.email | provided }}
Phone: {{ lead.phone | provided }}
Company: {{ lead.company | provided }}
Source: {{ lead.source | provided }}
Purchase timing: {{ lead.timing | provided }}
Interests:
{% for item in lead.interests %}- {{ item }}
{% endfor %}
HANDOVER TRIGGER
Reason: {{ trigger.reason | provided }}
Score: {{ trigger.score }}/10
Urgency: {{ trigger.urgency | provided }}
Triggered criteria:
{% for item in trigger.criteria %}- {{ item }}
{% endfor %}
COMMUNICATION SUMMARY
Conversations: {{ summary.conversations }}
Messages: {{ summary.messages }}
Channels: {{ summary.channels | provided }}
Highlights:
{% for item in summary.highlights %}- {{ item }}
{% endfor %}Tone:
{% for item in summary.tone %}- {{ item }}
{% endfor %}Engagement:
{% for item in summary.engagement %}- {{ item }}
{% endfor %}
PROFILE ANALYSIS
Buyer type: {{ profile.buyer_type | provided }}
Average score: {{ profile.average_score }}/10
Goals achieved:
{% for item in profile.goals %}- {{ item }}
{% endfor %}Key hooks:
{% for item in profile.hooks %}- {{ item }}
{% endfor %}
CONVERSATION HISTORY
{% for conv in history %}{{ conv.header }}
{% for item in conv.exchanges %}  - {{ item }}
{% endfor %}{% endfor %}{{ history_empty }}
RECOMMENDATIONS
Timeline: {{ recommendations.timeline | provided }}
Approach: {{ recommendations.approach | provided }}
Next steps:
{% for item in recommendations.steps %}- {{ item }}
{% endfor %}`

// Formatter renders dossiers as plain text.
type Formatter struct {
	tpl *liquid.Template
}

// NewFormatter compiles the handover template.
func NewFormatter() (*Formatter, error) {
	engine := liquid.NewEngine()
	// Scalar fallback: {{ lead.phone | provided }}
	engine.RegisterFilter("provided", func(value interface{}) interface{} {
		if value == nil {
			return notProvided
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return notProvided
		}
		return value
	})

	tpl, err := engine.ParseString(handoverTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse handover template: %w", err)
	}
	return &Formatter{tpl: tpl}, nil
}

var defaultFormatter = mustFormatter()

func mustFormatter() *Formatter {
	f, err := NewFormatter()
	if err != nil {
		panic(err)
	}
	return f
}

// FormatDossierForHandover renders d with the default formatter.
func FormatDossierForHandover(d domain.LeadDossier) (string, error) {
	return defaultFormatter.Format(d)
}

// Format renders d. Section order is fixed and output is deterministic.
func (f *Formatter) Format(d domain.LeadDossier) (string, error) {
	out, err := f.tpl.RenderString(bindings(d))
	if err != nil {
		return "", fmt.Errorf("render dossier: %w", err)
	}
	return out, nil
}

func bindings(d domain.LeadDossier) map[string]interface{} {
	history := make([]map[string]interface{}, 0, len(d.ConversationHistory))
	for _, c := range d.ConversationHistory {
		exchanges := make([]string, 0, len(c.KeyExchanges))
		for _, ex := range c.KeyExchanges {
			exchanges = append(exchanges, fmt.Sprintf("[%s] %s (%s): %s",
				ex.Significance, ex.Role, ex.Timestamp.UTC().Format("2006-01-02 15:04"), ex.Content))
		}
		history = append(history, map[string]interface{}{
			"header": fmt.Sprintf("* %s via %s, %s, %d message(s), score %.1f, started %s",
				c.ConversationID, orMissing(string(c.Channel)), orMissing(string(c.Status)),
				c.MessageCount, c.QualificationScore, c.StartedAt.UTC().Format("2006-01-02")),
			"exchanges": listOrNone(exchanges),
		})
	}
	historyEmpty := ""
	if len(history) == 0 {
		historyEmpty = "- None\n"
	}

	channels := make([]string, len(d.CommunicationSummary.Channels))
	for i, ch := range d.CommunicationSummary.Channels {
		channels[i] = string(ch)
	}

	return map[string]interface{}{
		"context": d.Context,
		"lead": map[string]interface{}{
			"name":      d.LeadSnapshot.Name,
			"email":     d.LeadSnapshot.Email,
			"phone":     d.LeadSnapshot.Phone,
			"company":   d.LeadSnapshot.Company,
			"source":    d.LeadSnapshot.Source,
			"timing":    d.LeadSnapshot.PurchaseTiming,
			"interests": listOrNone(d.LeadSnapshot.Interests),
		},
		"trigger": map[string]interface{}{
			"reason":   d.HandoverTrigger.Reason,
			"score":    fmt.Sprintf("%.1f", d.HandoverTrigger.Score),
			"urgency":  string(d.HandoverTrigger.Urgency),
			"criteria": listOrNone(d.HandoverTrigger.TriggeredCriteria),
		},
		"summary": map[string]interface{}{
			"conversations": d.CommunicationSummary.TotalConversations,
			"messages":      d.CommunicationSummary.TotalMessages,
			"channels":      strings.Join(channels, ", "),
			"highlights":    listOrNone(d.CommunicationSummary.Highlights),
			"tone":          listOrNone(d.CommunicationSummary.ToneObservations),
			"engagement":    listOrNone(d.CommunicationSummary.EngagementPatterns),
		},
		"profile": map[string]interface{}{
			"buyer_type":    d.ProfileAnalysis.BuyerType,
			"average_score": fmt.Sprintf("%.1f", d.ProfileAnalysis.AverageScore),
			"goals":         listOrNone(d.ProfileAnalysis.GoalsAchieved),
			"hooks":         listOrNone(d.ProfileAnalysis.KeyHooks),
		},
		"history":       history,
		"history_empty": historyEmpty,
		"recommendations": map[string]interface{}{
			"timeline": d.Recommendations.Timeline,
			"approach": d.Recommendations.ApproachStrategy,
			"steps":    listOrNone(d.Recommendations.NextSteps),
		},
	}
}

func listOrNone(items []string) []string {
	if len(items) == 0 {
		return []string{"None"}
	}
	return items
}

func orMissing(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}
