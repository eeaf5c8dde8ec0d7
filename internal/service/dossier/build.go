package dossier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/service/analysis"
)

const (
	maxHighlights   = 5
	maxObservations = 3
	maxKeyHooks     = 4
	maxKeyExchanges = 10
	excerptLength   = 120

	timingNotSpecified = "not specified"
)

type timingBucket struct {
	label    string
	keywords []string
}

// Buckets are checked in order for each message; the first match wins.
var timingBuckets = []timingBucket{
	{"Immediate (within 1 week)", []string{"asap", "immediately", "right away", "urgent", "this week", "today"}},
	{"Near-term (within 1 month)", []string{"next week", "this month", "next month", "few weeks", "30 days"}},
	{"Planning (1-3 months)", []string{"next quarter", "later this year", "few months", "planning", "researching", "exploring"}},
}

type keywordGroup struct {
	name     string
	keywords []string
}

var interestGroups = []keywordGroup{
	{"pricing", []string{"price", "pricing", "cost", "budget", "quote"}},
	{"features", []string{"feature", "functionality", "capability", "can it", "does it"}},
	{"support", []string{"support", "help", "training", "onboarding"}},
	{"integration", []string{"integrate", "integration", "api", "connect", "sync"}},
	{"security", []string{"security", "secure", "compliance", "gdpr", "encryption"}},
}

var goalHooks = map[string]string{
	analysis.GoalBudgetConfirmed:     "Budget is confirmed; lead with ROI and payment options",
	analysis.GoalTimelineEstablished: "Has a timeline; anchor the conversation on their deadline",
	analysis.GoalDecisionMaker:       "Speaking with a decision maker; be ready to close",
	analysis.GoalInterestLevel:       "Shows clear product interest; offer a tailored demo",
	analysis.GoalContactInfo:         "Shared contact details; a direct call is welcome",
}

var goalOrder = []string{
	analysis.GoalBudgetConfirmed,
	analysis.GoalTimelineEstablished,
	analysis.GoalDecisionMaker,
	analysis.GoalInterestLevel,
	analysis.GoalContactInfo,
}

var interestHooks = []struct {
	hook     string
	keywords []string
}{
	{"Comparing options; highlight differentiators", []string{"compare", "comparison", "competitor", "versus", " vs ", "alternative"}},
	{"Focused on ROI; bring numbers and case studies", []string{"roi", "return on investment", "save money", "savings", "payback"}},
	{"Buying for a team; address rollout and seats", []string{"team", "colleagues", "staff", "employees"}},
	{"Planning for growth; emphasize scalability", []string{"scale", "growth", "growing", "expand", "volume"}},
}

var (
	highSignalWords   = []string{"buy", "purchase", "sign", "contract", "budget", "price", "ready", "decision", "start"}
	mediumSignalWords = []string{"?", "how", "what", "when", "clarify", "explain", "understand", "question"}
	strongPositive    = []string{"love", "excellent", "perfect", "amazing", "impressed", "exactly what we need"}
	strongNegative    = []string{"not interested", "too expensive", "disappointed", "frustrated", "terrible", "waste of time"}
)

type scoreTier struct {
	nextSteps []string
	approach  string
}

var (
	tierHot = scoreTier{
		nextSteps: []string{"Schedule a call to finalize requirements", "Prepare a tailored proposal with pricing", "Confirm decision timeline and stakeholders"},
		approach:  "Consultative close: confirm fit and move to a proposal",
	}
	tierWarm = scoreTier{
		nextSteps: []string{"Book a discovery call", "Share relevant case studies", "Clarify budget and timeline"},
		approach:  "Educate and qualify: build value before discussing price",
	}
	tierCool = scoreTier{
		nextSteps: []string{"Send introductory resources", "Keep nurturing with relevant content", "Check in once initial questions are answered"},
		approach:  "Low-pressure nurturing: focus on understanding their needs",
	}
)

// timedMessage is a message tagged with the conversation it belongs to.
type timedMessage struct {
	domain.Message
	conversation int
	index        int
}

// build derives the dossier from the snapshot. It must stay a pure function
// of its input.
func build(s snapshot) domain.LeadDossier {
	leadMsgs := chronologicalLeadMessages(s.conversations)
	avgScore := averageScore(s.analyses)
	urgency := dossierUrgency(s.analyses, s.evaluation.Score)

	d := domain.LeadDossier{
		LeadID:         s.lead.ID,
		ConversationID: s.conversationID,
		LeadSnapshot: domain.LeadSnapshot{
			Name:           s.lead.FullName(),
			Email:          s.lead.Email,
			Phone:          s.lead.Phone,
			Company:        s.lead.Company,
			Source:         s.lead.Source,
			PurchaseTiming: purchaseTiming(leadMsgs),
			Interests:      interests(leadMsgs),
		},
		CommunicationSummary: communicationSummary(s, leadMsgs),
		ProfileAnalysis: domain.ProfileAnalysis{
			BuyerType:     buyerType(avgScore),
			AverageScore:  avgScore,
			GoalsAchieved: goalsAchieved(s.analyses),
		},
		HandoverTrigger: domain.HandoverTrigger{
			Reason:            s.evaluation.Reason,
			Score:             s.evaluation.Score,
			TriggeredCriteria: append([]string{}, s.evaluation.TriggeredCriteria...),
			Urgency:           urgency,
		},
		ConversationHistory: conversationHistory(s.conversations),
		Recommendations:     recommendations(urgency, avgScore),
	}
	d.ProfileAnalysis.KeyHooks = keyHooks(d.ProfileAnalysis.GoalsAchieved, leadMsgs)
	d.Context = contextNarrative(s, d)
	return d
}

func chronologicalLeadMessages(convs []domain.Conversation) []timedMessage {
	var out []timedMessage
	for ci, c := range convs {
		for mi, m := range c.Messages {
			if m.Role == domain.RoleLead {
				out = append(out, timedMessage{Message: m, conversation: ci, index: mi})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].conversation != out[j].conversation {
			return out[i].conversation < out[j].conversation
		}
		return out[i].index < out[j].index
	})
	return out
}

func purchaseTiming(msgs []timedMessage) string {
	for _, m := range msgs {
		for _, b := range timingBuckets {
			if analysis.ContainsAny(m.Content, b.keywords) {
				return b.label
			}
		}
	}
	return timingNotSpecified
}

func interests(msgs []timedMessage) []string {
	out := []string{}
	for _, g := range interestGroups {
		for _, m := range msgs {
			if analysis.ContainsAny(m.Content, g.keywords) {
				out = append(out, g.name)
				break
			}
		}
	}
	return out
}

func communicationSummary(s snapshot, leadMsgs []timedMessage) domain.CommunicationSummary {
	total := 0
	for _, c := range s.conversations {
		total += len(c.Messages)
	}
	channels := make([]domain.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch.Channel)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	return domain.CommunicationSummary{
		TotalConversations: len(s.conversations),
		TotalMessages:      total,
		Channels:           channels,
		Highlights:         highlights(leadMsgs),
		ToneObservations:   toneObservations(s.analyses),
		EngagementPatterns: engagementPatterns(s, channels),
	}
}

func highlights(msgs []timedMessage) []string {
	out := []string{}
	for _, m := range msgs {
		if len(out) == maxHighlights {
			break
		}
		switch {
		case strings.Contains(m.Content, "?"):
			out = append(out, fmt.Sprintf("Asked: %q", excerpt(m.Content)))
		case analysis.ContainsAny(m.Content, strongPositive):
			out = append(out, fmt.Sprintf("Positive: %q", excerpt(m.Content)))
		case analysis.ContainsAny(m.Content, strongNegative):
			out = append(out, fmt.Sprintf("Concern: %q", excerpt(m.Content)))
		}
	}
	return out
}

func toneObservations(analyses []analysis.Analysis) []string {
	out := []string{}
	if len(analyses) == 0 {
		return out
	}

	var sentiment float64
	var leadCount, agentCount int
	var urgent bool
	for _, a := range analyses {
		sentiment += float64(a.Sentiment)
		leadCount += a.LeadMessages
		agentCount += a.AgentMessages
		if a.Urgency == domain.UrgencyHigh {
			urgent = true
		}
	}
	avg := sentiment / float64(len(analyses))
	switch {
	case avg > 1:
		out = append(out, "Consistently positive tone")
	case avg > 0:
		out = append(out, "Generally positive tone")
	case avg < 0:
		out = append(out, "Some negative sentiment; address concerns directly")
	default:
		out = append(out, "Neutral, matter-of-fact tone")
	}

	if agentCount > 0 {
		ratio := float64(leadCount) / float64(agentCount)
		switch {
		case ratio >= 1:
			out = append(out, "Highly responsive: replies to nearly every agent message")
		case ratio >= 0.5:
			out = append(out, "Moderately responsive to agent outreach")
		default:
			out = append(out, "Low responsiveness: many agent messages go unanswered")
		}
	}

	if urgent {
		out = append(out, "Has expressed urgency")
	}
	if len(out) > maxObservations {
		out = out[:maxObservations]
	}
	return out
}

func engagementPatterns(s snapshot, channels []domain.Channel) []string {
	out := []string{}
	if len(s.conversations) == 0 {
		return out
	}

	var messages, leadCount, questions int
	for i, c := range s.conversations {
		messages += len(c.Messages)
		leadCount += s.analyses[i].LeadMessages
		questions += s.analyses[i].Questions
	}
	depth := float64(messages) / float64(len(s.conversations))
	switch {
	case depth >= 10:
		out = append(out, "Deep engagement: long multi-turn conversations")
	case depth >= 4:
		out = append(out, "Moderate engagement: several exchanges per conversation")
	default:
		out = append(out, "Brief exchanges so far")
	}

	if leadCount > 0 {
		freq := float64(questions) / float64(leadCount)
		switch {
		case freq >= 0.5:
			out = append(out, "Asks many questions; actively evaluating")
		case freq > 0:
			out = append(out, "Asks occasional questions")
		}
	}

	if len(channels) > 1 {
		names := make([]string, len(channels))
		for i, ch := range channels {
			names[i] = string(ch)
		}
		out = append(out, fmt.Sprintf("Engaged on %d channels: %s", len(channels), strings.Join(names, ", ")))
	}
	if len(out) > maxObservations {
		out = out[:maxObservations]
	}
	return out
}

func averageScore(analyses []analysis.Analysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var sum float64
	for _, a := range analyses {
		sum += a.QualificationScore
	}
	return math.Round(sum/float64(len(analyses))*10) / 10
}

func buyerType(avg float64) string {
	switch {
	case avg >= 8:
		return "Ready buyer"
	case avg >= 6:
		return "Engaged evaluator"
	case avg >= 4:
		return "Research-stage prospect"
	default:
		return "Early-stage browser"
	}
}

func goalsAchieved(analyses []analysis.Analysis) []string {
	seen := make(map[string]bool)
	for _, a := range analyses {
		for goal, done := range a.GoalProgress {
			if done {
				seen[goal] = true
			}
		}
	}
	out := []string{}
	for _, g := range goalOrder {
		if seen[g] {
			out = append(out, g)
			delete(seen, g)
		}
	}
	var extra []string
	for g := range seen {
		extra = append(extra, g)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func keyHooks(goals []string, msgs []timedMessage) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(h string) {
		if h == "" || seen[h] || len(out) == maxKeyHooks {
			return
		}
		seen[h] = true
		out = append(out, h)
	}
	for _, g := range goals {
		add(goalHooks[g])
	}
	for _, ih := range interestHooks {
		for _, m := range msgs {
			if analysis.ContainsAny(" "+m.Content+" ", ih.keywords) {
				add(ih.hook)
				break
			}
		}
	}
	return out
}

func dossierUrgency(analyses []analysis.Analysis, score float64) domain.Urgency {
	anyMedium := false
	for _, a := range analyses {
		if a.Urgency == domain.UrgencyHigh {
			return domain.UrgencyHigh
		}
		if a.Urgency == domain.UrgencyMedium {
			anyMedium = true
		}
	}
	switch {
	case score >= 8:
		return domain.UrgencyHigh
	case score >= 6 || anyMedium:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

func conversationHistory(convs []domain.Conversation) []domain.ConversationRecap {
	out := make([]domain.ConversationRecap, 0, len(convs))
	for _, c := range convs {
		out = append(out, domain.ConversationRecap{
			ConversationID:     c.ID,
			Channel:            c.Channel,
			Status:             c.Status,
			MessageCount:       len(c.Messages),
			QualificationScore: c.QualificationScore,
			StartedAt:          c.CreatedAt,
			KeyExchanges:       keyExchanges(c.Messages),
		})
	}
	return out
}

func keyExchanges(msgs []domain.Message) []domain.KeyExchange {
	type ranked struct {
		domain.KeyExchange
		rank  int
		index int
	}
	var found []ranked
	for i, m := range msgs {
		if m.Role == domain.RoleSystem {
			continue
		}
		var sig domain.ExchangeSignificance
		var rank int
		switch {
		case analysis.ContainsAny(m.Content, highSignalWords):
			sig, rank = domain.SignificanceHigh, 2
		case analysis.ContainsAny(m.Content, mediumSignalWords):
			sig, rank = domain.SignificanceMedium, 1
		default:
			continue
		}
		found = append(found, ranked{
			KeyExchange: domain.KeyExchange{Role: m.Role, Content: excerpt(m.Content), Timestamp: m.Timestamp, Significance: sig},
			rank:        rank,
			index:       i,
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].rank != found[j].rank {
			return found[i].rank > found[j].rank
		}
		if !found[i].Timestamp.Equal(found[j].Timestamp) {
			return found[i].Timestamp.After(found[j].Timestamp)
		}
		return found[i].index > found[j].index
	})
	if len(found) > maxKeyExchanges {
		found = found[:maxKeyExchanges]
	}
	out := make([]domain.KeyExchange, len(found))
	for i, f := range found {
		out[i] = f.KeyExchange
	}
	return out
}

func recommendations(urgency domain.Urgency, avg float64) domain.DossierRecommendation {
	var timeline string
	switch urgency {
	case domain.UrgencyHigh:
		timeline = "Contact within 24 hours"
	case domain.UrgencyMedium:
		timeline = "Contact within 2-3 days"
	default:
		timeline = "Contact within 1 week"
	}

	tier := tierCool
	switch {
	case avg >= 7:
		tier = tierHot
	case avg >= 5:
		tier = tierWarm
	}
	return domain.DossierRecommendation{
		Timeline:         timeline,
		NextSteps:        append([]string{}, tier.nextSteps...),
		ApproachStrategy: tier.approach,
	}
}

func contextNarrative(s snapshot, d domain.LeadDossier) string {
	name := d.LeadSnapshot.Name
	if name == "" {
		name = "This lead"
	}
	who := name
	if d.LeadSnapshot.Company != "" {
		who = fmt.Sprintf("%s from %s", name, d.LeadSnapshot.Company)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s has had %d conversation(s)", who, len(s.conversations))
	if len(d.CommunicationSummary.Channels) > 0 {
		names := make([]string, len(d.CommunicationSummary.Channels))
		for i, ch := range d.CommunicationSummary.Channels {
			names[i] = string(ch)
		}
		fmt.Fprintf(&b, " across %s", strings.Join(names, ", "))
	}
	if last := lastContact(s.channels); !last.IsZero() {
		fmt.Fprintf(&b, ", last contact %s", last.UTC().Format("2006-01-02 15:04 UTC"))
	}
	fmt.Fprintf(&b, ". Profile: %s (average score %.1f/10).", d.ProfileAnalysis.BuyerType, d.ProfileAnalysis.AverageScore)
	if s.evaluation.Reason != "" {
		fmt.Fprintf(&b, " Escalated because: %s.", strings.TrimSuffix(s.evaluation.Reason, "."))
	}
	return b.String()
}

func lastContact(channels []domain.ChannelActivity) time.Time {
	var last time.Time
	for _, ch := range channels {
		if ch.LastContactAt != nil && ch.LastContactAt.After(last) {
			last = *ch.LastContactAt
		}
	}
	return last
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= excerptLength {
		return s
	}
	return strings.TrimSpace(string(r[:excerptLength-3])) + "..."
}
