// Package window builds the token-budgeted context window fed to generators.
package window

import (
	"context"
	"fmt"
	"sort"

	"github.com/PabloGalante/campfire/internal/app/logfilter"
	"github.com/PabloGalante/campfire/internal/app/tokens"
	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

type TargetKind string

const (
	TargetQuest        TargetKind = "quest"
	TargetConversation TargetKind = "conversation"
	TargetCamp         TargetKind = "camp"
)

// Target names what the window is built for.
type Target struct {
	Kind TargetKind
	ID   string
}

func QuestTarget(id domain.QuestID) Target      { return Target{Kind: TargetQuest, ID: string(id)} }
func ConversationTarget(id domain.NPCID) Target { return Target{Kind: TargetConversation, ID: string(id)} }
func CampTarget() Target                        { return Target{Kind: TargetCamp, ID: "camp"} }

// ParseTargetKind maps user input to a TargetKind.
func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(s) {
	case TargetQuest, TargetConversation, TargetCamp:
		return TargetKind(s), nil
	default:
		return "", fmt.Errorf("unknown window target %q", s)
	}
}

// Tier is the priority class a message was selected under.
type Tier int

const (
	TierSetup Tier = iota + 1
	TierAnchor
	TierRecent
	TierSummaries
)

type Entry struct {
	Index  int
	Tier   Tier
	Tokens int
	Reason string
}

// Window is the selection, in ascending log order.
type Window struct {
	Indices     []int
	Entries     []Entry
	Messages    []*domain.Message
	TotalTokens int
}

type Builder struct {
	log     domain.TaggedLog
	counter *tokens.Counter
	metrics *observability.Metrics
}

func NewBuilder(log domain.TaggedLog, counter *tokens.Counter, metrics *observability.Metrics) *Builder {
	return &Builder{log: log, counter: counter, metrics: metrics}
}

// Build selects the window for target under maxTokens.
//
// Tier 1 (setup) and tier 2 (target anchor) are always included and their cost
// still counts. Tier 3 adds the target's user/assistant exchanges newest first
// and tier 4 adds summaries of other quests newest first; both add a message
// only while total+cost < maxTokens and stop at the first that does not fit.
func (b *Builder) Build(ctx context.Context, sessionID domain.SessionID, target Target, maxTokens int) (*Window, error) {
	msgs, err := b.log.All(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}

	sel := &selector{ctx: ctx, counter: b.counter, seen: make(map[int]bool)}

	for _, s := range logfilter.Select(msgs, setupFilter()) {
		if err := sel.force(s, TierSetup); err != nil {
			return nil, err
		}
	}
	if f := anchorFilter(target); f != nil {
		for _, s := range logfilter.Select(msgs, f) {
			if err := sel.force(s, TierAnchor); err != nil {
				return nil, err
			}
		}
	}
	if err := sel.fill(logfilter.Select(msgs, recentFilter(target)), TierRecent, maxTokens); err != nil {
		return nil, err
	}
	if err := sel.fill(logfilter.Select(msgs, summaryFilter(target)), TierSummaries, maxTokens); err != nil {
		return nil, err
	}

	w := sel.window()
	b.metrics.RecordWindow(len(w.Indices), w.TotalTokens)
	return w, nil
}

func setupFilter() logfilter.Filter {
	return logfilter.LastMatch(logfilter.ByTags("setup",
		domain.TagRef{Kind: domain.TagInstruction, Name: domain.InstructionSetup}))
}

func anchorFilter(t Target) logfilter.Filter {
	var name string
	var kind domain.TagKind
	switch t.Kind {
	case TargetQuest:
		name, kind = domain.InstructionQuestIntro, domain.TagQuest
	case TargetConversation:
		name, kind = domain.InstructionNPCIntro, domain.TagConversation
	default:
		return nil
	}
	return logfilter.LastMatch(logfilter.Where(
		logfilter.ByCorrelation(string(t.Kind)+" anchor", kind, t.ID),
		logfilter.HasTag(domain.TagRef{Kind: domain.TagInstruction, Name: name}),
	))
}

func recentFilter(t Target) logfilter.Filter {
	var base logfilter.Filter
	switch t.Kind {
	case TargetQuest:
		base = logfilter.ByCorrelation("quest exchange", domain.TagQuest, t.ID)
	case TargetConversation:
		base = logfilter.ByCorrelation("conversation exchange", domain.TagConversation, t.ID)
	default:
		base = logfilter.ByTags("camp exchange", domain.TagRef{Kind: domain.TagProcedure, Name: "camp"})
	}
	return logfilter.Where(
		logfilter.Where(base, logfilter.ByRole(domain.RoleUser, domain.RoleAssistant)),
		logfilter.Not(logfilter.HasTag(domain.TagRef{Kind: domain.TagSummary})),
	)
}

func summaryFilter(t Target) logfilter.Filter {
	summaries := logfilter.ByTags("quest summary", domain.TagRef{Kind: domain.TagSummary})
	if t.Kind != TargetQuest {
		return summaries
	}
	return logfilter.Where(summaries, func(m *domain.Message) bool {
		return !m.CorrelatedWith(domain.TagQuest, t.ID)
	})
}

type selector struct {
	ctx     context.Context
	counter *tokens.Counter
	seen    map[int]bool
	entries []Entry
	msgs    []*domain.Message
	total   int
}

func (s *selector) force(sel logfilter.Selection, tier Tier) error {
	if s.seen[sel.Message.Index] {
		return nil
	}
	cost, err := s.counter.Count(s.ctx, sel.Message)
	if err != nil {
		return err
	}
	s.add(sel, tier, cost)
	return nil
}

// fill walks candidates newest first under the budget.
func (s *selector) fill(candidates []logfilter.Selection, tier Tier, maxTokens int) error {
	for i := len(candidates) - 1; i >= 0; i-- {
		c := candidates[i]
		if s.seen[c.Message.Index] {
			continue
		}
		cost, err := s.counter.Count(s.ctx, c.Message)
		if err != nil {
			return err
		}
		if s.total+cost >= maxTokens {
			return nil
		}
		s.add(c, tier, cost)
	}
	return nil
}

func (s *selector) add(sel logfilter.Selection, tier Tier, cost int) {
	s.seen[sel.Message.Index] = true
	s.total += cost
	s.entries = append(s.entries, Entry{
		Index:  sel.Message.Index,
		Tier:   tier,
		Tokens: cost,
		Reason: sel.Reason,
	})
	s.msgs = append(s.msgs, sel.Message)
}

func (s *selector) window() *Window {
	order := make([]int, len(s.entries))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return s.entries[order[a]].Index < s.entries[order[b]].Index
	})

	w := &Window{TotalTokens: s.total}
	for _, i := range order {
		w.Entries = append(w.Entries, s.entries[i])
		w.Indices = append(w.Indices, s.entries[i].Index)
		w.Messages = append(w.Messages, s.msgs[i])
	}
	return w
}
