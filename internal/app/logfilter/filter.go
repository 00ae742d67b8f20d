// Package logfilter selects subsets of a session's tagged log.
//
// Filters are pure functions of the log. They compose: Union merges results,
// LastMatch narrows to the newest hit, Where refines with a predicate. Select
// runs a filter and applies the final exclusion pass.
package logfilter

import (
	"sort"
	"strings"

	"github.com/PabloGalante/campfire/internal/domain"
)

// ReasonSeparator joins inclusion reasons of a message selected more than once.
const ReasonSeparator = "; "

// Selection is a message together with why it was selected.
type Selection struct {
	Message *domain.Message
	Reason  string
}

// Filter selects messages from a log given in index order.
type Filter func(msgs []*domain.Message) []Selection

// Predicate is a message test used by Where.
type Predicate func(m *domain.Message) bool

// ByTags keeps messages carrying any tag matching one of refs.
func ByTags(reason string, refs ...domain.TagRef) Filter {
	return func(msgs []*domain.Message) []Selection {
		var out []Selection
		for _, m := range msgs {
			for _, ref := range refs {
				if m.HasTag(ref) {
					out = append(out, Selection{Message: m, Reason: reason})
					break
				}
			}
		}
		return out
	}
}

// ByCorrelation keeps messages with a kind tag whose value equals id,
// compared case-insensitively. An empty id matches nothing.
func ByCorrelation(reason string, kind domain.TagKind, id string) Filter {
	return func(msgs []*domain.Message) []Selection {
		if id == "" {
			return nil
		}
		var out []Selection
		for _, m := range msgs {
			if m.CorrelatedWith(kind, id) {
				out = append(out, Selection{Message: m, Reason: reason})
			}
		}
		return out
	}
}

// LastMatch keeps only the highest-index selection of f.
func LastMatch(f Filter) Filter {
	return func(msgs []*domain.Message) []Selection {
		sel := f(msgs)
		if len(sel) == 0 {
			return nil
		}
		best := sel[0]
		for _, s := range sel[1:] {
			if s.Message.Index > best.Message.Index {
				best = s
			}
		}
		return []Selection{best}
	}
}

// Where keeps the selections of f whose message satisfies pred.
func Where(f Filter, pred Predicate) Filter {
	return func(msgs []*domain.Message) []Selection {
		var out []Selection
		for _, s := range f(msgs) {
			if pred(s.Message) {
				out = append(out, s)
			}
		}
		return out
	}
}

// Union combines filters. A message selected by several filters appears once,
// with its reasons joined by ReasonSeparator in filter order.
func Union(filters ...Filter) Filter {
	return func(msgs []*domain.Message) []Selection {
		byIndex := make(map[int]int)
		var out []Selection
		for _, f := range filters {
			for _, s := range f(msgs) {
				if pos, ok := byIndex[s.Message.Index]; ok {
					if !hasReason(out[pos].Reason, s.Reason) {
						out[pos].Reason += ReasonSeparator + s.Reason
					}
					continue
				}
				byIndex[s.Message.Index] = len(out)
				out = append(out, s)
			}
		}
		return out
	}
}

// Not negates a predicate.
func Not(pred Predicate) Predicate {
	return func(m *domain.Message) bool { return !pred(m) }
}

// ByRole matches messages authored by any of roles.
func ByRole(roles ...domain.Role) Predicate {
	return func(m *domain.Message) bool {
		for _, r := range roles {
			if m.Role == r {
				return true
			}
		}
		return false
	}
}

// HasTag matches messages carrying a tag matching ref.
func HasTag(ref domain.TagRef) Predicate {
	return func(m *domain.Message) bool { return m.HasTag(ref) }
}

// Select runs f over msgs, drops moderation-excluded and empty messages, and
// returns the rest in log order.
func Select(msgs []*domain.Message, f Filter) []Selection {
	raw := f(msgs)
	out := make([]Selection, 0, len(raw))
	for _, s := range raw {
		if !Usable(s.Message) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Message.Index < out[j].Message.Index
	})
	return out
}

// Usable reports whether a message may be shown to a model at all.
func Usable(m *domain.Message) bool {
	return m != nil && !m.Excluded() && strings.TrimSpace(m.Text) != ""
}

func hasReason(joined, reason string) bool {
	for _, r := range strings.Split(joined, ReasonSeparator) {
		if r == reason {
			return true
		}
	}
	return false
}
