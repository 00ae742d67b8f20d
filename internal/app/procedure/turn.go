// Package procedure runs game procedures written as straight-line code across
// independent turns.
//
// A procedure is re-executed from its first statement on every turn. Ask
// points that were already answered return their memoised answer and steps
// that already emitted messages are skipped, so the procedure fast-forwards to
// the first pending Ask point and yields there.
package procedure

import (
	"context"
	"time"

	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

// Signal is how a procedure hands control back to the runner.
type Signal int

const (
	// Done means the procedure completed.
	Done Signal = iota
	// Yield means an Ask point suspended the procedure.
	Yield
	// Reroute means the procedure changed the session so another procedure
	// owns it now and must run in the same turn.
	Reroute
)

func (s Signal) String() string {
	switch s {
	case Done:
		return "done"
	case Yield:
		return "yield"
	case Reroute:
		return "reroute"
	default:
		return "unknown"
	}
}

// Func is a procedure body. A returned error is a fault.
type Func func(ctx context.Context, t *Turn) (Signal, error)

// Procedure is one routable procedure instance.
type Procedure struct {
	Name string
	// Scope keys the replay memo in SessionState.Progress.
	Scope string
	// Tags are attached to every message the procedure appends.
	Tags []domain.Tag
	Run  Func
}

// Env carries the dependencies a turn needs. It is built once and shared.
type Env struct {
	Log       domain.TaggedLog
	Generator domain.Generator
	Moderator domain.Moderator
	Window    *window.Builder
	MaxTokens int
	Metrics   *observability.Metrics
	Now       func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

// allowed runs moderation. Moderation failures count as allowed.
func (e *Env) allowed(ctx context.Context, text string) bool {
	if e.Moderator == nil {
		return true
	}
	ok, err := e.Moderator.Check(ctx, text)
	if err != nil {
		e.Metrics.RecordModerationFailOpen()
		observability.LoggerFromContext(ctx).Warn("moderation failed, allowing reply",
			"error", err,
		)
		return true
	}
	if !ok {
		e.Metrics.RecordModerationRejected()
	}
	return ok
}

// Turn is the mutable progress of one run_turn call.
type Turn struct {
	env   *Env
	State *domain.SessionState

	reply    *domain.Message
	consumed bool
	outgoing []*domain.Message

	proc Procedure
}

func newTurn(env *Env, state *domain.SessionState, reply *domain.Message) *Turn {
	return &Turn{env: env, State: state, reply: reply}
}

// SessionID of the session being played.
func (t *Turn) SessionID() domain.SessionID { return t.State.SessionID }

// Now is the turn clock.
func (t *Turn) Now() time.Time { return t.env.now() }

// Reply returns the incoming player message if no Ask point consumed it.
func (t *Turn) Reply() (*domain.Message, bool) {
	if t.reply == nil || t.consumed {
		return nil, false
	}
	return t.reply, true
}

// TakeReply consumes the incoming player message outside of an Ask point, e.g.
// free conversation with an NPC.
func (t *Turn) TakeReply() (*domain.Message, bool) {
	m, ok := t.Reply()
	if ok {
		t.consumed = true
	}
	return m, ok
}

// History returns the whole session log.
func (t *Turn) History(ctx context.Context) ([]*domain.Message, error) {
	return t.env.Log.All(ctx, t.SessionID())
}

// Outgoing returns the messages produced so far this turn, in order.
func (t *Turn) Outgoing() []*domain.Message { return t.outgoing }

func (t *Turn) enter(p Procedure) {
	t.proc = p
}

func (t *Turn) progress() *domain.Progress {
	return t.State.ProgressFor(t.proc.Scope)
}

func (t *Turn) tags(extra ...domain.Tag) []domain.Tag {
	out := make([]domain.Tag, 0, len(t.proc.Tags)+len(extra))
	out = append(out, t.proc.Tags...)
	return append(out, extra...)
}

func (t *Turn) append(ctx context.Context, d domain.Draft) (*domain.Message, error) {
	d.Tags = t.tags(d.Tags...)
	m, err := t.env.Log.Append(ctx, t.SessionID(), d)
	if err != nil {
		return nil, err
	}
	t.outgoing = append(t.outgoing, m)
	return m, nil
}
