package procedure

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

// MaxReroutes bounds how many procedures one turn may pass through.
const MaxReroutes = 4

var ErrTooManyReroutes = errors.New("too many procedure reroutes in one turn")

type Status string

const (
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TurnResult is the outcome of one turn.
type TurnResult struct {
	Status    Status            `json:"status"`
	Procedure string            `json:"procedure"`
	Outgoing  []*domain.Message `json:"outgoing"`
	Error     string            `json:"error,omitempty"`
}

// RouteFunc picks the procedure that owns the session.
type RouteFunc func(state *domain.SessionState) (Procedure, error)

type Runner struct {
	env *Env
}

func NewRunner(env *Env) *Runner {
	return &Runner{env: env}
}

// Run executes the routed procedure against state, which it mutates in
// place. reply is the incoming player message, already logged, or nil.
//
// Faults, returned or panicked, are recorded in state.Error and reported as a
// failed result; Run itself never returns an error.
func (r *Runner) Run(ctx context.Context, state *domain.SessionState, reply *domain.Message, route RouteFunc) *TurnResult {
	t := newTurn(r.env, state, reply)
	logger := observability.LoggerFromContext(ctx).With("session_id", state.SessionID)

	for hop := 0; ; hop++ {
		proc, err := route(state)
		if err != nil {
			return r.fail(ctx, t, "router", err)
		}
		if hop > MaxReroutes {
			return r.fail(ctx, t, proc.Name, ErrTooManyReroutes)
		}

		t.enter(proc)
		sig, err := r.exec(ctx, t, proc)
		if err != nil {
			return r.fail(ctx, t, proc.Name, err)
		}

		logger.Debug("procedure returned", "procedure", proc.Name, "signal", sig.String())

		switch sig {
		case Yield:
			return &TurnResult{Status: StatusSuspended, Procedure: proc.Name, Outgoing: t.outgoing}
		case Done:
			delete(state.Progress, proc.Scope)
			return &TurnResult{Status: StatusCompleted, Procedure: proc.Name, Outgoing: t.outgoing}
		case Reroute:
			delete(state.Progress, proc.Scope)
		default:
			return r.fail(ctx, t, proc.Name, fmt.Errorf("unknown signal %d", sig))
		}
	}
}

func (r *Runner) exec(ctx context.Context, t *Turn, proc Procedure) (sig Signal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in procedure %s: %v", proc.Name, rec)
		}
	}()
	return proc.Run(ctx, t)
}

func (r *Runner) fail(ctx context.Context, t *Turn, procedure string, err error) *TurnResult {
	observability.LoggerFromContext(ctx).Error("procedure failed",
		"session_id", t.SessionID(),
		"procedure", procedure,
		"error", err,
	)
	t.State.Error = &domain.ProcedureError{
		Procedure: procedure,
		Message:   err.Error(),
		At:        r.env.now(),
	}
	return &TurnResult{
		Status:    StatusFailed,
		Procedure: procedure,
		Outgoing:  t.outgoing,
		Error:     err.Error(),
	}
}
