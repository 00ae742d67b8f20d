package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/app/tokens"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
	"github.com/PabloGalante/campfire/internal/observability"
)

// DefaultMaxTokens is the window budget used when none is configured.
const DefaultMaxTokens = 4096

type Service struct {
	log     domain.TaggedLog
	states  domain.StateStore
	router  *Router
	runner  *procedure.Runner
	window  *window.Builder
	metrics *observability.Metrics

	maxTokens int
	now       func() time.Time
}

type Deps struct {
	Log       domain.TaggedLog
	States    domain.StateStore
	Generator domain.Generator
	Moderator domain.Moderator
	Metrics   *observability.Metrics
	World     domain.World
	MaxTokens int
}

func NewService(d Deps) *Service {
	maxTokens := d.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	now := func() time.Time { return time.Now().UTC() }
	builder := window.NewBuilder(d.Log, tokens.NewCounter(d.Log), d.Metrics)

	env := &procedure.Env{
		Log:       d.Log,
		Generator: d.Generator,
		Moderator: d.Moderator,
		Window:    builder,
		MaxTokens: maxTokens,
		Metrics:   d.Metrics,
		Now:       now,
	}

	return &Service{
		log:       d.Log,
		states:    d.States,
		router:    NewRouter(d.World),
		runner:    procedure.NewRunner(env),
		window:    builder,
		metrics:   d.Metrics,
		maxTokens: maxTokens,
		now:       now,
	}
}

// TurnOutput is a TurnResult plus where the session ended up.
type TurnOutput struct {
	SessionID domain.SessionID `json:"session_id"`
	Stage     domain.Stage     `json:"stage"`
	*procedure.TurnResult
}

// StartSession creates a session and plays its first turn without player
// input, which puts the first question in front of the player.
func (s *Service) StartSession(ctx context.Context) (*TurnOutput, error) {
	id := domain.SessionID(uuid.NewString())
	observability.LoggerFromContext(ctx).Info("starting new session", "session_id", id)
	return s.RunTurn(ctx, id, "")
}

// RunTurn logs the player's message, runs the owning procedure and persists
// the session state. An empty text means no player message.
//
// A session in the error stage does not run anything and keeps failing until
// ClearError is called.
func (s *Service) RunTurn(ctx context.Context, sessionID domain.SessionID, text string) (*TurnOutput, error) {
	start := time.Now()
	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	state, err := s.states.Get(ctx, sessionID)
	if err != nil {
		log.Error("failed to load session state", "error", err)
		return nil, err
	}
	stage := state.Stage()
	log = log.With("stage", stage)

	if stage == domain.StageError {
		log.Warn("turn rejected, session is in error stage")
		s.metrics.RecordTurn(string(stage), string(procedure.StatusFailed), time.Since(start))
		return &TurnOutput{
			SessionID: sessionID,
			Stage:     stage,
			TurnResult: &procedure.TurnResult{
				Status:    procedure.StatusFailed,
				Procedure: state.Error.Procedure,
				Error:     state.Error.Message,
			},
		}, nil
	}

	var reply *domain.Message
	if strings.TrimSpace(text) != "" {
		proc, err := s.router.Route(state)
		if err != nil {
			return nil, err
		}
		reply, err = s.log.Append(ctx, sessionID, domain.Draft{
			Role: domain.RoleUser,
			Text: text,
			Tags: proc.Tags,
		})
		if err != nil {
			log.Error("failed to append player message", "error", err)
			return nil, fmt.Errorf("append player message: %w", err)
		}
	}

	res := s.runner.Run(ctx, state, reply, s.router.Route)

	if err := s.states.Set(ctx, state); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.metrics.RecordStateConflict()
		}
		log.Error("failed to save session state", "error", err)
		return nil, fmt.Errorf("save session state: %w", err)
	}

	s.metrics.RecordTurn(string(stage), string(res.Status), time.Since(start))
	log.Info("turn finished",
		"procedure", res.Procedure,
		"status", res.Status,
		"outgoing", len(res.Outgoing),
		"next_stage", state.Stage(),
	)

	return &TurnOutput{SessionID: sessionID, Stage: state.Stage(), TurnResult: res}, nil
}

// BuildWindow exposes the context window a generator would see for target.
func (s *Service) BuildWindow(ctx context.Context, sessionID domain.SessionID, target window.Target, maxTokens int) (*window.Window, error) {
	if maxTokens <= 0 {
		maxTokens = s.maxTokens
	}
	if _, err := s.existing(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.window.Build(ctx, sessionID, target, maxTokens)
}

// ClearError is the operator action that takes a session out of the error
// stage. The interrupted procedure resumes where it left off.
func (s *Service) ClearError(ctx context.Context, sessionID domain.SessionID) (*domain.SessionState, error) {
	state, err := s.existing(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Error == nil {
		return state, nil
	}

	observability.LoggerFromContext(ctx).Warn("clearing session error",
		"session_id", sessionID,
		"procedure", state.Error.Procedure,
		"error", state.Error.Message,
	)
	state.Error = nil
	if err := s.states.Set(ctx, state); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.metrics.RecordStateConflict()
		}
		return nil, fmt.Errorf("save session state: %w", err)
	}
	return state, nil
}

// Timeline returns the session state and its whole log.
func (s *Service) Timeline(ctx context.Context, sessionID domain.SessionID) (*domain.SessionState, []*domain.Message, error) {
	state, err := s.existing(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.log.All(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load log: %w", err)
	}
	return state, msgs, nil
}

// LatestInventory returns the newest inventory snapshot of the session.
func (s *Service) LatestInventory(ctx context.Context, sessionID domain.SessionID) (map[string]string, error) {
	if _, err := s.existing(ctx, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.log.All(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	return latestInventory(msgs), nil
}

// existing loads a state that was saved at least once.
func (s *Service) existing(ctx context.Context, sessionID domain.SessionID) (*domain.SessionState, error) {
	state, err := s.states.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Version == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}
