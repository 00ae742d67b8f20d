package domain

import "context"

// TaggedLog is the append-only, per-session message history.
type TaggedLog interface {
	// Append assigns the next index of the session log to draft.
	Append(ctx context.Context, sessionID SessionID, draft Draft) (*Message, error)
	Get(ctx context.Context, sessionID SessionID, index int) (*Message, error)
	// All returns the session log in index order.
	All(ctx context.Context, sessionID SessionID) ([]*Message, error)
	// Annotate adds a tag to an existing message. Text is never touched and
	// identical tags are kept, not merged.
	Annotate(ctx context.Context, sessionID SessionID, index int, tag Tag) error
}

// StateStore persists SessionState. Get creates the record on first access.
// Set must reject stale writes with ErrVersionConflict; that is the only
// per-session serialisation the game relies on.
type StateStore interface {
	Get(ctx context.Context, sessionID SessionID) (*SessionState, error)
	Set(ctx context.Context, state *SessionState) error
}

// GenerateInput is what a Generator sees: the selected window, in log order,
// plus a transient instruction that is not part of the log.
type GenerateInput struct {
	SessionID   SessionID
	Messages    []*Message
	Instruction string
}

// GenerateResult holds at least one draft on success.
type GenerateResult struct {
	Drafts []Draft
}

// Generator produces text (or image/audio references) from a window.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error)
}

// Moderator checks player-provided text. Callers treat errors as "allowed".
type Moderator interface {
	Check(ctx context.Context, text string) (bool, error)
}
