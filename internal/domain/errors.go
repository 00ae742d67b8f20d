package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")

	// ErrVersionConflict is returned by StateStore.Set when the stored state
	// moved on since the caller read it.
	ErrVersionConflict = errors.New("session state version conflict")

	ErrNoCurrentQuest  = errors.New("no current quest")
	ErrUnknownNPC      = errors.New("unknown npc")
	ErrEmptyGeneration = errors.New("generator returned no messages")
)
