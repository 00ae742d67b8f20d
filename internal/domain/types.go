package domain

import "time"

type SessionID string
type QuestID string
type NPCID string

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Stage is the procedure currently owning a session.
type Stage string

const (
	StageOnboarding     Stage = "onboarding"
	StageCamp           Stage = "camp"
	StageInConversation Stage = "in_conversation"
	StageQuesting       Stage = "questing"
	StageError          Stage = "error"
)

type Timestamp = time.Time
