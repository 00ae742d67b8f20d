package domain

import "time"

// Flag names kept in SessionState.Flags.
const (
	FlagOnboarded = "onboarded"
)

// ProcedureError is the terminal error recorded when a procedure faults. The
// session stays in StageError until an operator clears it.
type ProcedureError struct {
	Procedure string    `json:"procedure"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// Progress is the replay memo of one procedure scope: answered Ask points and
// steps that already emitted messages.
type Progress struct {
	Answers map[string]string `json:"answers"`
	Emitted map[string][]int  `json:"emitted"`
}

func NewProgress() *Progress {
	return &Progress{
		Answers: make(map[string]string),
		Emitted: make(map[string][]int),
	}
}

// SessionState is the durable per-session record. Version is owned by the
// StateStore and used for optimistic concurrency.
type SessionState struct {
	SessionID SessionID `json:"session_id"`
	Version   int64     `json:"version"`

	CurrentQuestID     QuestID `json:"current_quest_id,omitempty"`
	InConversationWith NPCID   `json:"in_conversation_with,omitempty"`

	AskCursor       string `json:"ask_cursor,omitempty"`
	AskMessageIndex *int   `json:"ask_message_index,omitempty"`

	Flags     map[string]bool      `json:"flags"`
	Character map[string]string    `json:"character"`
	Quests    []*Quest             `json:"quests"`
	Progress  map[string]*Progress `json:"progress"`

	Error *ProcedureError `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessionState returns the record created on first access.
func NewSessionState(id SessionID, now time.Time) *SessionState {
	return &SessionState{
		SessionID: id,
		Flags:     make(map[string]bool),
		Character: make(map[string]string),
		Progress:  make(map[string]*Progress),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Stage derives the owning procedure from the state fields.
func (s *SessionState) Stage() Stage {
	switch {
	case s.Error != nil:
		return StageError
	case !s.Flags[FlagOnboarded]:
		return StageOnboarding
	case s.InConversationWith != "":
		return StageInConversation
	case s.CurrentQuestID != "":
		return StageQuesting
	default:
		return StageCamp
	}
}

// Quest looks up a quest by id, archived or not.
func (s *SessionState) Quest(id QuestID) *Quest {
	for _, q := range s.Quests {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// CurrentQuest returns the active quest or ErrNoCurrentQuest.
func (s *SessionState) CurrentQuest() (*Quest, error) {
	if s.CurrentQuestID == "" {
		return nil, ErrNoCurrentQuest
	}
	q := s.Quest(s.CurrentQuestID)
	if q == nil {
		return nil, ErrNoCurrentQuest
	}
	return q, nil
}

// ArchivedQuests returns completed quests in the order they were started.
func (s *SessionState) ArchivedQuests() []*Quest {
	var out []*Quest
	for _, q := range s.Quests {
		if q.Archived {
			out = append(out, q)
		}
	}
	return out
}

// ProgressFor returns the replay memo of scope, creating it when missing.
func (s *SessionState) ProgressFor(scope string) *Progress {
	if s.Progress == nil {
		s.Progress = make(map[string]*Progress)
	}
	p, ok := s.Progress[scope]
	if !ok || p == nil {
		p = NewProgress()
		s.Progress[scope] = p
	}
	if p.Answers == nil {
		p.Answers = make(map[string]string)
	}
	if p.Emitted == nil {
		p.Emitted = make(map[string][]int)
	}
	return p
}

// ClearCursor drops the pending Ask point.
func (s *SessionState) ClearCursor() {
	s.AskCursor = ""
	s.AskMessageIndex = nil
}

// Clone returns a deep copy. Stores hand out clones so a turn can mutate its
// copy freely until Set.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.AskMessageIndex = cloneIndex(s.AskMessageIndex)

	cp.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		cp.Flags[k] = v
	}
	cp.Character = make(map[string]string, len(s.Character))
	for k, v := range s.Character {
		cp.Character[k] = v
	}
	cp.Quests = make([]*Quest, 0, len(s.Quests))
	for _, q := range s.Quests {
		cp.Quests = append(cp.Quests, q.clone())
	}
	cp.Progress = make(map[string]*Progress, len(s.Progress))
	for scope, p := range s.Progress {
		if p == nil {
			continue
		}
		np := NewProgress()
		for k, v := range p.Answers {
			np.Answers[k] = v
		}
		for k, v := range p.Emitted {
			np.Emitted[k] = append([]int(nil), v...)
		}
		cp.Progress[scope] = np
	}
	if s.Error != nil {
		e := *s.Error
		cp.Error = &e
	}
	return &cp
}
