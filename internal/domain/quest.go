package domain

import "time"

// Quest is one adventure the character goes on. It is archived, never
// deleted, when it completes.
type Quest struct {
	ID    QuestID `json:"id"`
	Title string  `json:"title"`

	IntroSent bool `json:"intro_sent"`
	OutroSent bool `json:"outro_sent"`

	// Player answers to each problem, in the order they were posed.
	ProblemAnswers []string `json:"problem_answers"`

	IntroMessageIndex   *int `json:"intro_message_index,omitempty"`
	SummaryMessageIndex *int `json:"summary_message_index,omitempty"`

	Archived   bool      `json:"archived"`
	StartedAt  time.Time `json:"started_at"`
	ArchivedAt time.Time `json:"archived_at,omitempty"`
}

func (q *Quest) clone() *Quest {
	if q == nil {
		return nil
	}
	cp := *q
	cp.ProblemAnswers = append([]string(nil), q.ProblemAnswers...)
	cp.IntroMessageIndex = cloneIndex(q.IntroMessageIndex)
	cp.SummaryMessageIndex = cloneIndex(q.SummaryMessageIndex)
	return &cp
}

// ChronicleEntry is the read model of an archived quest.
type ChronicleEntry struct {
	QuestID    QuestID   `json:"quest_id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Answers    []string  `json:"answers"`
	StartedAt  time.Time `json:"started_at"`
	ArchivedAt time.Time `json:"archived_at"`
}

func cloneIndex(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
