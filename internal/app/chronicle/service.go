package chronicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/campfire/internal/domain"
)

// Service holds the logic of reading the chronicle of completed quests
type Service struct {
	states domain.StateStore
	log    domain.TaggedLog
}

// NewService creates a chronicle service from the session state and log
func NewService(states domain.StateStore, log domain.TaggedLog) *Service {
	return &Service{
		states: states,
		log:    log,
	}
}

// ListQuests returns the last `limit` archived quests of a session, newest
// first, with their summary text.
// If limit <= 0, a reasonable default value is used.
func (s *Service) ListQuests(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) ([]*domain.ChronicleEntry, error) {

	if limit <= 0 {
		limit = 20
	}

	state, err := s.states.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state.Version == 0 {
		return nil, domain.ErrSessionNotFound
	}

	archived := state.ArchivedQuests()
	entries := make([]*domain.ChronicleEntry, 0, min(limit, len(archived)))
	for i := len(archived) - 1; i >= 0 && len(entries) < limit; i-- {
		q := archived[i]
		summary, err := s.summary(ctx, sessionID, q)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &domain.ChronicleEntry{
			QuestID:    q.ID,
			Title:      q.Title,
			Summary:    summary,
			Answers:    append([]string(nil), q.ProblemAnswers...),
			StartedAt:  q.StartedAt,
			ArchivedAt: q.ArchivedAt,
		})
	}
	return entries, nil
}

func (s *Service) summary(ctx context.Context, sessionID domain.SessionID, q *domain.Quest) (string, error) {
	if q.SummaryMessageIndex == nil {
		return "", nil
	}
	m, err := s.log.Get(ctx, sessionID, *q.SummaryMessageIndex)
	if errors.Is(err, domain.ErrMessageNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load summary of quest %s: %w", q.ID, err)
	}
	return m.Text, nil
}
