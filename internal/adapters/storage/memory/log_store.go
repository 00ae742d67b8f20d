package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/campfire/internal/domain"
)

// LogStore is an in-memory domain.TaggedLog. It is NOT persistent and is only
// suitable for development / local mode and tests.
type LogStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]*domain.Message
	now      func() time.Time
}

func NewLogStore() *LogStore {
	return &LogStore{
		messages: make(map[domain.SessionID][]*domain.Message),
		now:      time.Now,
	}
}

func (s *LogStore) Append(_ context.Context, sessionID domain.SessionID, draft domain.Draft) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[sessionID]
	msg := &domain.Message{
		Index:       len(msgs),
		SessionID:   sessionID,
		Role:        draft.Role,
		Text:        draft.Text,
		Attachments: append([]string(nil), draft.Attachments...),
		Tags:        append([]domain.Tag(nil), draft.Tags...),
		CreatedAt:   s.now(),
	}
	s.messages[sessionID] = append(msgs, msg)
	return msg.Clone(), nil
}

func (s *LogStore) Get(_ context.Context, sessionID domain.SessionID, index int) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if index < 0 || index >= len(msgs) {
		return nil, fmt.Errorf("message %d of session %s: %w", index, sessionID, domain.ErrMessageNotFound)
	}
	return msgs[index].Clone(), nil
}

func (s *LogStore) All(_ context.Context, sessionID domain.SessionID) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out, nil
}

func (s *LogStore) Annotate(_ context.Context, sessionID domain.SessionID, index int, tag domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[sessionID]
	if index < 0 || index >= len(msgs) {
		return fmt.Errorf("message %d of session %s: %w", index, sessionID, domain.ErrMessageNotFound)
	}
	msgs[index].Tags = append(msgs[index].Tags, tag)
	return nil
}

var _ domain.TaggedLog = (*LogStore)(nil)
