package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/campfire/internal/domain"
)

// Store keeps session state and the tagged log in Firestore:
//
//	sessions/{id}                 session state
//	sessions/{id}/meta/log        next log index
//	sessions/{id}/messages/{idx}  log messages, idx zero-padded
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (CAMPFIRE_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// StateStore is the domain.StateStore view of a Store.
type StateStore struct{ *Store }

// LogStore is the domain.TaggedLog view of a Store.
type LogStore struct{ *Store }

func (s *Store) States() *StateStore { return &StateStore{s} }
func (s *Store) Log() *LogStore      { return &LogStore{s} }

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.client.Collection("sessions").Doc(string(id))
}

func (s *Store) counterDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionDoc(id).Collection("meta").Doc("log")
}

func (s *Store) messagesCol(id domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(id).Collection("messages")
}

func (s *Store) messageDoc(id domain.SessionID, index int) *firestore.DocumentRef {
	return s.messagesCol(id).Doc(fmt.Sprintf("%010d", index))
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type tagDoc struct {
	Kind      string            `firestore:"kind"`
	Name      string            `firestore:"name"`
	ValueKind int               `firestore:"value_kind"`
	Str       string            `firestore:"str,omitempty"`
	Int       int64             `firestore:"int,omitempty"`
	Fields    map[string]string `firestore:"fields,omitempty"`
}

type messageDoc struct {
	Index       int64     `firestore:"index"`
	Role        string    `firestore:"role"`
	Text        string    `firestore:"text"`
	Attachments []string  `firestore:"attachments"`
	Tags        []tagDoc  `firestore:"tags"`
	CreatedAt   time.Time `firestore:"created_at"`
}

type counterDocData struct {
	Next int64 `firestore:"next"`
}

type questDoc struct {
	ID                  string    `firestore:"id"`
	Title               string    `firestore:"title"`
	IntroSent           bool      `firestore:"intro_sent"`
	OutroSent           bool      `firestore:"outro_sent"`
	ProblemAnswers      []string  `firestore:"problem_answers"`
	IntroMessageIndex   *int64    `firestore:"intro_message_index"`
	SummaryMessageIndex *int64    `firestore:"summary_message_index"`
	Archived            bool      `firestore:"archived"`
	StartedAt           time.Time `firestore:"started_at"`
	ArchivedAt          time.Time `firestore:"archived_at"`
}

type progressDoc struct {
	Answers map[string]string  `firestore:"answers"`
	Emitted map[string][]int64 `firestore:"emitted"`
}

type errorDoc struct {
	Procedure string    `firestore:"procedure"`
	Message   string    `firestore:"message"`
	At        time.Time `firestore:"at"`
}

type stateDoc struct {
	Version            int64                  `firestore:"version"`
	CurrentQuestID     string                 `firestore:"current_quest_id"`
	InConversationWith string                 `firestore:"in_conversation_with"`
	AskCursor          string                 `firestore:"ask_cursor"`
	AskMessageIndex    *int64                 `firestore:"ask_message_index"`
	Flags              map[string]bool        `firestore:"flags"`
	Character          map[string]string      `firestore:"character"`
	Quests             []questDoc             `firestore:"quests"`
	Progress           map[string]progressDoc `firestore:"progress"`
	Error              *errorDoc              `firestore:"error"`
	CreatedAt          time.Time              `firestore:"created_at"`
	UpdatedAt          time.Time              `firestore:"updated_at"`
}

// ─────────────────────────────────────────
// StateStore implementation
// ─────────────────────────────────────────

func (s *StateStore) Get(ctx context.Context, id domain.SessionID) (*domain.SessionState, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return domain.NewSessionState(id, s.now()), nil
		}
		return nil, fmt.Errorf("firestore GetState: %w", err)
	}

	var doc stateDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetState decode: %w", err)
	}
	return stateFromDoc(id, doc), nil
}

// Set writes state in a transaction that checks the stored version first.
func (s *StateStore) Set(ctx context.Context, state *domain.SessionState) error {
	ref := s.sessionDoc(state.SessionID)
	now := s.now()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			v, err := snap.DataAt("version")
			if err != nil {
				return fmt.Errorf("read version: %w", err)
			}
			current, _ = v.(int64)
		case notFound(err):
		default:
			return err
		}

		if current != state.Version {
			return domain.ErrVersionConflict
		}

		doc := stateToDoc(state)
		doc.Version = current + 1
		doc.UpdatedAt = now
		return tx.Set(ref, doc)
	})
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) || status.Code(err) == codes.Aborted {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("firestore SetState: %w", err)
	}

	state.Version++
	state.UpdatedAt = now
	return nil
}

// ─────────────────────────────────────────
// TaggedLog implementation
// ─────────────────────────────────────────

// Append reserves the next index and writes the message in one transaction.
func (s *LogStore) Append(ctx context.Context, id domain.SessionID, draft domain.Draft) (*domain.Message, error) {
	counter := s.counterDoc(id)
	var msg *domain.Message

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var c counterDocData
		snap, err := tx.Get(counter)
		switch {
		case err == nil:
			if err := snap.DataTo(&c); err != nil {
				return fmt.Errorf("decode log counter: %w", err)
			}
		case notFound(err):
		default:
			return err
		}

		msg = &domain.Message{
			Index:       int(c.Next),
			SessionID:   id,
			Role:        draft.Role,
			Text:        draft.Text,
			Attachments: append([]string(nil), draft.Attachments...),
			Tags:        append([]domain.Tag(nil), draft.Tags...),
			CreatedAt:   s.now(),
		}
		if err := tx.Create(s.messageDoc(id, msg.Index), messageToDoc(msg)); err != nil {
			return err
		}
		return tx.Set(counter, counterDocData{Next: c.Next + 1})
	})
	if err != nil {
		return nil, fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return msg, nil
}

func (s *LogStore) Get(ctx context.Context, id domain.SessionID, index int) (*domain.Message, error) {
	snap, err := s.messageDoc(id, index).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("message %d of session %s: %w", index, id, domain.ErrMessageNotFound)
		}
		return nil, fmt.Errorf("firestore GetMessage: %w", err)
	}

	var doc messageDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode messageDoc: %w", err)
	}
	return messageFromDoc(id, doc), nil
}

func (s *LogStore) All(ctx context.Context, id domain.SessionID) ([]*domain.Message, error) {
	iter := s.messagesCol(id).OrderBy("index", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListMessages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, messageFromDoc(id, doc))
	}
	return out, nil
}

// Annotate reads the message tags and writes them back with tag appended, in
// one transaction. Identical tags are kept, as in the other stores.
func (s *LogStore) Annotate(ctx context.Context, id domain.SessionID, index int, tag domain.Tag) error {
	ref := s.messageDoc(id, index)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode messageDoc: %w", err)
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "tags", Value: appendTagDoc(doc.Tags, tagToDoc(tag))},
		})
	})
	if err != nil {
		if notFound(err) {
			return fmt.Errorf("message %d of session %s: %w", index, id, domain.ErrMessageNotFound)
		}
		return fmt.Errorf("firestore AnnotateMessage: %w", err)
	}
	return nil
}

func appendTagDoc(tags []tagDoc, tag tagDoc) []tagDoc {
	out := make([]tagDoc, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag)
}

var (
	_ domain.TaggedLog  = (*LogStore)(nil)
	_ domain.StateStore = (*StateStore)(nil)
)
