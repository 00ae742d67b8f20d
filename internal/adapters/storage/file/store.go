// Package file persists session state and logs as CBOR files on disk, for
// single-process deployments that need to survive restarts.
package file

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/PabloGalante/campfire/internal/domain"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("file store: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("file store: CBOR decoder initialization failed: " + err.Error())
	}
}

// Store keeps one state file and one log file per session under baseDir.
// State writes replace the whole file through a temp file and a rename; log
// writes append a single record.
type Store struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
	// sizes caches the message count of each session log.
	sizes map[domain.SessionID]int
}

// StateStore is the domain.StateStore view of a Store.
type StateStore struct{ *Store }

// LogStore is the domain.TaggedLog view of a Store.
type LogStore struct{ *Store }

// NewStore creates a file-backed store rooted at the provided directory.
func NewStore(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("base directory must be provided")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &Store{baseDir: baseDir, now: time.Now, sizes: make(map[domain.SessionID]int)}, nil
}

func (s *Store) States() *StateStore { return &StateStore{s} }
func (s *Store) Log() *LogStore      { return &LogStore{s} }

// ─────────────────────────────────────────
// StateStore implementation
// ─────────────────────────────────────────

func (s *StateStore) Get(_ context.Context, id domain.SessionID) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state domain.SessionState
	found, err := s.read(s.statePath(id), &state)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.NewSessionState(id, s.now()), nil
	}
	if state.Flags == nil {
		state.Flags = make(map[string]bool)
	}
	if state.Character == nil {
		state.Character = make(map[string]string)
	}
	if state.Progress == nil {
		state.Progress = make(map[string]*domain.Progress)
	}
	return &state, nil
}

func (s *StateStore) Set(_ context.Context, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored domain.SessionState
	found, err := s.read(s.statePath(state.SessionID), &stored)
	if err != nil {
		return err
	}
	var current int64
	if found {
		current = stored.Version
	}
	if state.Version != current {
		return domain.ErrVersionConflict
	}

	next := state.Clone()
	next.Version++
	next.UpdatedAt = s.now()
	if err := s.write(s.statePath(state.SessionID), next); err != nil {
		return err
	}

	state.Version = next.Version
	state.UpdatedAt = next.UpdatedAt
	return nil
}

// ─────────────────────────────────────────
// TaggedLog implementation
// ─────────────────────────────────────────

// logRecord is one entry of a log file. A log file is a stream of records
// that is only ever appended to: a message, or a tag added to an earlier
// message.
type logRecord struct {
	Message  *domain.Message `cbor:"1,keyasint,omitempty"`
	Annotate *annotation     `cbor:"2,keyasint,omitempty"`
}

type annotation struct {
	Index int        `cbor:"1,keyasint"`
	Tag   domain.Tag `cbor:"2,keyasint"`
}

func (s *LogStore) Append(_ context.Context, id domain.SessionID, draft domain.Draft) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.logSize(id)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		Index:       n,
		SessionID:   id,
		Role:        draft.Role,
		Text:        draft.Text,
		Attachments: append([]string(nil), draft.Attachments...),
		Tags:        append([]domain.Tag(nil), draft.Tags...),
		CreatedAt:   s.now(),
	}
	if err := s.appendRecord(id, logRecord{Message: msg}); err != nil {
		return nil, err
	}
	s.sizes[id] = n + 1
	return msg, nil
}

func (s *LogStore) Get(_ context.Context, id domain.SessionID, index int) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, err := s.readLog(id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(msgs) {
		return nil, fmt.Errorf("message %d of session %s: %w", index, id, domain.ErrMessageNotFound)
	}
	return msgs[index], nil
}

func (s *LogStore) All(_ context.Context, id domain.SessionID) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLog(id)
}

func (s *LogStore) Annotate(_ context.Context, id domain.SessionID, index int, tag domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.logSize(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= n {
		return fmt.Errorf("message %d of session %s: %w", index, id, domain.ErrMessageNotFound)
	}
	return s.appendRecord(id, logRecord{Annotate: &annotation{Index: index, Tag: tag}})
}

// ─────────────────────────────────────────
// Files
// ─────────────────────────────────────────

// logSize returns the number of messages in the session log. It is cached
// after the first read; the mutex makes the cache authoritative.
func (s *Store) logSize(id domain.SessionID) (int, error) {
	if n, ok := s.sizes[id]; ok {
		return n, nil
	}
	msgs, err := s.readLog(id)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}

// readLog replays the record stream. A record cut short by a crash mid-write
// is dropped and the file truncated to the last complete record.
func (s *Store) readLog(id domain.SessionID) ([]*domain.Message, error) {
	path := s.logPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.sizes[id] = 0
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	var msgs []*domain.Message
	dec := decMode.NewDecoder(bytes.NewReader(data))
	for {
		var rec logRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if err := os.Truncate(path, int64(dec.NumBytesRead())); err != nil {
				return nil, fmt.Errorf("truncate %s: %w", filepath.Base(path), err)
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}

		switch {
		case rec.Message != nil:
			rec.Message.Index = len(msgs)
			rec.Message.SessionID = id
			msgs = append(msgs, rec.Message)
		case rec.Annotate != nil:
			a := rec.Annotate
			if a.Index < 0 || a.Index >= len(msgs) {
				return nil, fmt.Errorf("decode %s: annotation of unknown message %d", filepath.Base(path), a.Index)
			}
			msgs[a.Index].Tags = append(msgs[a.Index].Tags, a.Tag)
		}
	}

	s.sizes[id] = len(msgs)
	return msgs, nil
}

func (s *Store) appendRecord(id domain.SessionID, rec logRecord) error {
	path := s.logPath(id)
	data, err := encMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		delete(s.sizes, id)
		return fmt.Errorf("append %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		delete(s.sizes, id)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) read(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func (s *Store) write(path string, v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(s.baseDir, "campfire-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) statePath(id domain.SessionID) string {
	return filepath.Join(s.baseDir, fileKey(id)+".state.cbor")
}

func (s *Store) logPath(id domain.SessionID) string {
	return filepath.Join(s.baseDir, fileKey(id)+".log.cbor")
}

// fileKey hex-encodes the session id, so distinct ids never share a file,
// even on case-insensitive filesystems.
func fileKey(id domain.SessionID) string {
	return "s" + hex.EncodeToString([]byte(id))
}

var (
	_ domain.TaggedLog  = (*LogStore)(nil)
	_ domain.StateStore = (*StateStore)(nil)
)
