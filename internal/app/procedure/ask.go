package procedure

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/campfire/internal/domain"
)

// Ask blocks the procedure on q until the player answers.
//
// It returns the answer and true when the Ask point is resolved: either it
// was answered on an earlier pass, or the cursor points at q and the turn
// carries an unconsumed reply. Otherwise q is put in front of the player, the
// cursor is set and Ask returns false; the caller must then return Yield.
func (t *Turn) Ask(ctx context.Context, q Question) (string, bool, error) {
	key := q.Key()
	p := t.progress()
	if ans, ok := p.Answers[key]; ok {
		return ans, true, nil
	}

	if t.State.AskCursor == key {
		if reply, ok := t.TakeReply(); ok {
			p.Answers[key] = reply.Text
			t.State.ClearCursor()
			return reply.Text, true, nil
		}
		resumed, err := t.resuspend(ctx)
		if err != nil || resumed {
			return "", false, err
		}
	}

	return "", false, t.suspend(ctx, key, q)
}

// AskValidated is Ask with a moderation check on the answer. A rejected
// reply is marked excluded in the log, nothing is memoised and corrective is
// asked instead. An accepted reply to corrective resolves this Ask point.
func (t *Turn) AskValidated(ctx context.Context, q, corrective Question) (string, bool, error) {
	key := q.Key()
	corrective.Suffix = corrective.Suffix + "|retry:" + key
	retryKey := corrective.Key()

	p := t.progress()
	if ans, ok := p.Answers[key]; ok {
		return ans, true, nil
	}

	if t.State.AskCursor == key || t.State.AskCursor == retryKey {
		if reply, ok := t.TakeReply(); ok {
			if t.env.allowed(ctx, reply.Text) {
				p.Answers[key] = reply.Text
				t.State.ClearCursor()
				return reply.Text, true, nil
			}
			if err := t.env.Log.Annotate(ctx, t.SessionID(), reply.Index, domain.ExcludedTag("moderation")); err != nil {
				return "", false, fmt.Errorf("exclude rejected reply: %w", err)
			}
			t.State.ClearCursor()
			return "", false, t.suspend(ctx, retryKey, corrective)
		}
		resumed, err := t.resuspend(ctx)
		if err != nil || resumed {
			return "", false, err
		}
	}

	return "", false, t.suspend(ctx, key, q)
}

// suspend appends q and points the cursor at it.
func (t *Turn) suspend(ctx context.Context, key string, q Question) error {
	m, err := t.append(ctx, domain.Draft{
		Role:        domain.RoleAssistant,
		Text:        q.Text,
		Attachments: q.Attachments,
		Tags:        []domain.Tag{domain.AskTag(key)},
	})
	if err != nil {
		return fmt.Errorf("append question: %w", err)
	}
	idx := m.Index
	t.State.AskCursor = key
	t.State.AskMessageIndex = &idx
	return nil
}

// resuspend repeats the pending question without appending it again. It
// reports false when the question message cannot be found.
func (t *Turn) resuspend(ctx context.Context) (bool, error) {
	if t.State.AskMessageIndex == nil {
		return false, nil
	}
	m, err := t.env.Log.Get(ctx, t.SessionID(), *t.State.AskMessageIndex)
	if errors.Is(err, domain.ErrMessageNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pending question: %w", err)
	}
	t.outgoing = append(t.outgoing, m)
	return true, nil
}
