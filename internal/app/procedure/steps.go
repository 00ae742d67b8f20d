package procedure

import (
	"context"
	"fmt"

	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
)

// Once runs fn the first time step is reached in the current scope. Later
// passes skip it.
func (t *Turn) Once(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	p := t.progress()
	if _, done := p.Emitted[step]; done {
		return nil
	}
	if err := fn(ctx); err != nil {
		return err
	}
	p.Emitted[step] = []int{}
	return nil
}

// Emit appends drafts once per step. On replay it returns the messages
// appended on the first pass, read back from the log.
func (t *Turn) Emit(ctx context.Context, step string, drafts ...domain.Draft) ([]*domain.Message, error) {
	if msgs, ok, err := t.replayed(ctx, step); ok || err != nil {
		return msgs, err
	}
	return t.record(ctx, step, drafts)
}

// GenerateRequest describes one generation step.
type GenerateRequest struct {
	// Instruction is passed to the generator but never logged.
	Instruction string
	Target      window.Target
	// Tags are added to the generated messages on top of the procedure tags.
	Tags []domain.Tag
}

// Generate builds the context window for req.Target, calls the generator and
// appends its drafts. Like Emit it runs once per step.
func (t *Turn) Generate(ctx context.Context, step string, req GenerateRequest) ([]*domain.Message, error) {
	if msgs, ok, err := t.replayed(ctx, step); ok || err != nil {
		return msgs, err
	}

	w, err := t.env.Window.Build(ctx, t.SessionID(), req.Target, t.env.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("build window: %w", err)
	}

	res, err := t.env.Generator.Generate(ctx, domain.GenerateInput{
		SessionID:   t.SessionID(),
		Messages:    w.Messages,
		Instruction: req.Instruction,
	})
	if err == nil && (res == nil || len(res.Drafts) == 0) {
		err = domain.ErrEmptyGeneration
	}
	t.env.Metrics.RecordGeneration(err)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", step, err)
	}

	drafts := make([]domain.Draft, len(res.Drafts))
	for i, d := range res.Drafts {
		if d.Role == "" {
			d.Role = domain.RoleAssistant
		}
		d.Tags = append(append([]domain.Tag(nil), d.Tags...), req.Tags...)
		drafts[i] = d
	}
	return t.record(ctx, step, drafts)
}

func (t *Turn) replayed(ctx context.Context, step string) ([]*domain.Message, bool, error) {
	indices := t.progress().Emitted[step]
	if len(indices) == 0 {
		return nil, false, nil
	}
	msgs := make([]*domain.Message, 0, len(indices))
	for _, i := range indices {
		m, err := t.env.Log.Get(ctx, t.SessionID(), i)
		if err != nil {
			return nil, true, fmt.Errorf("replay step %s: %w", step, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, true, nil
}

// record marks step as emitted only once every draft is in the log, so a
// failed append leaves the step to run again after the error is cleared.
func (t *Turn) record(ctx context.Context, step string, drafts []domain.Draft) ([]*domain.Message, error) {
	msgs := make([]*domain.Message, 0, len(drafts))
	indices := make([]int, 0, len(drafts))
	for _, d := range drafts {
		m, err := t.append(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("emit %s: %w", step, err)
		}
		indices = append(indices, m.Index)
		msgs = append(msgs, m)
	}
	t.progress().Emitted[step] = indices
	return msgs, nil
}
