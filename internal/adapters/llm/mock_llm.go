package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/PabloGalante/campfire/internal/domain"
)

// MockGenerator is a deterministic domain.Generator for local mode and tests.
// It echoes the instruction and the last player message.
type MockGenerator struct {
	mu    sync.Mutex
	calls []Prompt
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(_ context.Context, in domain.GenerateInput) (*domain.GenerateResult, error) {
	p := BuildPrompt(in)

	m.mu.Lock()
	m.calls = append(m.calls, p)
	m.mu.Unlock()

	text := fmt.Sprintf("[narrator] %s", p.Instruction)
	for i := len(p.History) - 1; i >= 0; i-- {
		if p.History[i].Role == domain.RoleUser {
			text += fmt.Sprintf(" (you said %q)", p.History[i].Text)
			break
		}
	}

	return &domain.GenerateResult{
		Drafts: []domain.Draft{{Role: domain.RoleAssistant, Text: text}},
	}, nil
}

// Calls returns the prompts seen so far.
func (m *MockGenerator) Calls() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.calls...)
}

var _ domain.Generator = (*MockGenerator)(nil)
