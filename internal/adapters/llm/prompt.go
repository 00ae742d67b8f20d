package llm

import (
	"strings"

	"github.com/PabloGalante/campfire/internal/domain"
)

const narratorRules = `
You are the narrator of "Campfire", a cooperative text role-playing game.

Rules:
- Stay inside the fiction. Never mention that you are a model or that this is a prompt.
- Follow the narrator instruction at the end of the conversation exactly.
- Keep each reply short: two to five sentences unless told otherwise.
- Never decide for the player character: describe the world, let the player act.
- Keep the story suitable for a general audience.
`

// PromptTurn is one history entry, already mapped to user/model roles.
type PromptTurn struct {
	Role domain.Role
	Text string
}

// Prompt is a generation request laid out for a chat model: system text from
// the instruction messages of the window, then the exchanges, then the
// transient narrator instruction.
type Prompt struct {
	System      string
	History     []PromptTurn
	Instruction string
}

// BuildPrompt lays out a context window for a chat model.
func BuildPrompt(in domain.GenerateInput) Prompt {
	var system strings.Builder
	system.WriteString(strings.TrimSpace(narratorRules))

	var history []PromptTurn
	for _, m := range in.Messages {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		if m.Role == domain.RoleSystem {
			system.WriteString("\n\n")
			system.WriteString(text)
			continue
		}
		history = append(history, PromptTurn{Role: m.Role, Text: text})
	}

	return Prompt{
		System:      system.String(),
		History:     history,
		Instruction: strings.TrimSpace(in.Instruction),
	}
}

// InstructionText wraps the narrator instruction as the final user content.
func (p Prompt) InstructionText() string {
	if p.Instruction == "" {
		return "Narrator instruction: continue the story."
	}
	return "Narrator instruction: " + p.Instruction
}
