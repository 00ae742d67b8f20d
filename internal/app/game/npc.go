package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
)

var farewells = map[string]bool{
	"bye":      true,
	"goodbye":  true,
	"farewell": true,
	"leave":    true,
}

// Conversation is a free-form talk with one NPC. It waits for player messages
// without an Ask point and ends when the player says goodbye.
type Conversation struct {
	world domain.World
}

func NewConversation(world domain.World) *Conversation {
	return &Conversation{world: world}
}

func (c *Conversation) Name() string { return "npc" }

func (c *Conversation) Run(ctx context.Context, t *procedure.Turn) (procedure.Signal, error) {
	npc, ok := c.world.FindNPC(string(t.State.InConversationWith))
	if !ok {
		return procedure.Done, fmt.Errorf("%w: %s", domain.ErrUnknownNPC, t.State.InConversationWith)
	}
	target := window.ConversationTarget(npc.ID)

	if _, err := t.Emit(ctx, "persona", domain.Draft{
		Role: domain.RoleSystem,
		Text: personaText(npc),
		Tags: []domain.Tag{domain.InstructionTag(domain.InstructionNPCIntro)},
	}); err != nil {
		return procedure.Done, err
	}

	if _, err := t.Generate(ctx, "greeting", procedure.GenerateRequest{
		Instruction: greetingInstruction(npc),
		Target:      target,
	}); err != nil {
		return procedure.Done, err
	}

	reply, ok := t.TakeReply()
	if !ok {
		return procedure.Yield, nil
	}

	if isFarewell(reply.Text) {
		if _, err := t.Generate(ctx, "farewell", procedure.GenerateRequest{
			Instruction: farewellInstruction(npc),
			Target:      target,
		}); err != nil {
			return procedure.Done, err
		}
		t.State.InConversationWith = ""
		return procedure.Done, nil
	}

	if _, err := t.Generate(ctx, fmt.Sprintf("reply-%d", reply.Index), procedure.GenerateRequest{
		Instruction: replyInstruction(npc),
		Target:      target,
	}); err != nil {
		return procedure.Done, err
	}
	return procedure.Yield, nil
}

func isFarewell(text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if farewells[strings.Trim(w, ".,!?;:")] {
			return true
		}
	}
	return false
}
