package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
)

// Camp is the hub between quests and conversations.
type Camp struct {
	world domain.World
	newID func() string
}

func NewCamp(world domain.World) *Camp {
	return &Camp{world: world, newID: uuid.NewString}
}

func (c *Camp) Name() string { return "camp" }

// Run reads the player's choice. Starting a quest or talking to an NPC
// reroutes the turn; anything else gets a short narrated reply.
func (c *Camp) Run(ctx context.Context, t *procedure.Turn) (procedure.Signal, error) {
	choice, ok, err := c.choice(ctx, t)
	if err != nil || !ok {
		return yield(err)
	}

	action, arg := parseCampChoice(choice)
	switch action {
	case campQuest:
		c.startQuest(t, arg)
		return procedure.Reroute, nil

	case campTalk:
		npc, found := c.world.FindNPC(arg)
		if !found {
			_, err := t.Emit(ctx, "unknown-npc", domain.Draft{
				Role: domain.RoleAssistant,
				Text: unknownNPCText(arg, c.world),
			})
			return procedure.Done, err
		}
		t.State.InConversationWith = npc.ID
		return procedure.Reroute, nil

	default:
		_, err := t.Generate(ctx, "reply", procedure.GenerateRequest{
			Instruction: campInstruction(choice),
			Target:      window.CampTarget(),
		})
		return procedure.Done, err
	}
}

// choice takes a fresh player message directly when nothing is pending, so the
// first message at camp is not lost to the camp question.
func (c *Camp) choice(ctx context.Context, t *procedure.Turn) (string, bool, error) {
	if t.State.AskCursor == "" {
		if reply, ok := t.TakeReply(); ok {
			return reply.Text, true, nil
		}
	}
	return t.Ask(ctx, procedure.Question{Text: campQuestion, Suffix: "camp"})
}

func (c *Camp) startQuest(t *procedure.Turn, title string) {
	n := len(t.State.Quests) + 1
	if title == "" {
		title = fmt.Sprintf("Quest %d", n)
	}
	q := &domain.Quest{
		ID:        domain.QuestID(c.newID()),
		Title:     title,
		StartedAt: t.Now(),
	}
	t.State.Quests = append(t.State.Quests, q)
	t.State.CurrentQuestID = q.ID
}

type campAction int

const (
	campChat campAction = iota
	campQuest
	campTalk
)

// parseCampChoice understands "quest [title]" and "talk [to] <name>".
func parseCampChoice(text string) (campAction, string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return campChat, ""
	}
	head := strings.ToLower(fields[0])
	rest := fields[1:]

	switch head {
	case "quest", "adventure":
		return campQuest, strings.Join(rest, " ")
	case "start":
		if len(rest) > 0 && strings.EqualFold(rest[0], "quest") {
			return campQuest, strings.Join(rest[1:], " ")
		}
	case "talk", "speak":
		if len(rest) > 0 && (strings.EqualFold(rest[0], "to") || strings.EqualFold(rest[0], "with")) {
			rest = rest[1:]
		}
		if len(rest) > 0 {
			return campTalk, strings.Join(rest, " ")
		}
	}
	return campChat, ""
}
