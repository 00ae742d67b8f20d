package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PabloGalante/campfire/internal/domain"
)

const campQuestion = "The fire crackles. Do you want to start a quest, talk to someone at camp (\"talk <name>\"), or just rest?"

func setupText(world domain.World, character map[string]string) string {
	var b strings.Builder
	b.WriteString("You are the narrator of a cooperative role-playing game.\n")
	b.WriteString(world.Premise)
	b.WriteString("\n\nThe player character:\n")
	for _, f := range world.Fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.Label, character[f.Key])
	}
	b.WriteString("\nKeep replies short, vivid and in the second person.")
	return b.String()
}

func correctiveQuestion(f domain.CharacterField) string {
	return fmt.Sprintf("That %s can't be used in this story. %s", f.Label, f.Question)
}

func welcomeInstruction() string {
	return "Welcome the character to the campfire in two or three sentences. Mention who sits around the fire."
}

func campInstruction(choice string) string {
	return fmt.Sprintf("The player, resting at camp, says or does: %q. Narrate what happens in one or two sentences.", choice)
}

func unknownNPCText(name string, world domain.World) string {
	names := make([]string, 0, len(world.NPCs))
	for _, n := range world.NPCs {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return fmt.Sprintf("There is no one called %q at camp. You can talk to: %s.", name, strings.Join(names, ", "))
}

func questIntroInstruction(q *domain.Quest) string {
	return fmt.Sprintf("Start a new quest called %q. Describe where the character goes and what is at stake. Do not resolve anything yet.", q.Title)
}

func problemInstruction(n, total int) string {
	return fmt.Sprintf("Present obstacle %d of %d of the current quest. End on a moment that needs the character's decision.", n, total)
}

func problemQuestion(n int) string {
	return fmt.Sprintf("Obstacle %d: what do you do?", n)
}

func outcomeInstruction(answer string) string {
	return fmt.Sprintf("The character decided: %q. Narrate the consequence in two sentences.", answer)
}

func resolutionInstruction() string {
	return "Resolve the quest based on the character's decisions and describe what they bring back."
}

func outroInstruction() string {
	return "The character returns to camp. Close the quest in one sentence."
}

func summaryInstruction(q *domain.Quest) string {
	return fmt.Sprintf("Summarise the quest %q in at most three sentences for the chronicle. Mention the decisions taken.", q.Title)
}

func greetingInstruction(npc domain.NPC) string {
	return fmt.Sprintf("As %s, greet the character who just sat next to you.", npc.Name)
}

func replyInstruction(npc domain.NPC) string {
	return fmt.Sprintf("Answer the character's last message as %s. Stay in character.", npc.Name)
}

func farewellInstruction(npc domain.NPC) string {
	return fmt.Sprintf("The character leaves. Say goodbye as %s in one sentence.", npc.Name)
}

func personaText(npc domain.NPC) string {
	return fmt.Sprintf("You now speak as %s. %s", npc.Name, npc.Persona)
}
