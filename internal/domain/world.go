package domain

import "strings"

// CharacterField is one onboarding question.
type CharacterField struct {
	Key      string `json:"key" yaml:"key"`
	Label    string `json:"label" yaml:"label"`
	Question string `json:"question" yaml:"question"`
}

// NPC is a character the player can talk to at camp.
type NPC struct {
	ID      NPCID  `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Persona string `json:"persona" yaml:"persona"`
}

// World is the static game content.
type World struct {
	Premise          string           `json:"premise" yaml:"premise"`
	Fields           []CharacterField `json:"fields" yaml:"fields"`
	NPCs             []NPC            `json:"npcs" yaml:"npcs"`
	ProblemsPerQuest int              `json:"problems_per_quest" yaml:"problems_per_quest"`
}

// FindNPC matches an NPC by id or name, case-insensitively.
func (w World) FindNPC(ref string) (NPC, bool) {
	ref = strings.TrimSpace(ref)
	for _, n := range w.NPCs {
		if strings.EqualFold(string(n.ID), ref) || strings.EqualFold(n.Name, ref) {
			return n, true
		}
	}
	return NPC{}, false
}

// DefaultWorld is used when no settings file provides one.
func DefaultWorld() World {
	return World{
		Premise: "A small band of travellers shares a campfire at the edge of the Greywood. " +
			"Beyond the firelight, old roads lead to ruins, villages and trouble.",
		Fields: []CharacterField{
			{Key: "name", Label: "name", Question: "What is your character's name?"},
			{Key: "background", Label: "background", Question: "What is your character's background?"},
			{Key: "description", Label: "description", Question: "How would others describe your character?"},
			{Key: "motivation", Label: "motivation", Question: "What drives your character to adventure?"},
		},
		NPCs: []NPC{
			{ID: "smith", Name: "Brannoc", Persona: "Brannoc is the camp's gruff blacksmith. He speaks little, values honest work and distrusts magic."},
			{ID: "healer", Name: "Ysolde", Persona: "Ysolde is a soft-spoken herbalist who knows every plant of the Greywood and most of its secrets."},
		},
		ProblemsPerQuest: 2,
	}
}
