package firestore

import (
	"testing"
	"time"

	"github.com/PabloGalante/campfire/internal/domain"
)

func TestStateDocKeepsProgressAndQuests(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idx := 4
	s := domain.NewSessionState("s1", now)
	s.Version = 3
	s.Flags[domain.FlagOnboarded] = true
	s.CurrentQuestID = "q1"
	s.AskCursor = "q-abc"
	s.AskMessageIndex = &idx
	s.Quests = []*domain.Quest{{ID: "q1", Title: "Bell", IntroSent: true, IntroMessageIndex: &idx}}
	p := s.ProgressFor("quest/q1")
	p.Answers["q-abc"] = "ring it"
	p.Emitted["intro"] = []int{2, 3}
	p.Emitted["loot"] = []int{}

	got := stateFromDoc("s1", stateToDoc(s))

	if got.Version != 3 || got.Stage() != domain.StageQuesting || got.AskCursor != "q-abc" {
		t.Fatalf("unexpected state %+v", got)
	}
	if got.AskMessageIndex == nil || *got.AskMessageIndex != 4 {
		t.Fatalf("ask message index lost")
	}
	q := got.Quest("q1")
	if q == nil || !q.IntroSent || q.IntroMessageIndex == nil || *q.IntroMessageIndex != 4 {
		t.Fatalf("quest lost: %+v", q)
	}
	gp := got.Progress["quest/q1"]
	if gp == nil || gp.Answers["q-abc"] != "ring it" || len(gp.Emitted["intro"]) != 2 {
		t.Fatalf("progress lost: %+v", gp)
	}
	if _, ok := gp.Emitted["loot"]; !ok {
		t.Fatalf("empty emitted step must survive")
	}
}

func TestTagDocKeepsValueKind(t *testing.T) {
	tags := []domain.Tag{
		domain.QuestTag("q1"),
		domain.TokenCountTag(12),
		domain.InventoryTag(map[string]string{"rope": "1"}),
		domain.InstructionTag(domain.InstructionSetup),
	}
	for _, tag := range tags {
		got := tagFromDoc(tagToDoc(tag))
		if got.Kind != tag.Kind || got.Name != tag.Name || got.Value.Kind != tag.Value.Kind {
			t.Fatalf("tag changed: %+v -> %+v", tag, got)
		}
	}
	if n, ok := (&domain.Message{Tags: []domain.Tag{tagFromDoc(tagToDoc(domain.TokenCountTag(12)))}}).CachedTokens(); !ok || n != 12 {
		t.Fatalf("token cache tag not readable after decode")
	}
}

func TestAppendTagDocKeepsDuplicates(t *testing.T) {
	tag := tagToDoc(domain.TokenCountTag(7))
	existing := make([]tagDoc, 1, 4)
	existing[0] = tag

	got := appendTagDoc(existing, tag)
	if len(got) != 2 || got[0].Int != 7 || got[1].Int != 7 {
		t.Fatalf("expected both identical tags, got %+v", got)
	}

	again := appendTagDoc(existing, tagToDoc(domain.QuestTag("q1")))
	if got[1].Kind != string(domain.TagTokens) || again[1].Kind != string(domain.TagQuest) {
		t.Fatalf("appends must not share backing storage: %+v / %+v", got, again)
	}
}
