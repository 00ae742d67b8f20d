package chronicle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloGalante/campfire/internal/adapters/storage/memory"
	"github.com/PabloGalante/campfire/internal/app/chronicle"
	"github.com/PabloGalante/campfire/internal/domain"
)

func TestListQuestsNewestFirstWithSummaries(t *testing.T) {
	ctx := context.Background()
	states := memory.NewStateStore()
	log := memory.NewLogStore()
	sid := domain.SessionID("s1")

	summary, err := log.Append(ctx, sid, domain.Draft{
		Role: domain.RoleAssistant,
		Text: "Rho found the lamb.",
		Tags: []domain.Tag{domain.SummaryTag(), domain.QuestTag("q1")},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	idx := summary.Index

	state, _ := states.Get(ctx, sid)
	now := time.Now()
	state.Quests = []*domain.Quest{
		{ID: "q1", Title: "The Lost Lamb", Archived: true, SummaryMessageIndex: &idx, ProblemAnswers: []string{"search"}, ArchivedAt: now},
		{ID: "q2", Title: "The Bell", Archived: true, ArchivedAt: now},
		{ID: "q3", Title: "Ongoing"},
	}
	if err := states.Set(ctx, state); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	svc := chronicle.NewService(states, log)
	entries, err := svc.ListQuests(ctx, sid, 0)
	if err != nil {
		t.Fatalf("ListQuests failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 archived quests, got %d", len(entries))
	}
	if entries[0].QuestID != "q2" || entries[1].QuestID != "q1" {
		t.Fatalf("expected newest first, got %s, %s", entries[0].QuestID, entries[1].QuestID)
	}
	if entries[1].Summary != "Rho found the lamb." || entries[1].Answers[0] != "search" {
		t.Fatalf("unexpected entry %+v", entries[1])
	}

	limited, _ := svc.ListQuests(ctx, sid, 1)
	if len(limited) != 1 || limited[0].QuestID != "q2" {
		t.Fatalf("expected limit to keep newest quest only")
	}
}

func TestListQuestsUnknownSession(t *testing.T) {
	svc := chronicle.NewService(memory.NewStateStore(), memory.NewLogStore())
	if _, err := svc.ListQuests(context.Background(), "nope", 10); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
