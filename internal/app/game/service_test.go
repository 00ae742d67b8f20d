package game_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/campfire/internal/adapters/llm"
	"github.com/PabloGalante/campfire/internal/adapters/moderation"
	"github.com/PabloGalante/campfire/internal/adapters/storage/memory"
	"github.com/PabloGalante/campfire/internal/app/game"
	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
)

const sid = domain.SessionID("session-1")

type fixture struct {
	svc    *game.Service
	log    *memory.LogStore
	states *memory.StateStore
}

func newFixture() *fixture {
	log := memory.NewLogStore()
	states := memory.NewStateStore()
	svc := game.NewService(game.Deps{
		Log:       log,
		States:    states,
		Generator: llm.NewMockGenerator(),
		Moderator: moderation.NewBlocklist([]string{"darnit"}),
		World:     domain.DefaultWorld(),
		MaxTokens: 2048,
	})
	return &fixture{svc: svc, log: log, states: states}
}

func (f *fixture) turn(t *testing.T, text string) *game.TurnOutput {
	t.Helper()
	out, err := f.svc.RunTurn(context.Background(), sid, text)
	if err != nil {
		t.Fatalf("RunTurn(%q) failed: %v", text, err)
	}
	return out
}

func (f *fixture) onboard(t *testing.T) {
	t.Helper()
	for _, text := range []string{"Hi", "Rho", "Ranger of the north", "Tall and quiet", "Find her brother"} {
		f.turn(t, text)
	}
}

func lastText(out *game.TurnOutput) string {
	if len(out.Outgoing) == 0 {
		return ""
	}
	return out.Outgoing[len(out.Outgoing)-1].Text
}

func TestFreshOnboarding(t *testing.T) {
	f := newFixture()

	out := f.turn(t, "Hi")
	if out.Status != procedure.StatusSuspended || lastText(out) != "What is your character's name?" {
		t.Fatalf("expected name question, got %s %q", out.Status, lastText(out))
	}

	out = f.turn(t, "Rho")
	if out.Status != procedure.StatusSuspended || lastText(out) != "What is your character's background?" {
		t.Fatalf("expected background question, got %s %q", out.Status, lastText(out))
	}

	f.turn(t, "Ranger of the north")
	f.turn(t, "Tall and quiet")
	out = f.turn(t, "Find her brother")
	if out.Status != procedure.StatusCompleted {
		t.Fatalf("expected onboarding to complete, got %s (%s)", out.Status, out.Error)
	}
	if out.Stage != domain.StageCamp {
		t.Fatalf("expected camp stage, got %s", out.Stage)
	}

	state, msgs, err := f.svc.Timeline(context.Background(), sid)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if state.Character["name"] != "Rho" || state.Character["motivation"] != "Find her brother" {
		t.Fatalf("unexpected character %v", state.Character)
	}
	var setups int
	for _, m := range msgs {
		if m.HasTag(domain.TagRef{Kind: domain.TagInstruction, Name: domain.InstructionSetup}) {
			setups++
			if !strings.Contains(m.Text, "Rho") {
				t.Fatalf("setup message should describe the character")
			}
		}
	}
	if setups != 1 {
		t.Fatalf("expected exactly one setup message, got %d", setups)
	}
}

func TestStartSessionAsksFirstQuestion(t *testing.T) {
	f := newFixture()
	out, err := f.svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if out.SessionID == "" || lastText(out) != "What is your character's name?" {
		t.Fatalf("unexpected start output %+v", out)
	}
}

func TestRepeatedEmptyTurnsRepeatTheQuestion(t *testing.T) {
	f := newFixture()
	first := f.turn(t, "")
	second := f.turn(t, "")

	if lastText(first) != lastText(second) {
		t.Fatalf("expected same question, got %q and %q", lastText(first), lastText(second))
	}
	msgs, _ := f.log.All(context.Background(), sid)
	if len(msgs) != 1 {
		t.Fatalf("expected the question logged once, got %d messages", len(msgs))
	}
}

func TestRejectedNameGetsCorrectiveQuestion(t *testing.T) {
	f := newFixture()
	f.turn(t, "Hi")

	out := f.turn(t, "Darnit")
	if out.Status != procedure.StatusSuspended || !strings.HasPrefix(lastText(out), "That name can't be used") {
		t.Fatalf("expected corrective question, got %q", lastText(out))
	}

	out = f.turn(t, "Rho")
	if lastText(out) != "What is your character's background?" {
		t.Fatalf("expected to move on to background, got %q", lastText(out))
	}

	state, _, _ := f.svc.Timeline(context.Background(), sid)
	if state.Character["name"] != "Rho" {
		t.Fatalf("expected name Rho, got %q", state.Character["name"])
	}
}

func TestQuestRunsToCompletion(t *testing.T) {
	f := newFixture()
	f.onboard(t)
	ctx := context.Background()

	out := f.turn(t, "quest The Lost Lamb")
	if out.Status != procedure.StatusSuspended || out.Stage != domain.StageQuesting {
		t.Fatalf("expected quest to suspend on first obstacle, got %s/%s (%s)", out.Status, out.Stage, out.Error)
	}
	if lastText(out) != "Obstacle 1: what do you do?" {
		t.Fatalf("unexpected question %q", lastText(out))
	}

	state, _, _ := f.svc.Timeline(ctx, sid)
	quest, err := state.CurrentQuest()
	if err != nil {
		t.Fatalf("expected a current quest: %v", err)
	}
	if quest.Title != "The Lost Lamb" || !quest.IntroSent || quest.IntroMessageIndex == nil {
		t.Fatalf("unexpected quest %+v", quest)
	}

	w, err := f.svc.BuildWindow(ctx, sid, window.QuestTarget(quest.ID), 0)
	if err != nil {
		t.Fatalf("BuildWindow failed: %v", err)
	}
	var anchored bool
	for _, e := range w.Entries {
		if e.Tier == window.TierAnchor && e.Index == *quest.IntroMessageIndex {
			anchored = true
		}
	}
	if !anchored {
		t.Fatalf("quest intro should anchor the quest window: %+v", w.Entries)
	}

	out = f.turn(t, "I search the barn")
	if lastText(out) != "Obstacle 2: what do you do?" {
		t.Fatalf("expected second obstacle, got %q", lastText(out))
	}

	out = f.turn(t, "I follow the tracks")
	if out.Status != procedure.StatusCompleted || out.Stage != domain.StageCamp {
		t.Fatalf("expected quest to complete back at camp, got %s/%s (%s)", out.Status, out.Stage, out.Error)
	}

	state, _, _ = f.svc.Timeline(ctx, sid)
	archived := state.ArchivedQuests()
	if len(archived) != 1 {
		t.Fatalf("expected one archived quest, got %d", len(archived))
	}
	q := archived[0]
	if len(q.ProblemAnswers) != 2 || q.ProblemAnswers[1] != "I follow the tracks" {
		t.Fatalf("unexpected answers %v", q.ProblemAnswers)
	}
	if !q.OutroSent || q.SummaryMessageIndex == nil {
		t.Fatalf("quest should have outro and summary: %+v", q)
	}

	summary, err := f.log.Get(ctx, sid, *q.SummaryMessageIndex)
	if err != nil {
		t.Fatalf("Get summary failed: %v", err)
	}
	if !summary.HasTag(domain.TagRef{Kind: domain.TagSummary}) || !summary.CorrelatedWith(domain.TagQuest, string(q.ID)) {
		t.Fatalf("summary message is missing its tags: %+v", summary.Tags)
	}

	inv, err := f.svc.LatestInventory(ctx, sid)
	if err != nil {
		t.Fatalf("LatestInventory failed: %v", err)
	}
	if inv["trophy:"+string(q.ID)] != "The Lost Lamb" {
		t.Fatalf("expected trophy in inventory, got %v", inv)
	}
}

func TestTalkToNPCAndLeave(t *testing.T) {
	f := newFixture()
	f.onboard(t)

	out := f.turn(t, "talk to Brannoc")
	if out.Status != procedure.StatusSuspended || out.Stage != domain.StageInConversation {
		t.Fatalf("expected conversation, got %s/%s (%s)", out.Status, out.Stage, out.Error)
	}

	out = f.turn(t, "Can you fix my sword?")
	if out.Status != procedure.StatusSuspended || len(out.Outgoing) != 1 {
		t.Fatalf("expected one NPC reply, got %+v", out.Outgoing)
	}
	if !out.Outgoing[0].CorrelatedWith(domain.TagConversation, "smith") {
		t.Fatalf("reply should be correlated with the smith")
	}

	out = f.turn(t, "Goodbye!")
	if out.Status != procedure.StatusCompleted || out.Stage != domain.StageCamp {
		t.Fatalf("expected back at camp, got %s/%s", out.Status, out.Stage)
	}
}

func TestTalkToUnknownNPCStaysAtCamp(t *testing.T) {
	f := newFixture()
	f.onboard(t)

	out := f.turn(t, "talk to Zed")
	if out.Stage != domain.StageCamp || !strings.Contains(lastText(out), "no one called") {
		t.Fatalf("unexpected output %s %q", out.Stage, lastText(out))
	}
}

func TestFaultMovesSessionToErrorStage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	state, _ := f.states.Get(ctx, sid)
	state.Flags[domain.FlagOnboarded] = true
	state.InConversationWith = "ghost"
	if err := f.states.Set(ctx, state); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	out := f.turn(t, "hello?")
	if out.Status != procedure.StatusFailed || out.Stage != domain.StageError {
		t.Fatalf("expected failure into error stage, got %s/%s", out.Status, out.Stage)
	}
	if !strings.Contains(out.Error, domain.ErrUnknownNPC.Error()) {
		t.Fatalf("unexpected error %q", out.Error)
	}

	before, _ := f.log.All(ctx, sid)
	out = f.turn(t, "anyone?")
	after, _ := f.log.All(ctx, sid)
	if out.Status != procedure.StatusFailed || len(after) != len(before) {
		t.Fatalf("error stage must not run or log anything")
	}

	cleared, err := f.svc.ClearError(ctx, sid)
	if err != nil {
		t.Fatalf("ClearError failed: %v", err)
	}
	if cleared.Error != nil || cleared.Stage() == domain.StageError {
		t.Fatalf("expected error cleared")
	}
}

type conflictingStore struct {
	*memory.StateStore
}

func (c conflictingStore) Set(context.Context, *domain.SessionState) error {
	return domain.ErrVersionConflict
}

func TestVersionConflictIsReturned(t *testing.T) {
	svc := game.NewService(game.Deps{
		Log:       memory.NewLogStore(),
		States:    conflictingStore{memory.NewStateStore()},
		Generator: llm.NewMockGenerator(),
		World:     domain.DefaultWorld(),
	})

	_, err := svc.RunTurn(context.Background(), sid, "Hi")
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	f := newFixture()
	if _, _, err := f.svc.Timeline(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
