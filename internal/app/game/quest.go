package game

import (
	"context"
	"fmt"

	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
)

// Quest runs the current quest: intro, a fixed number of obstacles, the
// resolution, the outro and the chronicle summary.
type Quest struct {
	world domain.World
}

func NewQuest(world domain.World) *Quest {
	return &Quest{world: world}
}

func (q *Quest) Name() string { return "quest" }

func (q *Quest) Run(ctx context.Context, t *procedure.Turn) (procedure.Signal, error) {
	quest, err := t.State.CurrentQuest()
	if err != nil {
		return procedure.Done, err
	}
	target := window.QuestTarget(quest.ID)

	if !quest.IntroSent {
		msgs, err := t.Generate(ctx, "intro", procedure.GenerateRequest{
			Instruction: questIntroInstruction(quest),
			Target:      target,
			Tags:        []domain.Tag{domain.InstructionTag(domain.InstructionQuestIntro)},
		})
		if err != nil {
			return procedure.Done, err
		}
		quest.IntroSent = true
		quest.IntroMessageIndex = indexOf(msgs[0])
	}

	total := q.problems()
	for i := 0; i < total; i++ {
		n := i + 1
		if i >= len(quest.ProblemAnswers) {
			if _, err := t.Generate(ctx, fmt.Sprintf("problem-%d", n), procedure.GenerateRequest{
				Instruction: problemInstruction(n, total),
				Target:      target,
			}); err != nil {
				return procedure.Done, err
			}
		}

		answer, ok, err := t.Ask(ctx, procedure.Question{
			Text:   problemQuestion(n),
			Suffix: fmt.Sprintf("quest:%s:problem:%d", quest.ID, n),
		})
		if err != nil || !ok {
			return yield(err)
		}

		if i == len(quest.ProblemAnswers) {
			quest.ProblemAnswers = append(quest.ProblemAnswers, answer)
		}
		if _, err := t.Generate(ctx, fmt.Sprintf("outcome-%d", n), procedure.GenerateRequest{
			Instruction: outcomeInstruction(answer),
			Target:      target,
		}); err != nil {
			return procedure.Done, err
		}
	}

	if _, err := t.Generate(ctx, "resolution", procedure.GenerateRequest{
		Instruction: resolutionInstruction(),
		Target:      target,
	}); err != nil {
		return procedure.Done, err
	}

	if err := q.recordLoot(ctx, t, quest); err != nil {
		return procedure.Done, err
	}

	if !quest.OutroSent {
		if _, err := t.Generate(ctx, "outro", procedure.GenerateRequest{
			Instruction: outroInstruction(),
			Target:      target,
		}); err != nil {
			return procedure.Done, err
		}
		quest.OutroSent = true
	}

	summary, err := t.Generate(ctx, "summary", procedure.GenerateRequest{
		Instruction: summaryInstruction(quest),
		Target:      target,
		Tags:        []domain.Tag{domain.SummaryTag()},
	})
	if err != nil {
		return procedure.Done, err
	}
	quest.SummaryMessageIndex = indexOf(summary[0])

	quest.Archived = true
	quest.ArchivedAt = t.Now()
	t.State.CurrentQuestID = ""
	return procedure.Done, nil
}

func (q *Quest) problems() int {
	if q.world.ProblemsPerQuest <= 0 {
		return 1
	}
	return q.world.ProblemsPerQuest
}

// recordLoot adds the quest trophy to the latest inventory snapshot.
func (q *Quest) recordLoot(ctx context.Context, t *procedure.Turn, quest *domain.Quest) error {
	return t.Once(ctx, "loot", func(ctx context.Context) error {
		history, err := t.History(ctx)
		if err != nil {
			return err
		}
		items := latestInventory(history)
		items["trophy:"+string(quest.ID)] = quest.Title
		_, err = t.Emit(ctx, "inventory", domain.Draft{
			Role: domain.RoleSystem,
			Text: fmt.Sprintf("Inventory updated: trophy of %q.", quest.Title),
			Tags: []domain.Tag{domain.InventoryTag(items)},
		})
		return err
	})
}

func indexOf(m *domain.Message) *int {
	i := m.Index
	return &i
}
