package game

import (
	"context"

	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/app/window"
	"github.com/PabloGalante/campfire/internal/domain"
)

// Onboarding asks for every character field, writes the setup instruction
// and hands the session to camp.
type Onboarding struct {
	world domain.World
}

func NewOnboarding(world domain.World) *Onboarding {
	return &Onboarding{world: world}
}

func (o *Onboarding) Name() string { return "onboarding" }

func (o *Onboarding) Run(ctx context.Context, t *procedure.Turn) (procedure.Signal, error) {
	for _, f := range o.world.Fields {
		suffix := "field:" + f.Key
		v, ok, err := t.AskValidated(ctx,
			procedure.Question{Text: f.Question, Suffix: suffix},
			procedure.Question{Text: correctiveQuestion(f), Suffix: suffix},
		)
		if err != nil || !ok {
			return yield(err)
		}
		t.State.Character[f.Key] = v
	}

	if _, err := t.Emit(ctx, "setup", domain.Draft{
		Role: domain.RoleSystem,
		Text: setupText(o.world, t.State.Character),
		Tags: []domain.Tag{domain.InstructionTag(domain.InstructionSetup)},
	}); err != nil {
		return procedure.Done, err
	}

	if _, err := t.Generate(ctx, "welcome", procedure.GenerateRequest{
		Instruction: welcomeInstruction(),
		Target:      window.CampTarget(),
		Tags:        []domain.Tag{domain.ProcedureTag("camp")},
	}); err != nil {
		return procedure.Done, err
	}

	t.State.Flags[domain.FlagOnboarded] = true
	return procedure.Done, nil
}
