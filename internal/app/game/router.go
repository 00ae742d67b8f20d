// Package game holds the procedures of the campfire game and routes each
// session to the one that owns it.
package game

import (
	"context"
	"fmt"

	"github.com/PabloGalante/campfire/internal/app/procedure"
	"github.com/PabloGalante/campfire/internal/domain"
)

// Step is one game procedure.
type Step interface {
	Name() string
	Run(ctx context.Context, t *procedure.Turn) (procedure.Signal, error)
}

// Router maps the session stage to its procedure.
type Router struct {
	onboarding Step
	camp       Step
	quest      Step
	npc        Step
}

func NewRouter(world domain.World) *Router {
	return &Router{
		onboarding: NewOnboarding(world),
		camp:       NewCamp(world),
		quest:      NewQuest(world),
		npc:        NewConversation(world),
	}
}

// Route implements procedure.RouteFunc.
func (r *Router) Route(state *domain.SessionState) (procedure.Procedure, error) {
	switch stage := state.Stage(); stage {
	case domain.StageOnboarding:
		return r.build(r.onboarding, "onboarding"), nil
	case domain.StageCamp:
		return r.build(r.camp, "camp"), nil
	case domain.StageQuesting:
		id := state.CurrentQuestID
		return r.build(r.quest, "quest/"+string(id), domain.QuestTag(id)), nil
	case domain.StageInConversation:
		id := state.InConversationWith
		return r.build(r.npc, "npc/"+string(id), domain.ConversationTag(id)), nil
	default:
		return procedure.Procedure{}, fmt.Errorf("no procedure for stage %s", stage)
	}
}

func (r *Router) build(s Step, scope string, correlation ...domain.Tag) procedure.Procedure {
	tags := append([]domain.Tag{domain.ProcedureTag(s.Name())}, correlation...)
	return procedure.Procedure{
		Name:  s.Name(),
		Scope: scope,
		Tags:  tags,
		Run:   s.Run,
	}
}

// yield is the common tail of an Ask point.
func yield(err error) (procedure.Signal, error) {
	return procedure.Yield, err
}
