// Package builder orchestrates character creation sessions: one state
// manager and one set of step managers per session, driven through a small
// service API the host application calls.
package builder

import (
	"context"

	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/steps"
)

//go:generate mockgen -destination=mock/mock_service.go -package=mockbuilder -source=interface.go

// Service is the entry point for hosts embedding the builder.
type Service interface {
	StartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error)
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)
	EndSession(ctx context.Context, input *EndSessionInput) error

	HandleAction(ctx context.Context, input *HandleActionInput) (*HandleActionOutput, error)
	AdvanceStep(ctx context.Context, input *AdvanceStepInput) (*AdvanceStepOutput, error)
	PreviousStep(ctx context.Context, input *AdvanceStepInput) (*AdvanceStepOutput, error)
	PrepareStepContext(ctx context.Context, input *PrepareStepContextInput) (*PrepareStepContextOutput, error)

	GetProgress(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error)
	Undo(ctx context.Context, input *UndoInput) (*UndoOutput, error)
	FinalizeSession(ctx context.Context, input *FinalizeSessionInput) (*FinalizeSessionOutput, error)
}

type StartSessionInput struct {
	OwnerID string
}

type StartSessionOutput struct {
	SessionID string
	State     *character.State
}

type GetSessionInput struct {
	SessionID string
}

type GetSessionOutput struct {
	OwnerID string
	State   *character.State
}

type EndSessionInput struct {
	SessionID string
}

type HandleActionInput struct {
	SessionID string
	// Step routes the action; empty means the session's current step.
	Step   character.StepID
	Action steps.Action
}

type HandleActionOutput struct {
	State *character.State
}

type AdvanceStepInput struct {
	SessionID string
}

type AdvanceStepOutput struct {
	Step    character.StepID
	Context *steps.StepContext
}

type PrepareStepContextInput struct {
	SessionID string
	// Step selects which step to render; empty means the current one.
	Step character.StepID
}

type PrepareStepContextOutput struct {
	Context *steps.StepContext
}

type GetProgressInput struct {
	SessionID string
}

// GetProgressOutput reports wizard completion. Percent counts mandatory
// steps only; optional steps move CompletedSteps but never the percentage.
type GetProgressOutput struct {
	CurrentStep    character.StepID
	CompletedSteps []character.StepID
	Percent        int
	SpellBudget    character.Budget
	GearBudget     character.Budget
}

type UndoInput struct {
	SessionID string
}

type UndoOutput struct {
	Undone bool
	State  *character.State
}

type FinalizeSessionInput struct {
	SessionID string
	Name      string
}

type FinalizeSessionOutput struct {
	Character *character.Character
}
