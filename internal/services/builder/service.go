package builder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/emberfell/character-builder/internal/content"
	"github.com/emberfell/character-builder/internal/domain/character"
	"github.com/emberfell/character-builder/internal/domain/shared"
	"github.com/emberfell/character-builder/internal/errors"
	"github.com/emberfell/character-builder/internal/random"
	"github.com/emberfell/character-builder/internal/repositories/characters"
	"github.com/emberfell/character-builder/internal/state"
	"github.com/emberfell/character-builder/internal/steps"
	"github.com/emberfell/character-builder/internal/uuid"
	"github.com/emberfell/character-builder/internal/validation"
)

// ServiceConfig holds the dependencies the builder service needs.
type ServiceConfig struct {
	Content    content.Client
	Engine     *validation.Engine
	Repository characters.Repository
	UUID       uuid.Generator
	Random     random.Source
	Logger     *slog.Logger
}

type service struct {
	content  content.Client
	engine   *validation.Engine
	repo     characters.Repository
	uuid     uuid.Generator
	log      *slog.Logger
	managers map[character.StepID]steps.Manager

	mu       sync.RWMutex
	sessions map[string]*steps.Session
}

// NewService creates the builder service with one manager per wizard step.
func NewService(cfg *ServiceConfig) Service {
	if cfg == nil {
		panic("builder.NewService: config cannot be nil")
	}
	if cfg.Content == nil {
		panic("builder.NewService: content client cannot be nil")
	}
	if cfg.Engine == nil {
		panic("builder.NewService: validation engine cannot be nil")
	}
	if cfg.Repository == nil {
		panic("builder.NewService: repository cannot be nil")
	}
	gen := cfg.UUID
	if gen == nil {
		gen = uuid.NewGoogleGenerator()
	}
	src := cfg.Random
	if src == nil {
		src = random.NewSource()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	managers := map[character.StepID]steps.Manager{
		character.StepAncestry: steps.NewAncestryManager(&steps.AncestryConfig{
			Content: cfg.Content, Engine: cfg.Engine, Logger: logger,
		}),
		character.StepClass: steps.NewClassManager(&steps.ClassConfig{
			Content: cfg.Content, Engine: cfg.Engine, Logger: logger,
		}),
		character.StepStats: steps.NewStatsManager(&steps.StatsConfig{
			Content: cfg.Content, Engine: cfg.Engine, Random: src, UUID: gen, Logger: logger,
		}),
		character.StepSpells: steps.NewSpellsManager(&steps.SpellsConfig{
			Content: cfg.Content, Engine: cfg.Engine, Random: src, Logger: logger,
		}),
		character.StepPerks: steps.NewPerksManager(&steps.PerksConfig{
			Content: cfg.Content, Engine: cfg.Engine, Logger: logger,
		}),
		character.StepStartingPack: steps.NewStartingPackManager(&steps.StartingPackConfig{
			Content: cfg.Content, Engine: cfg.Engine, Logger: logger,
		}),
		character.StepGear: steps.NewGearManager(&steps.GearConfig{
			Content: cfg.Content, Engine: cfg.Engine, Logger: logger,
		}),
	}

	return &service{
		content:  cfg.Content,
		engine:   cfg.Engine,
		repo:     cfg.Repository,
		uuid:     gen,
		log:      logger,
		managers: managers,
		sessions: make(map[string]*steps.Session),
	}
}

func (s *service) session(id string) (*steps.Session, error) {
	if id == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NotFoundf("session '%s' not found", id).
			WithMeta("session_id", id)
	}
	return sess, nil
}

func (s *service) manager(step character.StepID) (steps.Manager, error) {
	mgr, ok := s.managers[step]
	if !ok {
		return nil, errors.InvalidArgumentf("unknown step '%s'", step)
	}
	return mgr, nil
}

// StartSession opens a fresh builder session on the ancestry step.
func (s *service) StartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	if input.OwnerID == "" {
		return nil, errors.InvalidArgument("owner ID is required")
	}

	sess := &steps.Session{
		ID:      s.uuid.New(),
		OwnerID: input.OwnerID,
		State: state.NewManager(&state.ManagerConfig{
			Complete: s.engine.StepComplete,
			Logger:   s.log,
		}),
	}
	s.managers[character.StepAncestry].Activate(ctx, sess)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.log.InfoContext(ctx, "builder session started",
		"session_id", sess.ID,
		"owner_id", input.OwnerID)

	return &StartSessionOutput{
		SessionID: sess.ID,
		State:     sess.State.GetCurrentState(),
	}, nil
}

// GetSession returns the session's owner and a detached state snapshot.
func (s *service) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	return &GetSessionOutput{
		OwnerID: sess.OwnerID,
		State:   sess.State.GetCurrentState(),
	}, nil
}

// EndSession discards a session without persisting anything.
func (s *service) EndSession(ctx context.Context, input *EndSessionInput) error {
	if input == nil {
		return errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return err
	}
	sess.BumpGeneration()

	s.mu.Lock()
	delete(s.sessions, input.SessionID)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "builder session ended", "session_id", input.SessionID)
	return nil
}

// HandleAction routes an action to its step manager. An empty Step targets
// the session's current step.
func (s *service) HandleAction(ctx context.Context, input *HandleActionInput) (*HandleActionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	step := input.Step
	if step == "" {
		step = sess.State.GetCurrentState().CurrentStep
	}
	mgr, err := s.manager(step)
	if err != nil {
		return nil, err
	}

	if err := mgr.HandleAction(ctx, sess, input.Action); err != nil {
		return nil, err
	}
	return &HandleActionOutput{State: sess.State.GetCurrentState()}, nil
}

// AdvanceStep moves the wizard forward, skipping steps that decline to
// activate for the current state.
func (s *service) AdvanceStep(ctx context.Context, input *AdvanceStepInput) (*AdvanceStepOutput, error) {
	return s.navigate(ctx, input, character.NextStep)
}

// PreviousStep moves the wizard back one step.
func (s *service) PreviousStep(ctx context.Context, input *AdvanceStepInput) (*AdvanceStepOutput, error) {
	return s.navigate(ctx, input, character.PrevStep)
}

func (s *service) navigate(ctx context.Context, input *AdvanceStepInput, move func(character.StepID) character.StepID) (*AdvanceStepOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	step := sess.State.GetCurrentState().CurrentStep
	for {
		step = move(step)
		if step == "" {
			return nil, errors.Validation("no step in that direction")
		}
		if !s.engine.ValidateStepPrerequisites(step, sess.State.GetCurrentState()) {
			continue
		}
		mgr, err := s.manager(step)
		if err != nil {
			return nil, err
		}

		// Navigation invalidates any in-flight content resolution
		sess.BumpGeneration()
		if !mgr.Activate(ctx, sess) {
			// Step declined for this state, keep moving
			continue
		}

		sc, err := mgr.PrepareContext(ctx, sess)
		if err != nil {
			return nil, err
		}
		return &AdvanceStepOutput{Step: step, Context: sc}, nil
	}
}

// PrepareStepContext renders a step without navigating to it.
func (s *service) PrepareStepContext(ctx context.Context, input *PrepareStepContextInput) (*PrepareStepContextOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	step := input.Step
	if step == "" {
		step = sess.State.GetCurrentState().CurrentStep
	}
	mgr, err := s.manager(step)
	if err != nil {
		return nil, err
	}

	sc, err := mgr.PrepareContext(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &PrepareStepContextOutput{Context: sc}, nil
}

// GetProgress reports which steps are done and how far along the mandatory
// track the session is.
func (s *service) GetProgress(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	st := sess.State.GetCurrentState()
	done := make(map[character.StepID]bool, len(st.CompletedSteps))
	for _, step := range st.CompletedSteps {
		done[step] = true
	}

	mandatoryDone := 0
	for _, step := range character.MandatorySteps {
		if done[step] {
			mandatoryDone++
		}
	}

	return &GetProgressOutput{
		CurrentStep:    st.CurrentStep,
		CompletedSteps: append([]character.StepID(nil), st.CompletedSteps...),
		Percent:        mandatoryDone * 100 / len(character.MandatorySteps),
		SpellBudget:    s.engine.GetBudgetStatus(st, character.BudgetSpells),
		GearBudget:     s.engine.GetBudgetStatus(st, character.BudgetGear),
	}, nil
}

// Undo rolls the session back one committed mutation.
func (s *service) Undo(ctx context.Context, input *UndoInput) (*UndoOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	undone := sess.State.Undo()
	if undone {
		sess.BumpGeneration()
	}
	return &UndoOutput{
		Undone: undone,
		State:  sess.State.GetCurrentState(),
	}, nil
}

// FinalizeSession commits the session to a persisted character. Every
// mandatory step must be complete; the session is discarded on success.
func (s *service) FinalizeSession(ctx context.Context, input *FinalizeSessionInput) (*FinalizeSessionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input cannot be nil")
	}
	if input.Name == "" {
		return nil, errors.InvalidArgument("character name is required")
	}
	sess, err := s.session(input.SessionID)
	if err != nil {
		return nil, err
	}

	st := sess.State.GetCurrentState()
	for _, step := range character.MandatorySteps {
		if !s.engine.StepComplete(step, st) {
			return nil, errors.Validationf("step '%s' is not complete", step).
				WithMeta("step", string(step))
		}
	}

	char := buildCharacter(s.uuid.New(), sess.OwnerID, input.Name, st)
	if err := s.repo.Create(ctx, char); err != nil {
		return nil, err
	}

	sess.BumpGeneration()
	s.mu.Lock()
	delete(s.sessions, input.SessionID)
	s.mu.Unlock()

	s.log.InfoContext(ctx, "character finalized",
		"session_id", input.SessionID,
		"character_id", char.ID,
		"owner_id", sess.OwnerID)

	return &FinalizeSessionOutput{Character: char}, nil
}

// buildCharacter flattens a complete builder state into the persisted form.
func buildCharacter(id, ownerID, name string, st *character.State) *character.Character {
	char := &character.Character{
		ID:            id,
		OwnerID:       ownerID,
		Name:          name,
		Skills:        append([]shared.SkillKey(nil), st.Skills...),
		Spells:        append([]string(nil), st.Spells...),
		Gear:          append([]string(nil), st.Gear...),
		GearCostSpent: st.GearCostSpent,
		Stats:         make(map[shared.StatKey]int, len(st.AssignedStats)),
	}
	if st.SelectedAncestry != nil {
		char.Ancestry = *st.SelectedAncestry
	}
	if st.SelectedClass != nil {
		char.Class = *st.SelectedClass
	}
	if st.SelectedStartingPack != nil {
		char.StartingPack = *st.SelectedStartingPack
	}
	for key, v := range st.AssignedStats {
		if v != nil {
			char.Stats[key] = *v
		}
	}

	// Class perks first, then the player's picks, without duplicates
	seen := make(map[string]bool)
	for _, ref := range st.ClassPerks {
		if !seen[ref] {
			seen[ref] = true
			char.Perks = append(char.Perks, ref)
		}
	}
	for _, ref := range st.Perks {
		if !seen[ref] {
			seen[ref] = true
			char.Perks = append(char.Perks, ref)
		}
	}
	if char.Perks == nil {
		char.Perks = []string{}
	}

	return char
}
