package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/outbox"
	"github.com/myrjola/fitplan/internal/sqlite"
)

// Outbox operation kinds written by the Service.
const (
	OpPlanUpsert       = "plan.upsert"
	OpSelectionsUpsert = "selections.upsert"
	OpSetLogUpsert     = "setlog.upsert"
)

// PlanUpsert is the outbox payload of OpPlanUpsert.
type PlanUpsert struct {
	UserID int  `json:"user_id"`
	Plan   Plan `json:"plan"`
}

// SelectionsUpsert is the outbox payload of OpSelectionsUpsert.
type SelectionsUpsert struct {
	UserID     int              `json:"user_id"`
	Selections WizardSelections `json:"selections"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SetLogUpsert is the outbox payload of OpSetLogUpsert.
type SetLogUpsert struct {
	UserID int    `json:"user_id"`
	SetLog SetLog `json:"set_log"`
}

// ErrInvalidSetLog is returned when a set log does not match the plan it is logged against.
var ErrInvalidSetLog = errors.New("invalid set log")

// Service handles wizard selections, plan generation and set logging for the authenticated user.
type Service struct {
	repo      *repository
	db        *sqlite.Database
	logger    *slog.Logger
	generator *Generator
	exercises map[string]Exercise
	// now is shared with the generator so that WithClock also stamps set logs and selections.
	now func() time.Time
}

// NewService creates a new workout service generating plans from the exercise catalog.
func NewService(db *sqlite.Database, logger *slog.Logger, catalog []Exercise, opts ...GeneratorOption) *Service {
	factory := newRepositoryFactory(db, logger)
	generator := NewGenerator(catalog, opts...)
	return &Service{
		repo:      factory.newRepository(),
		db:        db,
		logger:    logger,
		generator: generator,
		exercises: IndexExercises(catalog),
		now:       generator.now,
	}
}

// SaveSelections stores the wizard answers. Incomplete answers are accepted so that the wizard
// can be resumed, validation happens on generation.
func (s *Service) SaveSelections(ctx context.Context, sel WizardSelections) error {
	userID := contexthelpers.AuthenticatedUserID(ctx)
	updatedAt := s.now().UTC().Truncate(time.Millisecond)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.selections.upsert(ctx, tx, userID, sel, updatedAt); err != nil {
			return err
		}
		payload := SelectionsUpsert{UserID: userID, Selections: sel, UpdatedAt: updatedAt}
		return outbox.Enqueue(ctx, tx, OpSelectionsUpsert, selectionsKey(userID), payload)
	})
	if err != nil {
		return fmt.Errorf("save selections: %w", err)
	}
	return nil
}

// GetSelections retrieves the stored wizard answers.
func (s *Service) GetSelections(ctx context.Context) (WizardSelections, error) {
	sel, err := s.repo.selections.Get(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		return WizardSelections{}, fmt.Errorf("get selections: %w", err)
	}
	return sel, nil
}

// GeneratePlan validates the selections, generates a plan and stores it. Invalid selections
// return a *ValidationError listing every violation.
func (s *Service) GeneratePlan(ctx context.Context, sel WizardSelections) (Plan, error) {
	if result := ValidateWizardInputs(sel); !result.Valid {
		return Plan{}, &ValidationError{Messages: result.Errors}
	}

	userID := contexthelpers.AuthenticatedUserID(ctx)
	plan := s.generator.Generate(sel)
	// Stored timestamps have millisecond precision.
	plan.CreatedAt = plan.CreatedAt.UTC().Truncate(time.Millisecond)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.plans.insert(ctx, tx, userID, plan); err != nil {
			return err
		}
		return outbox.Enqueue(ctx, tx, OpPlanUpsert, planKey(plan.ID), PlanUpsert{UserID: userID, Plan: plan})
	})
	if err != nil {
		return Plan{}, fmt.Errorf("store plan: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "generated plan",
		slog.String("plan_id", plan.ID),
		slog.String("split", string(plan.Split)),
		slog.Int("days", len(plan.WorkoutDays)))
	return plan, nil
}

// GetPlan retrieves a stored plan with its exercises resolved from the catalog.
func (s *Service) GetPlan(ctx context.Context, planID string) (Plan, error) {
	plan, err := s.repo.plans.Get(ctx, contexthelpers.AuthenticatedUserID(ctx), planID)
	if err != nil {
		return Plan{}, fmt.Errorf("get plan %s: %w", planID, err)
	}
	s.enrichPlan(ctx, &plan)
	return plan, nil
}

// enrichPlan replaces the stored exercise IDs with catalog entries. Exercises that have since been
// removed from the catalog keep their ID as the name.
func (s *Service) enrichPlan(ctx context.Context, plan *Plan) {
	for i := range plan.WorkoutDays {
		for j := range plan.WorkoutDays[i].Exercises {
			id := plan.WorkoutDays[i].Exercises[j].Exercise.ID
			ex, ok := s.exercises[id]
			if !ok {
				s.logger.LogAttrs(ctx, slog.LevelWarn, "exercise missing from catalog",
					slog.String("plan_id", plan.ID), slog.String("exercise_id", id))
				ex = Exercise{
					ID:                  id,
					Name:                id,
					PrimaryMuscleGroups: []string{},
					MovementPatterns:    []string{},
					Equipment:           []string{},
					Contraindications:   []string{},
					Cues:                nil,
					Rationale:           "",
					Variations:          nil,
				}
			}
			plan.WorkoutDays[i].Exercises[j].Exercise = ex
		}
	}
}

// ListPlans lists the user's plans, newest first.
func (s *Service) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	plans, err := s.repo.plans.List(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// LogSet records a performed set. The exercise must be prescribed on the given plan day.
func (s *Service) LogSet(ctx context.Context, log SetLog) error {
	plan, err := s.repo.plans.Get(ctx, contexthelpers.AuthenticatedUserID(ctx), log.PlanID)
	if err != nil {
		return fmt.Errorf("get plan %s: %w", log.PlanID, err)
	}
	if err = checkSetLog(plan, log); err != nil {
		return err
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = s.now()
	}
	log.LoggedAt = log.LoggedAt.UTC().Truncate(time.Millisecond)

	userID := contexthelpers.AuthenticatedUserID(ctx)
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.setLogs.upsert(ctx, tx, log); err != nil {
			return err
		}
		return outbox.Enqueue(ctx, tx, OpSetLogUpsert, planKey(log.PlanID), SetLogUpsert{UserID: userID, SetLog: log})
	})
	if err != nil {
		return fmt.Errorf("log set: %w", err)
	}
	return nil
}

func checkSetLog(plan Plan, log SetLog) error {
	if log.SetNumber < 1 {
		return fmt.Errorf("%w: set number must be positive", ErrInvalidSetLog)
	}
	if log.Reps < 0 {
		return fmt.Errorf("%w: reps must not be negative", ErrInvalidSetLog)
	}
	if log.WeightKg != nil && *log.WeightKg < 0 {
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidSetLog)
	}
	if log.DayIndex < 0 || log.DayIndex >= len(plan.WorkoutDays) {
		return fmt.Errorf("%w: plan has no day %d", ErrInvalidSetLog, log.DayIndex)
	}
	for _, ex := range plan.WorkoutDays[log.DayIndex].Exercises {
		if ex.Exercise.ID == log.ExerciseID {
			return nil
		}
	}
	return fmt.Errorf("%w: exercise %s is not prescribed on day %d", ErrInvalidSetLog, log.ExerciseID, log.DayIndex)
}

// ListSetLogs lists the sets logged against the plan.
func (s *Service) ListSetLogs(ctx context.Context, planID string) ([]SetLog, error) {
	ok, err := s.repo.plans.exists(ctx, contexthelpers.AuthenticatedUserID(ctx), planID)
	if err != nil {
		return nil, fmt.Errorf("check plan %s: %w", planID, err)
	}
	if !ok {
		return nil, fmt.Errorf("get plan %s: %w", planID, ErrNotFound)
	}
	logs, err := s.repo.setLogs.List(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("list set logs: %w", err)
	}
	return logs, nil
}

func planKey(planID string) string {
	return "plan:" + planID
}

func selectionsKey(userID int) string {
	return fmt.Sprintf("selections:%d", userID)
}
