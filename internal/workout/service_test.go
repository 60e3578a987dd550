package workout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/catalog"
	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/outbox"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/myrjola/fitplan/internal/testhelpers"
	"github.com/myrjola/fitplan/internal/workout"
)

type serviceFixture struct {
	ctx    context.Context
	db     *sqlite.Database
	svc    *workout.Service
	outbox *outbox.Outbox
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	exercises, err := catalog.Load()
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	ids := 0
	svc := workout.NewService(db, logger, exercises,
		workout.WithClock(func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 123456789, time.UTC) }),
		workout.WithIDGenerator(func() string {
			ids++
			return "plan-" + string(rune('0'+ids))
		}),
	)
	return serviceFixture{
		ctx:    contexthelpers.WithAuthenticatedUserID(t.Context(), 1),
		db:     db,
		svc:    svc,
		outbox: outbox.New(db, logger, nil, 1),
	}
}

func validSelections() workout.WizardSelections {
	return workout.WizardSelections{
		Goal:                   workout.GoalStrength,
		ExperienceLevel:        workout.ExperienceBeginner,
		Equipment:              []string{"barbell", "dumbbell", "pullup_bar"},
		TargetMuscles:          []string{"chest", "back", "quads"},
		Constraints:            []string{"knee"},
		DaysPerWeek:            4,
		SessionDurationMinutes: 60,
	}
}

func Test_Service_GeneratePlan(t *testing.T) {
	f := newServiceFixture(t)

	plan, err := f.svc.GeneratePlan(f.ctx, validSelections())
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if plan.ID != "plan-1" {
		t.Errorf("plan ID = %q, want plan-1", plan.ID)
	}
	if want := time.Date(2026, 3, 2, 8, 30, 0, 123000000, time.UTC); !plan.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", plan.CreatedAt, want)
	}

	stored, err := f.svc.GetPlan(f.ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if diff := cmp.Diff(plan, stored); diff != "" {
		t.Errorf("stored plan mismatch (-generated +stored):\n%s", diff)
	}

	pending, err := f.outbox.Pending(f.ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Kind != workout.OpPlanUpsert {
		t.Fatalf("expected a single plan upsert in the outbox, got %v", pending)
	}
	var payload workout.PlanUpsert
	if err = pending[0].Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.UserID != 1 || payload.Plan.ID != plan.ID {
		t.Errorf("unexpected payload user %d plan %s", payload.UserID, payload.Plan.ID)
	}
}

func Test_Service_GeneratePlan_Invalid(t *testing.T) {
	f := newServiceFixture(t)

	sel := validSelections()
	sel.Goal = ""
	sel.Equipment = nil
	sel.TargetMuscles = nil
	sel.DaysPerWeek = 1

	_, err := f.svc.GeneratePlan(f.ctx, sel)
	var validationErr *workout.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validationErr.Messages) != 4 {
		t.Errorf("expected 4 validation messages, got %v", validationErr.Messages)
	}

	plans, err := f.svc.ListPlans(f.ctx)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("invalid selections must not store a plan, got %d", len(plans))
	}
	pending, err := f.outbox.Pending(f.ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("invalid selections must not enqueue operations, got %d", len(pending))
	}
}

func Test_Service_Selections(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.svc.GetSelections(f.ctx); !errors.Is(err, workout.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	draft := workout.WizardSelections{
		Goal:                   workout.GoalHypertrophy,
		ExperienceLevel:        "",
		Equipment:              []string{"dumbbell"},
		TargetMuscles:          nil,
		Constraints:            nil,
		DaysPerWeek:            0,
		SessionDurationMinutes: 0,
	}
	if err := f.svc.SaveSelections(f.ctx, draft); err != nil {
		t.Fatalf("SaveSelections: %v", err)
	}
	if err := f.svc.SaveSelections(f.ctx, validSelections()); err != nil {
		t.Fatalf("SaveSelections: %v", err)
	}

	got, err := f.svc.GetSelections(f.ctx)
	if err != nil {
		t.Fatalf("GetSelections: %v", err)
	}
	if diff := cmp.Diff(validSelections(), got); diff != "" {
		t.Errorf("selections mismatch (-want +got):\n%s", diff)
	}

	otherUser := contexthelpers.WithAuthenticatedUserID(f.ctx, 2)
	if _, err = f.svc.GetSelections(otherUser); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}

	pending, err := f.outbox.Pending(f.ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 2 || pending[0].Key != pending[1].Key {
		t.Fatalf("expected two selection upserts sharing a key, got %v", pending)
	}

	var updatedAt string
	if err = f.db.ReadOnly.QueryRowContext(f.ctx,
		"SELECT updated_at FROM wizard_selections WHERE user_id = ?", 1).Scan(&updatedAt); err != nil {
		t.Fatalf("query updated_at: %v", err)
	}
	if updatedAt != "2026-03-02T08:30:00.123Z" {
		t.Errorf("updated_at = %q, want the injected clock", updatedAt)
	}
	var payload workout.SelectionsUpsert
	if err = pending[1].Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if want := time.Date(2026, 3, 2, 8, 30, 0, 123000000, time.UTC); !payload.UpdatedAt.Equal(want) {
		t.Errorf("payload UpdatedAt = %v, want %v", payload.UpdatedAt, want)
	}
}

func Test_Service_PlanOwnership(t *testing.T) {
	f := newServiceFixture(t)

	plan, err := f.svc.GeneratePlan(f.ctx, validSelections())
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}

	otherUser := contexthelpers.WithAuthenticatedUserID(f.ctx, 2)
	if _, err = f.svc.GetPlan(otherUser, plan.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err = f.svc.ListSetLogs(otherUser, plan.ID); !errors.Is(err, workout.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	plans, err := f.svc.ListPlans(otherUser)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("expected no plans for another user, got %d", len(plans))
	}
}

func Test_Service_ListPlans(t *testing.T) {
	f := newServiceFixture(t)

	for range 2 {
		if _, err := f.svc.GeneratePlan(f.ctx, validSelections()); err != nil {
			t.Fatalf("GeneratePlan: %v", err)
		}
	}

	plans, err := f.svc.ListPlans(f.ctx)
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	want := []workout.PlanSummary{
		{
			ID:          "plan-1",
			Split:       workout.SplitUpperLower,
			Goal:        workout.GoalStrength,
			DaysPerWeek: 4,
			CreatedAt:   time.Date(2026, 3, 2, 8, 30, 0, 123000000, time.UTC),
		},
		{
			ID:          "plan-2",
			Split:       workout.SplitUpperLower,
			Goal:        workout.GoalStrength,
			DaysPerWeek: 4,
			CreatedAt:   time.Date(2026, 3, 2, 8, 30, 0, 123000000, time.UTC),
		},
	}
	if diff := cmp.Diff(want, plans); diff != "" {
		t.Errorf("ListPlans mismatch (-want +got):\n%s", diff)
	}
}

func Test_Service_LogSet(t *testing.T) {
	f := newServiceFixture(t)

	plan, err := f.svc.GeneratePlan(f.ctx, validSelections())
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	exerciseID := plan.WorkoutDays[0].Exercises[0].Exercise.ID

	tests := []struct {
		name    string
		log     workout.SetLog
		wantErr error
	}{
		{
			name: "valid",
			log: workout.SetLog{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 1,
				WeightKg: new(60.0), Reps: 5, RIR: new(2.0), LoggedAt: time.Time{}},
			wantErr: nil,
		},
		{
			name: "bodyweight without rir",
			log: workout.SetLog{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 2,
				WeightKg: nil, Reps: 8, RIR: nil, LoggedAt: time.Time{}},
			wantErr: nil,
		},
		{
			name: "unknown plan",
			log: workout.SetLog{PlanID: "missing", DayIndex: 0, ExerciseID: exerciseID, SetNumber: 1,
				WeightKg: nil, Reps: 5, RIR: nil, LoggedAt: time.Time{}},
			wantErr: workout.ErrNotFound,
		},
		{
			name: "day out of range",
			log: workout.SetLog{PlanID: plan.ID, DayIndex: 4, ExerciseID: exerciseID, SetNumber: 1,
				WeightKg: nil, Reps: 5, RIR: nil, LoggedAt: time.Time{}},
			wantErr: workout.ErrInvalidSetLog,
		},
		{
			name: "exercise not prescribed",
			log: workout.SetLog{PlanID: plan.ID, DayIndex: 0, ExerciseID: "nordic-curl", SetNumber: 1,
				WeightKg: nil, Reps: 5, RIR: nil, LoggedAt: time.Time{}},
			wantErr: workout.ErrInvalidSetLog,
		},
		{
			name: "zero set number",
			log: workout.SetLog{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 0,
				WeightKg: nil, Reps: 5, RIR: nil, LoggedAt: time.Time{}},
			wantErr: workout.ErrInvalidSetLog,
		},
		{
			name: "negative weight",
			log: workout.SetLog{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 3,
				WeightKg: new(-1.0), Reps: 5, RIR: nil, LoggedAt: time.Time{}},
			wantErr: workout.ErrInvalidSetLog,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.LogSet(f.ctx, tt.log)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LogSet error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Logging the same set again replaces the earlier entry.
	relog := workout.SetLog{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 1,
		WeightKg: new(62.5), Reps: 4, RIR: new(1.0), LoggedAt: time.Time{}}
	if err = f.svc.LogSet(f.ctx, relog); err != nil {
		t.Fatalf("LogSet: %v", err)
	}

	logs, err := f.svc.ListSetLogs(f.ctx, plan.ID)
	if err != nil {
		t.Fatalf("ListSetLogs: %v", err)
	}
	loggedAt := time.Date(2026, 3, 2, 8, 30, 0, 123000000, time.UTC)
	want := []workout.SetLog{
		{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 1,
			WeightKg: new(62.5), Reps: 4, RIR: new(1.0), LoggedAt: loggedAt},
		{PlanID: plan.ID, DayIndex: 0, ExerciseID: exerciseID, SetNumber: 2,
			WeightKg: nil, Reps: 8, RIR: nil, LoggedAt: loggedAt},
	}
	if diff := cmp.Diff(want, logs); diff != "" {
		t.Errorf("ListSetLogs mismatch (-want +got):\n%s", diff)
	}
}
