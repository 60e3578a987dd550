package workout

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/sqlite"
)

// PlanSummary is the listing view of a stored plan.
type PlanSummary struct {
	ID          string    `json:"id"`
	Split       Split     `json:"split"`
	Goal        Goal      `json:"goal"`
	DaysPerWeek int       `json:"days_per_week"`
	CreatedAt   time.Time `json:"created_at"`
}

// sqlitePlanRepository persists generated plans. Prescriptions only store the exercise ID, the
// loaded plan carries bare exercises that the Service resolves against the catalog.
type sqlitePlanRepository struct {
	baseRepository
}

func newSQLitePlanRepository(db *sqlite.Database, logger *slog.Logger) *sqlitePlanRepository {
	return &sqlitePlanRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// insert stores the plan and all its child rows within tx.
func (r *sqlitePlanRepository) insert(ctx context.Context, tx *sql.Tx, userID int, plan Plan) error {
	selections, err := json.Marshal(plan.Selections)
	if err != nil {
		return fmt.Errorf("marshal selections: %w", err)
	}
	notes, err := marshalJSONColumn(plan.Notes)
	if err != nil {
		return fmt.Errorf("notes: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO plans (id, user_id, split, selections, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, userID, plan.Split, string(selections), notes, formatTimestamp(plan.CreatedAt)); err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for _, day := range plan.WorkoutDays {
		if err = r.insertDay(ctx, tx, plan.ID, day); err != nil {
			return fmt.Errorf("insert day %d: %w", day.DayIndex, err)
		}
	}

	for i, v := range plan.WeeklyVolume {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO plan_weekly_volume (plan_id, position, muscle, sets, is_within_cap)
			VALUES (?, ?, ?, ?, ?)`,
			plan.ID, i, v.Muscle, v.Sets, boolToInt(v.IsWithinCap)); err != nil {
			return fmt.Errorf("insert weekly volume %s: %w", v.Muscle, err)
		}
	}

	for _, p := range plan.RIRProgression {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO plan_rir_progression (plan_id, week, rir, is_deload)
			VALUES (?, ?, ?, ?)`,
			plan.ID, p.Week, p.RIR, boolToInt(p.IsDeload)); err != nil {
			return fmt.Errorf("insert rir progression week %d: %w", p.Week, err)
		}
	}
	return nil
}

func (r *sqlitePlanRepository) insertDay(ctx context.Context, tx *sql.Tx, planID string, day WorkoutDay) error {
	focusTags, err := marshalJSONColumn(day.FocusTags)
	if err != nil {
		return fmt.Errorf("focus tags: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO plan_days (plan_id, day_index, name, focus_tags, estimated_minutes)
		VALUES (?, ?, ?, ?, ?)`,
		planID, day.DayIndex, day.Name, focusTags, day.EstimatedMinutes); err != nil {
		return fmt.Errorf("insert plan day: %w", err)
	}

	for position, ex := range day.Exercises {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO plan_prescriptions (
				plan_id, day_index, position, exercise_id, sets, reps, rir, rest_seconds, superset_group
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			planID, day.DayIndex, position, ex.Exercise.ID, ex.Sets, ex.Reps, ex.RIR, ex.RestSeconds,
			ex.SupersetGroup); err != nil {
			return fmt.Errorf("insert prescription %s: %w", ex.Exercise.ID, err)
		}
	}
	return nil
}

// Get loads the plan owned by userID.
func (r *sqlitePlanRepository) Get(ctx context.Context, userID int, planID string) (Plan, error) {
	var (
		plan                       Plan
		selections, notes, created string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT id, split, selections, notes, created_at
		FROM plans
		WHERE id = ? AND user_id = ?`, planID, userID).
		Scan(&plan.ID, &plan.Split, &selections, &notes, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("query plan: %w", err)
	}

	if err = json.Unmarshal([]byte(selections), &plan.Selections); err != nil {
		return Plan{}, fmt.Errorf("unmarshal selections: %w", err)
	}
	if plan.Notes, err = unmarshalJSONColumn(notes); err != nil {
		return Plan{}, fmt.Errorf("notes: %w", err)
	}
	if plan.CreatedAt, err = parseTimestamp(created); err != nil {
		return Plan{}, err
	}
	if plan.WorkoutDays, err = r.queryDays(ctx, planID); err != nil {
		return Plan{}, err
	}
	if plan.WeeklyVolume, err = r.queryWeeklyVolume(ctx, planID); err != nil {
		return Plan{}, err
	}
	if plan.RIRProgression, err = r.queryRIRProgression(ctx, planID); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func (r *sqlitePlanRepository) queryDays(ctx context.Context, planID string) (_ []WorkoutDay, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT day_index, name, focus_tags, estimated_minutes
		FROM plan_days
		WHERE plan_id = ?
		ORDER BY day_index`, planID)
	if err != nil {
		return nil, fmt.Errorf("query plan days: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	days := []WorkoutDay{}
	for rows.Next() {
		var (
			day       WorkoutDay
			focusTags string
		)
		if err = rows.Scan(&day.DayIndex, &day.Name, &focusTags, &day.EstimatedMinutes); err != nil {
			return nil, fmt.Errorf("scan plan day: %w", err)
		}
		if day.FocusTags, err = unmarshalJSONColumn(focusTags); err != nil {
			return nil, fmt.Errorf("focus tags: %w", err)
		}
		day.Exercises = []ExercisePrescription{}
		days = append(days, day)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	byIndex := make(map[int]int, len(days))
	for i, d := range days {
		byIndex[d.DayIndex] = i
	}
	prescriptions, err := r.queryPrescriptions(ctx, planID)
	if err != nil {
		return nil, err
	}
	for _, p := range prescriptions {
		i, ok := byIndex[p.dayIndex]
		if !ok {
			return nil, fmt.Errorf("prescription for missing day %d", p.dayIndex)
		}
		days[i].Exercises = append(days[i].Exercises, p.prescription)
	}
	return days, nil
}

type storedPrescription struct {
	dayIndex     int
	prescription ExercisePrescription
}

func (r *sqlitePlanRepository) queryPrescriptions(
	ctx context.Context,
	planID string,
) (_ []storedPrescription, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT day_index, exercise_id, sets, reps, rir, rest_seconds, superset_group
		FROM plan_prescriptions
		WHERE plan_id = ?
		ORDER BY day_index, position`, planID)
	if err != nil {
		return nil, fmt.Errorf("query prescriptions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	var prescriptions []storedPrescription
	for rows.Next() {
		var (
			p             storedPrescription
			supersetGroup sql.NullString
		)
		if err = rows.Scan(&p.dayIndex, &p.prescription.Exercise.ID, &p.prescription.Sets, &p.prescription.Reps,
			&p.prescription.RIR, &p.prescription.RestSeconds, &supersetGroup); err != nil {
			return nil, fmt.Errorf("scan prescription: %w", err)
		}
		if supersetGroup.Valid {
			p.prescription.SupersetGroup = &supersetGroup.String
		}
		prescriptions = append(prescriptions, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return prescriptions, nil
}

func (r *sqlitePlanRepository) queryWeeklyVolume(ctx context.Context, planID string) (_ []WeeklyVolume, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT muscle, sets, is_within_cap
		FROM plan_weekly_volume
		WHERE plan_id = ?
		ORDER BY position`, planID)
	if err != nil {
		return nil, fmt.Errorf("query weekly volume: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	volume := []WeeklyVolume{}
	for rows.Next() {
		var v WeeklyVolume
		if err = rows.Scan(&v.Muscle, &v.Sets, &v.IsWithinCap); err != nil {
			return nil, fmt.Errorf("scan weekly volume: %w", err)
		}
		volume = append(volume, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return volume, nil
}

func (r *sqlitePlanRepository) queryRIRProgression(
	ctx context.Context,
	planID string,
) (_ []RIRProgression, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT week, rir, is_deload
		FROM plan_rir_progression
		WHERE plan_id = ?
		ORDER BY week`, planID)
	if err != nil {
		return nil, fmt.Errorf("query rir progression: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	progression := []RIRProgression{}
	for rows.Next() {
		var p RIRProgression
		if err = rows.Scan(&p.Week, &p.RIR, &p.IsDeload); err != nil {
			return nil, fmt.Errorf("scan rir progression: %w", err)
		}
		progression = append(progression, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return progression, nil
}

// List returns the user's plans, newest first.
func (r *sqlitePlanRepository) List(ctx context.Context, userID int) (_ []PlanSummary, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT id, split, selections ->> '$.goal', selections ->> '$.days_per_week', created_at
		FROM plans
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	summaries := []PlanSummary{}
	for rows.Next() {
		var (
			s       PlanSummary
			created string
		)
		if err = rows.Scan(&s.ID, &s.Split, &s.Goal, &s.DaysPerWeek, &created); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if s.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return summaries, nil
}

// exists reports whether the plan exists and is owned by userID.
func (r *sqlitePlanRepository) exists(ctx context.Context, userID int, planID string) (bool, error) {
	var n int
	err := r.db.ReadOnly.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM plans WHERE id = ? AND user_id = ?", planID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query plan exists: %w", err)
	}
	return n > 0, nil
}
