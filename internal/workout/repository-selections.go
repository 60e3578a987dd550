package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/sqlite"
)

// sqliteSelectionsRepository stores the latest wizard answers per user.
type sqliteSelectionsRepository struct {
	baseRepository
}

func newSQLiteSelectionsRepository(db *sqlite.Database, logger *slog.Logger) *sqliteSelectionsRepository {
	return &sqliteSelectionsRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// Get retrieves the stored selections of the user.
func (r *sqliteSelectionsRepository) Get(ctx context.Context, userID int) (WizardSelections, error) {
	var (
		sel                             WizardSelections
		equipment, muscles, constraints string
	)
	err := r.db.ReadOnly.QueryRowContext(ctx, `
		SELECT goal, experience_level, equipment, target_muscles, constraints,
		       days_per_week, session_duration_minutes
		FROM wizard_selections
		WHERE user_id = ?`, userID).Scan(
		&sel.Goal, &sel.ExperienceLevel, &equipment, &muscles, &constraints,
		&sel.DaysPerWeek, &sel.SessionDurationMinutes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return WizardSelections{}, ErrNotFound
	}
	if err != nil {
		return WizardSelections{}, fmt.Errorf("query wizard selections: %w", err)
	}

	if sel.Equipment, err = unmarshalJSONColumn(equipment); err != nil {
		return WizardSelections{}, fmt.Errorf("equipment: %w", err)
	}
	if sel.TargetMuscles, err = unmarshalJSONColumn(muscles); err != nil {
		return WizardSelections{}, fmt.Errorf("target muscles: %w", err)
	}
	if sel.Constraints, err = unmarshalJSONColumn(constraints); err != nil {
		return WizardSelections{}, fmt.Errorf("constraints: %w", err)
	}
	return sel, nil
}

// upsert replaces the stored selections within tx.
func (r *sqliteSelectionsRepository) upsert(
	ctx context.Context,
	tx *sql.Tx,
	userID int,
	sel WizardSelections,
	updatedAt time.Time,
) error {
	equipment, err := marshalJSONColumn(sel.Equipment)
	if err != nil {
		return fmt.Errorf("equipment: %w", err)
	}
	muscles, err := marshalJSONColumn(sel.TargetMuscles)
	if err != nil {
		return fmt.Errorf("target muscles: %w", err)
	}
	constraints, err := marshalJSONColumn(sel.Constraints)
	if err != nil {
		return fmt.Errorf("constraints: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wizard_selections (
			user_id, goal, experience_level, equipment, target_muscles, constraints,
			days_per_week, session_duration_minutes, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			goal = excluded.goal,
			experience_level = excluded.experience_level,
			equipment = excluded.equipment,
			target_muscles = excluded.target_muscles,
			constraints = excluded.constraints,
			days_per_week = excluded.days_per_week,
			session_duration_minutes = excluded.session_duration_minutes,
			updated_at = excluded.updated_at`,
		userID, sel.Goal, sel.ExperienceLevel, equipment, muscles, constraints,
		sel.DaysPerWeek, sel.SessionDurationMinutes, formatTimestamp(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save wizard selections: %w", err)
	}
	return nil
}
