package workout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/myrjola/fitplan/internal/sqlite"
)

// sqliteSetLogRepository records performed sets against plan days.
type sqliteSetLogRepository struct {
	baseRepository
}

func newSQLiteSetLogRepository(db *sqlite.Database, logger *slog.Logger) *sqliteSetLogRepository {
	return &sqliteSetLogRepository{
		baseRepository: newBaseRepository(db, logger),
	}
}

// upsert records the set, replacing an earlier log of the same set number.
func (r *sqliteSetLogRepository) upsert(ctx context.Context, tx *sql.Tx, log SetLog) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO set_logs (plan_id, day_index, exercise_id, set_number, weight_kg, reps, rir, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (plan_id, day_index, exercise_id, set_number) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			reps = excluded.reps,
			rir = excluded.rir,
			logged_at = excluded.logged_at`,
		log.PlanID, log.DayIndex, log.ExerciseID, log.SetNumber, log.WeightKg, log.Reps, log.RIR,
		formatTimestamp(log.LoggedAt),
	)
	if err != nil {
		return fmt.Errorf("save set log: %w", err)
	}
	return nil
}

// List returns the plan's set logs ordered by day, exercise and set number.
func (r *sqliteSetLogRepository) List(ctx context.Context, planID string) (_ []SetLog, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, `
		SELECT plan_id, day_index, exercise_id, set_number, weight_kg, reps, rir, logged_at
		FROM set_logs
		WHERE plan_id = ?
		ORDER BY day_index, exercise_id, set_number`, planID)
	if err != nil {
		return nil, fmt.Errorf("query set logs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close rows: %w", closeErr))
		}
	}()

	logs := []SetLog{}
	for rows.Next() {
		var (
			log      SetLog
			weightKg sql.NullFloat64
			rir      sql.NullFloat64
			loggedAt string
		)
		if err = rows.Scan(&log.PlanID, &log.DayIndex, &log.ExerciseID, &log.SetNumber,
			&weightKg, &log.Reps, &rir, &loggedAt); err != nil {
			return nil, fmt.Errorf("scan set log: %w", err)
		}
		if weightKg.Valid {
			log.WeightKg = &weightKg.Float64
		}
		if rir.Valid {
			log.RIR = &rir.Float64
		}
		if log.LoggedAt, err = parseTimestamp(loggedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return logs, nil
}
