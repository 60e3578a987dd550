// Package remote replicates plans, wizard selections and set logs to PostgreSQL.
//
// The local SQLite database stays the source of truth. Writes reach PostgreSQL through the
// outbox, which calls Store.Apply for every queued operation.
package remote

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/outbox"
	"github.com/myrjola/fitplan/internal/workout"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrUnknownOperation is returned for outbox operations the store does not handle.
var ErrUnknownOperation = errors.NewSentinel("unknown operation kind")

// Store wraps a pgxpool.Pool and applies outbox operations.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies all pending embedded migrations.
func Migrate(dsn string) (err error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return errors.Wrap(err, "create migrator")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		err = errors.Join(err, srcErr, dbErr)
	}()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// migrateURL rewrites a libpq style URL to the scheme of the pgx migrate driver.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// Apply implements outbox.Sink. Every operation is an upsert so replays are harmless.
func (s *Store) Apply(ctx context.Context, op outbox.Operation) error {
	switch op.Kind {
	case workout.OpPlanUpsert:
		var payload workout.PlanUpsert
		if err := op.Decode(&payload); err != nil {
			return err
		}
		return s.upsertPlan(ctx, payload)
	case workout.OpSelectionsUpsert:
		var payload workout.SelectionsUpsert
		if err := op.Decode(&payload); err != nil {
			return err
		}
		return s.upsertSelections(ctx, payload)
	case workout.OpSetLogUpsert:
		var payload workout.SetLogUpsert
		if err := op.Decode(&payload); err != nil {
			return err
		}
		return s.upsertSetLog(ctx, payload.SetLog)
	default:
		return errors.Wrap(ErrUnknownOperation, "apply", slog.String("kind", op.Kind))
	}
}

func (s *Store) upsertPlan(ctx context.Context, payload workout.PlanUpsert) error {
	plan := payload.Plan
	document, err := json.Marshal(plan)
	if err != nil {
		return errors.Wrap(err, "marshal plan")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO plans (id, user_id, split, goal, days, document, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			document = excluded.document,
			replicated_at = now()`,
		plan.ID, payload.UserID, string(plan.Split), string(plan.Selections.Goal), len(plan.WorkoutDays),
		document, plan.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "upsert plan", slog.String("plan_id", plan.ID))
	}
	return nil
}

func (s *Store) upsertSelections(ctx context.Context, payload workout.SelectionsUpsert) error {
	selections, err := json.Marshal(payload.Selections)
	if err != nil {
		return errors.Wrap(err, "marshal selections")
	}
	// Operations for a user are applied in order, the guard only protects against manual replays.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO wizard_selections (user_id, selections, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			selections = excluded.selections,
			updated_at = excluded.updated_at
		WHERE wizard_selections.updated_at <= excluded.updated_at`,
		payload.UserID, selections, payload.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "upsert selections", slog.Int("user_id", payload.UserID))
	}
	return nil
}

func (s *Store) upsertSetLog(ctx context.Context, log workout.SetLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO set_logs (plan_id, day_index, exercise_id, set_number, weight_kg, reps, rir, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (plan_id, day_index, exercise_id, set_number) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			reps = excluded.reps,
			rir = excluded.rir,
			logged_at = excluded.logged_at`,
		log.PlanID, log.DayIndex, log.ExerciseID, log.SetNumber, log.WeightKg, log.Reps, log.RIR, log.LoggedAt)
	if err != nil {
		return errors.Wrap(err, "upsert set log", slog.String("plan_id", log.PlanID))
	}
	return nil
}

// PlanCount returns the number of replicated plans of the user.
func (s *Store) PlanCount(ctx context.Context, userID int) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM plans WHERE user_id = $1", userID).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count plans")
	}
	return n, nil
}
