package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// schemaVersion is stored in PRAGMA user_version. Bump it whenever schema.sql changes.
const schemaVersion = 1

// migrate applies schema.sql when the live database is older than schemaVersion.
//
// Every statement in schema.sql is idempotent so that a partially migrated database converges.
func (db *Database) migrate(ctx context.Context) error {
	start := time.Now()

	var liveVersion int
	if err := db.ReadWrite.QueryRowContext(ctx, "PRAGMA user_version").Scan(&liveVersion); err != nil {
		return fmt.Errorf("query user_version: %w", err)
	}
	if liveVersion > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", liveVersion, schemaVersion)
	}
	if liveVersion == schemaVersion {
		return nil
	}

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaDefinition); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.Int("from_version", liveVersion),
		slog.Int("to_version", schemaVersion),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// WithTx runs fn in a read-write transaction. The transaction is committed when fn returns nil and
// rolled back otherwise.
func (db *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer db.rollback(ctx, tx)()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rollback rolls back given transaction.
func (db *Database) rollback(ctx context.Context, tx *sql.Tx) func() {
	return func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			err = fmt.Errorf("rollback transaction: %w", err)
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", slog.Any("error", err))
		}
	}
}
