package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func TestNewDatabase_CreatesSchema(t *testing.T) {
	t.Parallel()
	db := newTestDatabase(t)
	ctx := t.Context()

	rows, err := db.ReadOnly.QueryContext(ctx,
		"SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("query tables: %v", err)
	}
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		tables = append(tables, name)
	}
	if err = rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	want := []string{
		"outbox", "plan_days", "plan_prescriptions", "plan_rir_progression", "plan_weekly_volume",
		"plans", "set_logs", "wizard_selections",
	}
	if diff := cmp.Diff(want, tables); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}

	var version int
	if err = db.ReadOnly.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	db := newTestDatabase(t)
	if err := db.migrate(t.Context()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if _, err := db.ReadWrite.ExecContext(t.Context(), "PRAGMA user_version = 0"); err != nil {
		t.Fatalf("reset user_version: %v", err)
	}
	if err := db.migrate(t.Context()); err != nil {
		t.Fatalf("re-apply schema: %v", err)
	}
}

func TestWithTx(t *testing.T) {
	t.Parallel()
	db := newTestDatabase(t)
	ctx := t.Context()
	insert := func(tx *sql.Tx, key string) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO outbox (kind, op_key, payload, created_at) VALUES ('test', ?, x'00', '2026-01-01')", key)
		return err
	}

	errBoom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insert(tx, "rolled-back"); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTx error = %v, want %v", err, errBoom)
	}

	if err = db.WithTx(ctx, func(tx *sql.Tx) error { return insert(tx, "committed") }); err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	keys := queryKeys(ctx, t, db)
	if diff := cmp.Diff([]string{"committed"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	if err = db.Optimize(ctx); err != nil {
		t.Errorf("Optimize: %v", err)
	}
}

func queryKeys(ctx context.Context, t *testing.T, db *Database) []string {
	t.Helper()
	rows, err := db.ReadOnly.QueryContext(ctx, "SELECT op_key FROM outbox ORDER BY id")
	if err != nil {
		t.Fatalf("query keys: %v", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err = rows.Scan(&k); err != nil {
			t.Fatalf("scan: %v", err)
		}
		keys = append(keys, k)
	}
	return keys
}
