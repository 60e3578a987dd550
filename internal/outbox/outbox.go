// Package outbox queues write operations in SQLite and replays them to a remote sink.
//
// Operations are enqueued inside the same transaction as the local write so that the local
// database and the queue never disagree. Operations sharing a key are applied strictly in
// enqueue order; different keys are drained in parallel.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/sqlite"
	"golang.org/x/sync/errgroup"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// DefaultConcurrency is the number of keys drained in parallel when no limit is configured.
const DefaultConcurrency = 4

// Operation is a queued write waiting to be applied to the sink.
type Operation struct {
	ID        int64
	Kind      string
	Key       string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (op Operation) Decode(v any) error {
	if err := json.Unmarshal(op.Payload, v); err != nil {
		return errors.Wrap(err, "decode outbox payload", slog.String("kind", op.Kind))
	}
	return nil
}

// Sink applies operations to the remote store. Apply must be idempotent because an operation
// is retried until it succeeds.
type Sink interface {
	Apply(ctx context.Context, op Operation) error
}

// Enqueue stores an operation as part of tx. The payload is JSON encoded.
func Enqueue(ctx context.Context, tx *sql.Tx, kind string, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal outbox payload", slog.String("kind", kind))
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (kind, op_key, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		kind, key, data, time.Now().UTC().Format(timestampFormat))
	if err != nil {
		return errors.Wrap(err, "insert outbox operation", slog.String("kind", kind), slog.String("key", key))
	}
	return nil
}

// Outbox drains queued operations into a Sink.
type Outbox struct {
	db          *sqlite.Database
	logger      *slog.Logger
	sink        Sink
	concurrency int
}

// New creates an Outbox. A non-positive concurrency falls back to DefaultConcurrency.
func New(db *sqlite.Database, logger *slog.Logger, sink Sink, concurrency int) *Outbox {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Outbox{
		db:          db,
		logger:      logger,
		sink:        sink,
		concurrency: concurrency,
	}
}

// Pending lists the queued operations in enqueue order.
func (o *Outbox) Pending(ctx context.Context) (_ []Operation, err error) {
	rows, err := o.db.ReadOnly.QueryContext(ctx, `
		SELECT id, kind, op_key, payload, attempts, last_error, created_at
		FROM outbox
		ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query outbox")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close rows"))
		}
	}()

	var ops []Operation
	for rows.Next() {
		var (
			op        Operation
			createdAt string
		)
		if err = rows.Scan(&op.ID, &op.Kind, &op.Key, &op.Payload, &op.Attempts, &op.LastError, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan outbox operation")
		}
		if op.CreatedAt, err = time.Parse(timestampFormat, createdAt); err != nil {
			return nil, errors.Wrap(err, "parse created_at", slog.Int64("id", op.ID))
		}
		ops = append(ops, op)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return ops, nil
}

// DrainResult counts the outcome of a single Drain call.
type DrainResult struct {
	Applied int
	Failed  int
	// Blocked operations were not attempted because an earlier operation with the same key failed.
	Blocked int
}

// Drain applies every pending operation once. A failed operation is kept with its attempt count
// and error, and the remaining operations of its key wait for the next drain. Sink failures are
// reported in the result, only local database errors are returned.
func (o *Outbox) Drain(ctx context.Context) (DrainResult, error) {
	ops, err := o.Pending(ctx)
	if err != nil {
		return DrainResult{}, err
	}

	var applied, failed, blocked atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, keyOps := range groupByKey(ops) {
		g.Go(func() error {
			for i, op := range keyOps {
				if applyErr := o.sink.Apply(gctx, op); applyErr != nil {
					failed.Add(1)
					blocked.Add(int64(len(keyOps) - i - 1))
					o.logger.LogAttrs(gctx, slog.LevelWarn, "outbox operation failed",
						slog.Int64("id", op.ID),
						slog.String("kind", op.Kind),
						slog.String("key", op.Key),
						slog.Int("attempts", op.Attempts+1),
						errors.SlogError(applyErr))
					return o.markFailed(gctx, op, applyErr)
				}
				if delErr := o.delete(gctx, op); delErr != nil {
					return delErr
				}
				applied.Add(1)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return DrainResult{}, err
	}

	result := DrainResult{Applied: int(applied.Load()), Failed: int(failed.Load()), Blocked: int(blocked.Load())}
	if len(ops) > 0 {
		o.logger.LogAttrs(ctx, slog.LevelInfo, "drained outbox",
			slog.Int("applied", result.Applied),
			slog.Int("failed", result.Failed),
			slog.Int("blocked", result.Blocked))
	}
	return result, nil
}

// Run drains the outbox every interval until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := o.Drain(ctx); err != nil && ctx.Err() == nil {
			o.logger.LogAttrs(ctx, slog.LevelError, "drain outbox", errors.SlogError(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// groupByKey splits ops into per-key queues. Both the queues and their contents keep the
// order of first appearance.
func groupByKey(ops []Operation) [][]Operation {
	index := make(map[string]int)
	var groups [][]Operation
	for _, op := range ops {
		i, ok := index[op.Key]
		if !ok {
			i = len(groups)
			index[op.Key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], op)
	}
	return groups
}

func (o *Outbox) delete(ctx context.Context, op Operation) error {
	if _, err := o.db.ReadWrite.ExecContext(ctx, "DELETE FROM outbox WHERE id = ?", op.ID); err != nil {
		return errors.Wrap(err, "delete outbox operation", slog.Int64("id", op.ID))
	}
	return nil
}

func (o *Outbox) markFailed(ctx context.Context, op Operation, cause error) error {
	_, err := o.db.ReadWrite.ExecContext(ctx, `
		UPDATE outbox SET attempts = attempts + 1, last_error = ?
		WHERE id = ?`, cause.Error(), op.ID)
	if err != nil {
		return errors.Wrap(err, "mark outbox operation failed", slog.Int64("id", op.ID))
	}
	return nil
}
