// Command fitplan validates wizard selections, generates training plans and replicates them.
//
// Usage:
//
//	fitplan validate -f selections.yaml
//	fitplan generate -f selections.yaml [-format markdown|html|json] [-save]
//	fitplan plans
//	fitplan show -plan ID [-format markdown|html|json]
//	fitplan logset -plan ID -day N -exercise ID -set N -reps N [-weight KG] [-rir N]
//	fitplan drain [-watch INTERVAL]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/myrjola/fitplan/internal/catalog"
	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/envstruct"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/myrjola/fitplan/internal/workout"
)

type config struct {
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITPLAN_SQLITE_URL" envDefault:"./fitplan.sqlite3"`
	// PostgresDSN is the optional remote database the outbox drains into.
	PostgresDSN string `env:"FITPLAN_POSTGRES_DSN" envDefault:""`
	// CatalogPath overrides the built-in exercise catalog with a YAML file.
	CatalogPath string `env:"FITPLAN_CATALOG_PATH" envDefault:""`
	// DrainConcurrency limits how many outbox keys are drained in parallel.
	DrainConcurrency int `env:"FITPLAN_DRAIN_CONCURRENCY" envDefault:"4"`
	// UserID owns the selections, plans and set logs created by the CLI.
	UserID int `env:"FITPLAN_USER_ID" envDefault:"1"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"FITPLAN_LOG_LEVEL" envDefault:"info"`
}

// application holds the dependencies shared by the subcommands.
type application struct {
	cfg            config
	logger         *slog.Logger
	db             *sqlite.Database
	workoutService *workout.Service
	stdout         io.Writer
}

var errUsage = errors.NewSentinel("usage: fitplan <validate|generate|plans|show|logset|drain> [flags]")

func run(ctx context.Context, cfg config, logger *slog.Logger, args []string, stdout io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.DecoratePanic(r)
		}
	}()

	if len(args) == 0 {
		return errUsage
	}
	command, args := args[0], args[1:]
	ctx = logging.WithAttrs(ctx, slog.String("command", command))

	// validate needs neither the database nor the catalog.
	if command == "validate" {
		return cmdValidate(ctx, args, stdout)
	}

	exercises, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return errors.Wrap(err, "load catalog", slog.String("path", cfg.CatalogPath))
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if optErr := db.Optimize(context.WithoutCancel(ctx)); optErr != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "optimize before close", errors.SlogError(optErr))
		}
		err = errors.Join(err, db.Close())
	}()

	app := &application{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		workoutService: workout.NewService(db, logger, exercises),
		stdout:         stdout,
	}
	ctx = contexthelpers.WithAuthenticatedUserID(ctx, cfg.UserID)

	switch command {
	case "generate":
		return app.cmdGenerate(ctx, args)
	case "plans":
		return app.cmdPlans(ctx, args)
	case "show":
		return app.cmdShow(ctx, args)
	case "logset":
		return app.cmdLogSet(ctx, args)
	case "drain":
		return app.cmdDrain(ctx, args)
	default:
		return errors.Wrap(errUsage, "unknown command", slog.String("command", command))
	}
}

func loadCatalog(path string) ([]workout.Exercise, error) {
	if path == "" {
		return catalog.Load()
	}
	return catalog.LoadFile(path)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "populate config: %v\n", err)
		os.Exit(2) //nolint:gocritic // cancel is a no-op before any work starts.
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure logger: %v\n", err)
		os.Exit(2)
	}

	if err = run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil {
		var validationErr *workout.ValidationError
		if errors.As(err, &validationErr) {
			for _, msg := range validationErr.Messages {
				fmt.Fprintln(os.Stderr, msg)
			}
		}
		logger.LogAttrs(ctx, slog.LevelError, "fitplan failed", errors.SlogError(err))
		cancel()
		os.Exit(1)
	}
}
