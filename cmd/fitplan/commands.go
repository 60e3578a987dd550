package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/outbox"
	"github.com/myrjola/fitplan/internal/remote"
	"github.com/myrjola/fitplan/internal/render"
	"github.com/myrjola/fitplan/internal/workout"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const optimizeInterval = time.Hour

var (
	errInvalidSelections = errors.NewSentinel("invalid wizard selections")
	errMissingFlag       = errors.NewSentinel("missing required flag")
	errUnknownFormat     = errors.NewSentinel("unknown output format")
	errNoRemote          = errors.NewSentinel("FITPLAN_POSTGRES_DSN is not set")
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// readSelections decodes wizard selections from a YAML (or JSON) file. "-" reads stdin.
func readSelections(path string) (workout.WizardSelections, error) {
	if path == "" {
		return workout.WizardSelections{}, errors.Wrap(errMissingFlag, "selections file", slog.String("flag", "f"))
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return workout.WizardSelections{}, errors.Wrap(err, "read selections", slog.String("path", path))
	}
	var sel workout.WizardSelections
	if err = yaml.Unmarshal(data, &sel); err != nil {
		return workout.WizardSelections{}, errors.Wrap(err, "decode selections", slog.String("path", path))
	}
	return sel, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode json")
	}
	return nil
}

func writePlan(w io.Writer, plan workout.Plan, format string) error {
	switch format {
	case "markdown", "md":
		_, err := io.WriteString(w, render.Markdown(plan))
		return errors.Wrap(err, "write markdown")
	case "html":
		html, err := render.HTML(plan)
		if err != nil {
			return errors.Wrap(err, "render html")
		}
		_, err = io.WriteString(w, html)
		return errors.Wrap(err, "write html")
	case "json":
		return writeJSON(w, plan)
	default:
		return errors.Wrap(errUnknownFormat, "write plan", slog.String("format", format))
	}
}

func cmdValidate(_ context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("validate")
	file := fs.String("f", "", "wizard selections YAML file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}

	sel, err := readSelections(*file)
	if err != nil {
		return err
	}
	result := workout.ValidateWizardInputs(sel)
	if err = writeJSON(stdout, result); err != nil {
		return err
	}
	if !result.Valid {
		return errInvalidSelections
	}
	return nil
}

func (app *application) cmdGenerate(ctx context.Context, args []string) error {
	fs := newFlagSet("generate")
	file := fs.String("f", "", "wizard selections YAML file, - for stdin")
	format := fs.String("format", "markdown", "output format: markdown, html or json")
	save := fs.Bool("save", false, "store the selections so the wizard can be resumed")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}

	sel, err := readSelections(*file)
	if err != nil {
		return err
	}
	if *save {
		if err = app.workoutService.SaveSelections(ctx, sel); err != nil {
			return errors.Wrap(err, "save selections")
		}
	}
	plan, err := app.workoutService.GeneratePlan(ctx, sel)
	if err != nil {
		return errors.Wrap(err, "generate plan")
	}
	return writePlan(app.stdout, plan, *format)
}

func (app *application) cmdPlans(ctx context.Context, args []string) error {
	fs := newFlagSet("plans")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	plans, err := app.workoutService.ListPlans(ctx)
	if err != nil {
		return errors.Wrap(err, "list plans")
	}
	return writeJSON(app.stdout, plans)
}

func (app *application) cmdShow(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	planID := fs.String("plan", "", "plan ID")
	format := fs.String("format", "markdown", "output format: markdown, html or json")
	sets := fs.Bool("sets", false, "print the logged sets as JSON instead of the plan")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	if *planID == "" {
		return errors.Wrap(errMissingFlag, "show", slog.String("flag", "plan"))
	}

	if *sets {
		logs, err := app.workoutService.ListSetLogs(ctx, *planID)
		if err != nil {
			return errors.Wrap(err, "list set logs")
		}
		return writeJSON(app.stdout, logs)
	}

	plan, err := app.workoutService.GetPlan(ctx, *planID)
	if err != nil {
		return errors.Wrap(err, "get plan")
	}
	return writePlan(app.stdout, plan, *format)
}

// optionalFloat is a flag.Value that stays nil unless set.
type optionalFloat struct {
	v *float64
}

func (f *optionalFloat) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.FormatFloat(*f.v, 'f', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse float: %w", err)
	}
	f.v = &v
	return nil
}

func (app *application) cmdLogSet(ctx context.Context, args []string) error {
	fs := newFlagSet("logset")
	planID := fs.String("plan", "", "plan ID")
	day := fs.Int("day", 0, "zero based day index")
	exerciseID := fs.String("exercise", "", "exercise ID")
	setNumber := fs.Int("set", 1, "set number starting from 1")
	reps := fs.Int("reps", 0, "completed repetitions")
	var weight, rir optionalFloat
	fs.Var(&weight, "weight", "weight in kg, omit for bodyweight")
	fs.Var(&rir, "rir", "reps in reserve")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	if *planID == "" || *exerciseID == "" {
		return errors.Wrap(errMissingFlag, "logset", slog.String("flag", "plan and exercise"))
	}

	log := workout.SetLog{
		PlanID:     *planID,
		DayIndex:   *day,
		ExerciseID: *exerciseID,
		SetNumber:  *setNumber,
		WeightKg:   weight.v,
		Reps:       *reps,
		RIR:        rir.v,
		LoggedAt:   time.Time{},
	}
	if err := app.workoutService.LogSet(ctx, log); err != nil {
		return errors.Wrap(err, "log set")
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "logged set",
		slog.String("plan_id", log.PlanID),
		slog.String("exercise_id", log.ExerciseID),
		slog.Int("set", log.SetNumber))
	return nil
}

func (app *application) cmdDrain(ctx context.Context, args []string) error {
	fs := newFlagSet("drain")
	watch := fs.Duration("watch", 0, "keep draining at this interval until interrupted")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parse flags")
	}
	if app.cfg.PostgresDSN == "" {
		return errNoRemote
	}

	if err := remote.Migrate(app.cfg.PostgresDSN); err != nil {
		return errors.Wrap(err, "migrate remote")
	}
	store, err := remote.New(ctx, app.cfg.PostgresDSN, app.logger)
	if err != nil {
		return errors.Wrap(err, "connect remote")
	}
	defer store.Close()

	ob := outbox.New(app.db, app.logger, store, app.cfg.DrainConcurrency)
	if *watch <= 0 {
		result, drainErr := ob.Drain(ctx)
		if drainErr != nil {
			return errors.Wrap(drainErr, "drain outbox")
		}
		return writeJSON(app.stdout, result)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ob.Run(gctx, *watch)
	})
	g.Go(func() error {
		return app.db.RunOptimizer(gctx, optimizeInterval)
	})
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run drainer")
	}
	return nil
}
