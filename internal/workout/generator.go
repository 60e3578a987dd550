// Package workout provides functionality to generate personalized multi-week training plans.
package workout

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generation constants.
const (
	// MaxSetsPerExercise caps how many sets a single exercise receives within a day.
	MaxSetsPerExercise = 4
	// DefaultVolumeCap is used for muscles missing from the volume cap table.
	DefaultVolumeCap = 10
	// DefaultRIR is the reps-in-reserve target written into each prescription.
	DefaultRIR = 2
	// MinutesPerSet estimates the session duration including rest.
	MinutesPerSet = 3
)

// Rep ranges and rest periods for the training goals.
const (
	StrengthReps    = "3-6"
	HypertrophyReps = "8-12"
	GeneralReps     = "8-15"

	StrengthRestSeconds    = 180
	HypertrophyRestSeconds = 90
	GeneralRestSeconds     = 60
)

// VolumeCaps holds the weekly set ceiling per muscle group for each experience level.
//
//nolint:gochecknoglobals // static lookup table.
var VolumeCaps = map[ExperienceLevel]map[string]int{
	ExperienceBeginner: {
		MuscleChest: 10, MuscleBack: 10, MuscleShoulders: 8, MuscleBiceps: 6, MuscleTriceps: 6,
		MuscleQuads: 10, MuscleHamstrings: 8, MuscleGlutes: 8, MuscleCalves: 6, MuscleCore: 6,
	},
	ExperienceIntermediate: {
		MuscleChest: 16, MuscleBack: 16, MuscleShoulders: 12, MuscleBiceps: 10, MuscleTriceps: 10,
		MuscleQuads: 14, MuscleHamstrings: 12, MuscleGlutes: 12, MuscleCalves: 10, MuscleCore: 10,
	},
	ExperienceAdvanced: {
		MuscleChest: 20, MuscleBack: 20, MuscleShoulders: 16, MuscleBiceps: 14, MuscleTriceps: 14,
		MuscleQuads: 18, MuscleHamstrings: 14, MuscleGlutes: 16, MuscleCalves: 12, MuscleCore: 12,
	},
}

// volumeCap looks up the weekly cap, falling back to DefaultVolumeCap.
func volumeCap(level ExperienceLevel, muscle string) int {
	if c, ok := VolumeCaps[level][muscle]; ok {
		return c
	}
	return DefaultVolumeCap
}

// goalPrescription holds the per-goal prescription fields.
type goalPrescription struct {
	reps        string
	restSeconds int
}

func prescriptionForGoal(goal Goal) goalPrescription {
	switch goal {
	case GoalStrength:
		return goalPrescription{reps: StrengthReps, restSeconds: StrengthRestSeconds}
	case GoalHypertrophy:
		return goalPrescription{reps: HypertrophyReps, restSeconds: HypertrophyRestSeconds}
	case GoalGeneral:
		return goalPrescription{reps: GeneralReps, restSeconds: GeneralRestSeconds}
	default:
		return goalPrescription{reps: GeneralReps, restSeconds: GeneralRestSeconds}
	}
}

// DefaultRIRProgression returns the four week mesocycle ending in a deload week.
func DefaultRIRProgression() []RIRProgression {
	return []RIRProgression{
		{Week: 1, RIR: 3, IsDeload: false},
		{Week: 2, RIR: 2, IsDeload: false},
		{Week: 3, RIR: 1, IsDeload: false},
		{Week: 4, RIR: 4, IsDeload: true},
	}
}

// Generator generates training plans from a static exercise catalog.
type Generator struct {
	// catalog of all available exercises.
	catalog []Exercise
	// progression attached to every generated plan.
	progression []RIRProgression
	// now stamps the plan creation time.
	now func() time.Time
	// newID produces unique plan identifiers.
	newID func() string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRIRProgression overrides the default RIR progression.
func WithRIRProgression(progression []RIRProgression) GeneratorOption {
	return func(g *Generator) {
		g.progression = slices.Clone(progression)
	}
}

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithIDGenerator overrides the plan ID source.
func WithIDGenerator(newID func() string) GeneratorOption {
	return func(g *Generator) {
		g.newID = newID
	}
}

// NewGenerator constructs a plan generator over the exercise catalog.
func NewGenerator(catalog []Exercise, opts ...GeneratorOption) *Generator {
	g := &Generator{
		catalog:     catalog,
		progression: DefaultRIRProgression(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a plan for pre-validated selections. It never fails; degenerate inputs produce
// plans with empty days or zero volume.
func (g *Generator) Generate(sel WizardSelections) Plan {
	split := SelectSplit(sel.DaysPerWeek)
	structure := WorkoutDayStructure(split, sel.DaysPerWeek)
	pool := FilterExercises(g.catalog, sel.Equipment, sel.Constraints)

	// Selections are kept as entered, allocation sees each muscle once.
	targets := sel
	targets.TargetMuscles = uniqueMuscles(sel.TargetMuscles)
	alloc := newVolumeAllocator(targets, pool)
	days := make([]WorkoutDay, 0, len(structure))
	for i, tmpl := range structure {
		muscles := MusclesForDay(tmpl.FocusTags, targets.TargetMuscles, split)
		days = append(days, alloc.buildDay(i, tmpl, muscles))
	}

	return Plan{
		ID:             g.newID(),
		CreatedAt:      g.now(),
		Selections:     sel,
		Split:          split,
		WorkoutDays:    days,
		WeeklyVolume:   alloc.weeklyVolume(),
		RIRProgression: slices.Clone(g.progression),
		Notes:          generationNotes(split, sel),
	}
}

// volumeAllocator carries the weekly volume tally across the days of a single generation run.
type volumeAllocator struct {
	selections WizardSelections
	pool       []Exercise
	// weeklyVolumeTracker maps muscle to sets already assigned this week.
	weeklyVolumeTracker map[string]int
	prescription        goalPrescription
}

func newVolumeAllocator(sel WizardSelections, pool []Exercise) *volumeAllocator {
	tracker := make(map[string]int, len(sel.TargetMuscles))
	for _, m := range sel.TargetMuscles {
		tracker[m] = 0
	}
	return &volumeAllocator{
		selections:          sel,
		pool:                pool,
		weeklyVolumeTracker: tracker,
		prescription:        prescriptionForGoal(sel.Goal),
	}
}

// buildDay allocates the day's muscles in order. Exercise uniqueness is scoped to the day.
func (a *volumeAllocator) buildDay(dayIndex int, tmpl DayTemplate, muscles []string) WorkoutDay {
	usedExerciseIDs := make(map[string]bool)
	exercises := []ExercisePrescription{}
	for _, muscle := range muscles {
		exercises = append(exercises, a.allocateMuscle(muscle, usedExerciseIDs)...)
	}

	day := WorkoutDay{
		DayIndex:         dayIndex,
		Name:             tmpl.Name,
		FocusTags:        slices.Clone(tmpl.FocusTags),
		Exercises:        exercises,
		EstimatedMinutes: 0,
	}
	day.EstimatedMinutes = day.TotalSets() * MinutesPerSet
	return day
}

// perDayTarget spreads the weekly cap over roughly half of the training days.
func perDayTarget(weeklyCap, daysPerWeek int) int {
	relevantDays := max(1, ceilDiv(daysPerWeek, 2)) //nolint:mnd // muscles are trained every other day.
	return ceilDiv(weeklyCap, relevantDays)
}

// allocateMuscle selects exercises for a muscle on one day and updates the weekly tally.
func (a *volumeAllocator) allocateMuscle(muscle string, usedExerciseIDs map[string]bool) []ExercisePrescription {
	weeklyCap := volumeCap(a.selections.ExperienceLevel, muscle)
	remainingCap := weeklyCap - a.weeklyVolumeTracker[muscle]
	if remainingCap <= 0 {
		return nil
	}
	target := min(perDayTarget(weeklyCap, a.selections.DaysPerWeek), remainingCap)

	var (
		selected     []ExercisePrescription
		setsAssigned int
	)
	for _, ex := range candidatesForMuscle(a.pool, muscle) {
		if setsAssigned >= target {
			break
		}
		if usedExerciseIDs[ex.ID] {
			continue
		}
		sets := min(MaxSetsPerExercise, target-setsAssigned)
		usedExerciseIDs[ex.ID] = true
		setsAssigned += sets
		selected = append(selected, ExercisePrescription{
			Exercise:      ex,
			Sets:          sets,
			Reps:          a.prescription.reps,
			RIR:           DefaultRIR,
			RestSeconds:   a.prescription.restSeconds,
			SupersetGroup: nil,
		})
	}

	a.weeklyVolumeTracker[muscle] += setsAssigned
	return selected
}

// candidatesForMuscle returns exercises training the muscle with compound movements first.
// Ties keep catalog order.
func candidatesForMuscle(pool []Exercise, muscle string) []Exercise {
	var compound, isolation []Exercise
	for _, ex := range pool {
		if !slices.Contains(ex.PrimaryMuscleGroups, muscle) {
			continue
		}
		if ex.IsIsolation() {
			isolation = append(isolation, ex)
		} else {
			compound = append(compound, ex)
		}
	}
	return append(compound, isolation...)
}

// weeklyVolume summarises the tally, one entry per target muscle.
func (a *volumeAllocator) weeklyVolume() []WeeklyVolume {
	volume := make([]WeeklyVolume, 0, len(a.selections.TargetMuscles))
	for _, muscle := range a.selections.TargetMuscles {
		sets := a.weeklyVolumeTracker[muscle]
		volume = append(volume, WeeklyVolume{
			Muscle:      muscle,
			Sets:        sets,
			IsWithinCap: sets <= volumeCap(a.selections.ExperienceLevel, muscle),
		})
	}
	return volume
}

// generationNotes describes the decisions behind the plan.
func generationNotes(split Split, sel WizardSelections) []string {
	notes := []string{
		fmt.Sprintf("Split: %s (%d days/week)", splitDisplayName(split), sel.DaysPerWeek),
		fmt.Sprintf("Goal: %s", sel.Goal),
		fmt.Sprintf("Experience: %s", sel.ExperienceLevel),
	}
	if len(sel.Constraints) > 0 {
		notes = append(notes, fmt.Sprintf("Constraints applied: %s", strings.Join(sel.Constraints, ", ")))
	}
	return notes
}

func splitDisplayName(split Split) string {
	switch split {
	case SplitFullBody:
		return "Full Body"
	case SplitUpperLower:
		return "Upper/Lower"
	case SplitPushPullLegs:
		return "Push/Pull/Legs"
	default:
		return string(split)
	}
}

// uniqueMuscles drops repeated muscles, keeping the first occurrence.
func uniqueMuscles(muscles []string) []string {
	unique := make([]string, 0, len(muscles))
	for _, m := range muscles {
		if !slices.Contains(unique, m) {
			unique = append(unique, m)
		}
	}
	return unique
}

// ceilDiv divides rounding towards positive infinity for non-negative a and positive b.
func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
