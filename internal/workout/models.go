package workout

import (
	"time"
)

// Goal is the primary training outcome the user is after.
type Goal string

const (
	GoalStrength    Goal = "strength"
	GoalHypertrophy Goal = "hypertrophy"
	GoalGeneral     Goal = "general"
)

// ExperienceLevel drives the weekly volume caps.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// Split is the training split taxonomy used to structure the week.
type Split string

const (
	SplitFullBody     Split = "full_body"
	SplitUpperLower   Split = "upper_lower"
	SplitPushPullLegs Split = "push_pull_legs"
)

// Muscle group identifiers used by the catalog, the volume caps and the wizard.
const (
	MuscleChest      = "chest"
	MuscleBack       = "back"
	MuscleShoulders  = "shoulders"
	MuscleBiceps     = "biceps"
	MuscleTriceps    = "triceps"
	MuscleQuads      = "quads"
	MuscleHamstrings = "hamstrings"
	MuscleGlutes     = "glutes"
	MuscleCalves     = "calves"
	MuscleCore       = "core"
)

// MuscleGroups returns every muscle group known to the generator in display order.
func MuscleGroups() []string {
	return []string{
		MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps, MuscleTriceps,
		MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves, MuscleCore,
	}
}

// PatternIsolation is the movement pattern that marks single-joint exercises.
const PatternIsolation = "isolation"

// VariationType classifies an exercise variation relative to the base exercise.
type VariationType string

const (
	VariationRegression  VariationType = "regression"
	VariationProgression VariationType = "progression"
	VariationAlternative VariationType = "alternative"
)

// Variation is an easier, harder or equivalent substitute for an exercise.
type Variation struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Type        VariationType `json:"type" yaml:"type"`
}

// Exercise represents a single catalog entry, e.g. Squat, Bench Press, etc.
type Exercise struct {
	ID                  string      `json:"id" yaml:"id"`
	Name                string      `json:"name" yaml:"name"`
	PrimaryMuscleGroups []string    `json:"primary_muscle_groups" yaml:"primary_muscle_groups"`
	MovementPatterns    []string    `json:"movement_patterns" yaml:"movement_patterns"`
	Equipment           []string    `json:"equipment" yaml:"equipment"`
	Contraindications   []string    `json:"contraindications" yaml:"contraindications"`
	Cues                []string    `json:"cues,omitempty" yaml:"cues,omitempty"`
	Rationale           string      `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Variations          []Variation `json:"variations,omitempty" yaml:"variations,omitempty"`
}

// IsIsolation reports whether the exercise is a single-joint movement.
func (e Exercise) IsIsolation() bool {
	for _, p := range e.MovementPatterns {
		if p == PatternIsolation {
			return true
		}
	}
	return false
}

// IndexExercises maps exercise IDs to catalog entries.
func IndexExercises(exercises []Exercise) map[string]Exercise {
	index := make(map[string]Exercise, len(exercises))
	for _, ex := range exercises {
		index[ex.ID] = ex
	}
	return index
}

// ExercisePrescription is an exercise with its prescribed workload for one workout day.
type ExercisePrescription struct {
	Exercise    Exercise `json:"exercise"`
	Sets        int      `json:"sets"`
	Reps        string   `json:"reps"`
	RIR         float64  `json:"rir"`
	RestSeconds int      `json:"rest_seconds"`
	// SupersetGroup ties exercises performed back-to-back on the same day.
	SupersetGroup *string `json:"superset_group,omitempty"`
}

// WorkoutDay is one training session within the plan.
type WorkoutDay struct {
	DayIndex         int                    `json:"day_index"`
	Name             string                 `json:"name"`
	FocusTags        []string               `json:"focus_tags"`
	Exercises        []ExercisePrescription `json:"exercises"`
	EstimatedMinutes int                    `json:"estimated_minutes"`
}

// TotalSets sums the prescribed sets of the day.
func (d WorkoutDay) TotalSets() int {
	total := 0
	for _, ex := range d.Exercises {
		total += ex.Sets
	}
	return total
}

// WeeklyVolume summarises the weekly sets assigned to a muscle group.
type WeeklyVolume struct {
	Muscle      string `json:"muscle"`
	Sets        int    `json:"sets"`
	IsWithinCap bool   `json:"is_within_cap"`
}

// RIRProgression is one week of the mesocycle reps-in-reserve curve.
type RIRProgression struct {
	Week     int     `json:"week"`
	RIR      float64 `json:"rir"`
	IsDeload bool    `json:"is_deload"`
}

// WizardSelections are the user's answers to the plan wizard.
type WizardSelections struct {
	Goal                   Goal            `json:"goal" yaml:"goal"`
	ExperienceLevel        ExperienceLevel `json:"experience_level" yaml:"experience_level"`
	Equipment              []string        `json:"equipment" yaml:"equipment"`
	TargetMuscles          []string        `json:"target_muscles" yaml:"target_muscles"`
	Constraints            []string        `json:"constraints" yaml:"constraints"`
	DaysPerWeek            int             `json:"days_per_week" yaml:"days_per_week"`
	SessionDurationMinutes int             `json:"session_duration_minutes" yaml:"session_duration_minutes"`
}

// Plan is a generated multi-week training plan. It is immutable once created.
type Plan struct {
	ID             string           `json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	Selections     WizardSelections `json:"selections"`
	Split          Split            `json:"split"`
	WorkoutDays    []WorkoutDay     `json:"workout_days"`
	WeeklyVolume   []WeeklyVolume   `json:"weekly_volume"`
	RIRProgression []RIRProgression `json:"rir_progression"`
	Notes          []string         `json:"notes"`
}

// SetLog is a completed set recorded against a plan day.
type SetLog struct {
	PlanID     string    `json:"plan_id"`
	DayIndex   int       `json:"day_index"`
	ExerciseID string    `json:"exercise_id"`
	SetNumber  int       `json:"set_number"`
	WeightKg   *float64  `json:"weight_kg,omitempty"`
	Reps       int       `json:"reps"`
	RIR        *float64  `json:"rir,omitempty"`
	LoggedAt   time.Time `json:"logged_at"`
}
