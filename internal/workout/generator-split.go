package workout

import (
	"slices"
)

// Focus tags attached to workout days.
const (
	FocusFullBody = "full_body"
	FocusUpper    = "upper"
	FocusLower    = "lower"
	FocusPush     = "push"
	FocusPull     = "pull"
	FocusCore     = "core"
	FocusQuads    = "quads"
	FocusHinge    = "hinge"
)

// DayTemplate is the name and focus of a training day before exercises are allocated.
type DayTemplate struct {
	Name      string
	FocusTags []string
}

// SelectSplit maps the weekly training frequency to a split. Values outside the validated range
// fall into the nearest bucket.
func SelectSplit(daysPerWeek int) Split {
	switch {
	case daysPerWeek <= 3: //nolint:mnd // three or fewer days train full body.
		return SplitFullBody
	case daysPerWeek == 4: //nolint:mnd // four days alternate upper and lower.
		return SplitUpperLower
	default:
		return SplitPushPullLegs
	}
}

//nolint:gochecknoglobals // static templates.
var (
	upperLowerTemplate = []DayTemplate{
		{Name: "Upper A", FocusTags: []string{FocusUpper, FocusPush}},
		{Name: "Lower A", FocusTags: []string{FocusLower, FocusQuads}},
		{Name: "Upper B", FocusTags: []string{FocusUpper, FocusPull}},
		{Name: "Lower B", FocusTags: []string{FocusLower, FocusHinge}},
	}
	pushPullLegsTemplate = []DayTemplate{
		{Name: "Push", FocusTags: []string{FocusPush}},
		{Name: "Pull", FocusTags: []string{FocusPull}},
		{Name: "Legs", FocusTags: []string{FocusLower}},
	}
)

// WorkoutDayStructure expands the split into an ordered list of daysPerWeek day templates.
func WorkoutDayStructure(split Split, daysPerWeek int) []DayTemplate {
	if daysPerWeek <= 0 {
		return []DayTemplate{}
	}

	var days []DayTemplate
	switch split {
	case SplitFullBody:
		days = make([]DayTemplate, 0, daysPerWeek)
		for i := range daysPerWeek {
			days = append(days, DayTemplate{
				Name:      "Full Body " + dayLetter(i),
				FocusTags: []string{FocusFullBody},
			})
		}
	case SplitUpperLower:
		days = cloneTemplates(upperLowerTemplate)
	case SplitPushPullLegs:
		days = cloneTemplates(pushPullLegsTemplate)
		for _, d := range pushPullLegsTemplate {
			days = append(days, DayTemplate{Name: d.Name + " 2", FocusTags: slices.Clone(d.FocusTags)})
		}
	default:
		return []DayTemplate{}
	}

	if len(days) > daysPerWeek {
		days = days[:daysPerWeek]
	}
	return days
}

// dayLetter returns A, B, C, ... and continues with AA, AB after Z.
func dayLetter(i int) string {
	const letters = 26
	if i < letters {
		return string(rune('A' + i))
	}
	return dayLetter(i/letters-1) + dayLetter(i%letters)
}

func cloneTemplates(templates []DayTemplate) []DayTemplate {
	out := make([]DayTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, DayTemplate{Name: t.Name, FocusTags: slices.Clone(t.FocusTags)})
	}
	return out
}

//nolint:gochecknoglobals // static lookup table.
var categoryMuscles = map[string][]string{
	FocusUpper: {MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps, MuscleTriceps},
	FocusLower: {MuscleQuads, MuscleHamstrings, MuscleGlutes, MuscleCalves},
	FocusPush:  {MuscleChest, MuscleShoulders, MuscleTriceps},
	FocusPull:  {MuscleBack, MuscleBiceps},
	FocusCore:  {MuscleCore},
}

// MusclesForDay resolves the day's focus tags into the target muscles trained that day.
func MusclesForDay(focusTags []string, targetMuscles []string, split Split) []string {
	if split == SplitFullBody {
		return uniqueMuscles(targetMuscles)
	}

	var implied []string
	includeCore := false
	for _, tag := range focusTags {
		implied = append(implied, categoryMuscles[tag]...)
		switch tag {
		case FocusUpper, FocusLower, FocusPush, FocusPull:
			includeCore = true
		}
	}
	if includeCore {
		implied = append(implied, categoryMuscles[FocusCore]...)
	}

	muscles := []string{}
	for _, m := range implied {
		if slices.Contains(muscles, m) || !slices.Contains(targetMuscles, m) {
			continue
		}
		muscles = append(muscles, m)
	}
	return muscles
}

// FilterExercises keeps the exercises the user has equipment for and that are not contraindicated
// by any of the user's constraints. Catalog order is preserved.
func FilterExercises(catalog []Exercise, equipment []string, constraints []string) []Exercise {
	filtered := []Exercise{}
	for _, ex := range catalog {
		if !hasAllEquipment(ex, equipment) || isContraindicated(ex, constraints) {
			continue
		}
		filtered = append(filtered, ex)
	}
	return filtered
}

func hasAllEquipment(ex Exercise, equipment []string) bool {
	for _, required := range ex.Equipment {
		if !slices.Contains(equipment, required) {
			return false
		}
	}
	return true
}

func isContraindicated(ex Exercise, constraints []string) bool {
	for _, c := range ex.Contraindications {
		if slices.Contains(constraints, c) {
			return true
		}
	}
	return false
}
