package workout

import (
	"fmt"
	"strings"
)

// Wizard input bounds.
const (
	MinDaysPerWeek            = 2
	MaxDaysPerWeek            = 6
	MinSessionDurationMinutes = 30
)

// Validation messages shown next to the wizard form fields.
const (
	ErrMsgGoalRequired      = "Please select a training goal"
	ErrMsgGoalUnknown       = "Unknown training goal"
	ErrMsgEquipmentRequired = "Please select at least one equipment option"
	ErrMsgMusclesRequired   = "Please select at least one target muscle group"
	ErrMsgDaysPerWeekRange  = "Days per week must be between 2 and 6"
	ErrMsgSessionTooShort   = "Session duration must be at least 30 minutes"
)

// ValidationResult lists every violated wizard rule.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateWizardInputs checks the selections before generation. It reports all violations rather
// than stopping at the first one.
func ValidateWizardInputs(sel WizardSelections) ValidationResult {
	errs := []string{}

	switch sel.Goal {
	case "":
		errs = append(errs, ErrMsgGoalRequired)
	case GoalStrength, GoalHypertrophy, GoalGeneral:
	default:
		errs = append(errs, ErrMsgGoalUnknown)
	}
	if len(sel.Equipment) == 0 {
		errs = append(errs, ErrMsgEquipmentRequired)
	}
	if len(sel.TargetMuscles) == 0 {
		errs = append(errs, ErrMsgMusclesRequired)
	}
	if sel.DaysPerWeek < MinDaysPerWeek || sel.DaysPerWeek > MaxDaysPerWeek {
		errs = append(errs, ErrMsgDaysPerWeekRange)
	}
	if sel.SessionDurationMinutes < MinSessionDurationMinutes {
		errs = append(errs, ErrMsgSessionTooShort)
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidationError is returned by the service when the selections fail validation.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid wizard selections: %s", strings.Join(e.Messages, "; "))
}
