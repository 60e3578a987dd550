// Package catalog provides the static exercise catalog the plan generator selects from.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/myrjola/fitplan/internal/workout"
	"gopkg.in/yaml.v3"
)

//go:embed exercises.yaml
var embeddedCatalog []byte

var ErrInvalidCatalog = errors.New("invalid exercise catalog")

type catalogFile struct {
	Exercises []workout.Exercise `yaml:"exercises"`
}

// Load returns the built-in exercise catalog.
func Load() ([]workout.Exercise, error) {
	return Parse(embeddedCatalog)
}

// LoadFile reads a catalog from a YAML file with the same layout as the built-in one.
func LoadFile(path string) ([]workout.Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	exercises, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return exercises, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]workout.Exercise, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	if err := validate(f.Exercises); err != nil {
		return nil, err
	}
	return f.Exercises, nil
}

// validate reports every problem in the catalog at once.
func validate(exercises []workout.Exercise) error {
	if len(exercises) == 0 {
		return fmt.Errorf("%w: no exercises", ErrInvalidCatalog)
	}

	var (
		errs         []error
		seenIDs      = make(map[string]bool, len(exercises))
		knownMuscles = workout.MuscleGroups()
	)
	for i, ex := range exercises {
		if ex.ID == "" {
			errs = append(errs, fmt.Errorf("%w: exercise #%d has no id", ErrInvalidCatalog, i))
		} else if seenIDs[ex.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, ex.ID))
		}
		seenIDs[ex.ID] = true

		if ex.Name == "" {
			errs = append(errs, fmt.Errorf("%w: exercise %q has no name", ErrInvalidCatalog, ex.ID))
		}
		if len(ex.PrimaryMuscleGroups) == 0 {
			errs = append(errs, fmt.Errorf("%w: exercise %q has no primary muscle groups", ErrInvalidCatalog, ex.ID))
		}
		for _, m := range ex.PrimaryMuscleGroups {
			if !slices.Contains(knownMuscles, m) {
				errs = append(errs, fmt.Errorf("%w: exercise %q has unknown muscle group %q", ErrInvalidCatalog, ex.ID, m))
			}
		}
		for _, v := range ex.Variations {
			switch v.Type {
			case workout.VariationRegression, workout.VariationProgression, workout.VariationAlternative:
			default:
				errs = append(errs, fmt.Errorf("%w: exercise %q variation %q has unknown type %q",
					ErrInvalidCatalog, ex.ID, v.Name, v.Type))
			}
		}
	}
	return errors.Join(errs...)
}
