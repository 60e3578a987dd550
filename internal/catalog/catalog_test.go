package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/myrjola/fitplan/internal/catalog"
	"github.com/myrjola/fitplan/internal/workout"
)

func TestLoad(t *testing.T) {
	exercises, err := catalog.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Every muscle group needs at least one bodyweight exercise or the generator cannot serve
	// users without equipment.
	for _, muscle := range workout.MuscleGroups() {
		found := slices.ContainsFunc(exercises, func(ex workout.Exercise) bool {
			return len(ex.Equipment) == 0 && slices.Contains(ex.PrimaryMuscleGroups, muscle)
		})
		if !found {
			t.Errorf("no bodyweight exercise for %s", muscle)
		}
	}

	squat := workout.IndexExercises(exercises)["back-squat"]
	if diff := cmp.Diff([]string{"knee", "lower_back"}, squat.Contraindications); diff != "" {
		t.Errorf("back squat contraindications mismatch (-want +got):\n%s", diff)
	}
	if len(squat.Variations) != 2 || squat.Variations[0].Type != workout.VariationRegression {
		t.Errorf("unexpected back squat variations %+v", squat.Variations)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "empty",
			yaml: "exercises: []",
		},
		{
			name: "duplicate id",
			yaml: `
exercises:
  - {id: a, name: A, primary_muscle_groups: [chest]}
  - {id: a, name: B, primary_muscle_groups: [back]}`,
		},
		{
			name: "unknown muscle",
			yaml: `
exercises:
  - {id: a, name: A, primary_muscle_groups: [forearms]}`,
		},
		{
			name: "missing name and muscles",
			yaml: `
exercises:
  - {id: a}`,
		},
		{
			name: "unknown variation type",
			yaml: `
exercises:
  - id: a
    name: A
    primary_muscle_groups: [chest]
    variations:
      - {name: B, description: harder, type: sideways}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := catalog.Parse([]byte(tt.yaml)); !errors.Is(err, catalog.ErrInvalidCatalog) {
				t.Errorf("Parse() error = %v, want %v", err, catalog.ErrInvalidCatalog)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`
exercises:
  - id: wall-sit
    name: Wall Sit
    primary_muscle_groups: [quads]
    movement_patterns: [isometric]
    equipment: []
    contraindications: [knee]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	got, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := []workout.Exercise{{
		ID:                  "wall-sit",
		Name:                "Wall Sit",
		PrimaryMuscleGroups: []string{"quads"},
		MovementPatterns:    []string{"isometric"},
		Equipment:           []string{},
		Contraindications:   []string{"knee"},
		Cues:                nil,
		Rationale:           "",
		Variations:          nil,
	}}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("LoadFile mismatch (-want +got):\n%s", diff)
	}
}
