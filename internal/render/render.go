// Package render formats plans as Markdown and HTML.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/myrjola/fitplan/internal/workout"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer renders GitHub flavoured tables. Raw HTML in exercise names is escaped.
//
//nolint:gochecknoglobals // goldmark instances are safe for concurrent use.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithXHTML(),
	),
)

// Markdown renders the plan as a Markdown document.
func Markdown(plan workout.Plan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Training plan %s\n\n", plan.ID)
	for _, note := range plan.Notes {
		fmt.Fprintf(&b, "- %s\n", escape(note))
	}

	for _, day := range plan.WorkoutDays {
		fmt.Fprintf(&b, "\n## %s\n\n", escape(day.Name))
		fmt.Fprintf(&b, "Focus: %s. Estimated %d min.\n\n", strings.Join(day.FocusTags, ", "), day.EstimatedMinutes)
		if len(day.Exercises) == 0 {
			b.WriteString("_No exercises scheduled._\n")
			continue
		}
		b.WriteString("| Exercise | Sets | Reps | RIR | Rest |\n")
		b.WriteString("| --- | ---: | --- | ---: | ---: |\n")
		for _, ex := range day.Exercises {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %d s |\n",
				escape(ex.Exercise.Name), ex.Sets, ex.Reps, formatRIR(ex.RIR), ex.RestSeconds)
		}
	}

	if len(plan.WeeklyVolume) > 0 {
		b.WriteString("\n## Weekly volume\n\n")
		b.WriteString("| Muscle | Sets | Within cap |\n")
		b.WriteString("| --- | ---: | --- |\n")
		for _, v := range plan.WeeklyVolume {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", escape(v.Muscle), v.Sets, yesNo(v.IsWithinCap))
		}
	}

	if len(plan.RIRProgression) > 0 {
		b.WriteString("\n## RIR progression\n\n")
		b.WriteString("| Week | RIR | Deload |\n")
		b.WriteString("| ---: | ---: | --- |\n")
		for _, p := range plan.RIRProgression {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", p.Week, formatRIR(p.RIR), yesNo(p.IsDeload))
		}
	}

	return b.String()
}

// HTML renders the plan as an HTML fragment.
func HTML(plan workout.Plan) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(Markdown(plan)), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

func formatRIR(rir float64) string {
	return strconv.FormatFloat(rir, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// escape keeps user supplied text from breaking table cells or starting Markdown syntax.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
