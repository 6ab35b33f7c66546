package sop

import "fmt"

// Advisories reports properties of a valid document that are worth a warning
// but never reject it: duplicate or out-of-order step numbers, timestamps
// that go backwards, and timestamps at or beyond the video duration. A
// duration of zero skips the range check.
func Advisories(doc Document, durationSeconds float64) []string {
	var notes []string
	seen := make(map[int]int, len(doc.Steps))
	for i, step := range doc.Steps {
		if first, dup := seen[step.StepNumber]; dup {
			notes = append(notes, fmt.Sprintf("step_number %d appears at positions %d and %d", step.StepNumber, first+1, i+1))
		} else {
			seen[step.StepNumber] = i
		}
		if i == 0 {
			continue
		}
		prev := doc.Steps[i-1]
		if step.StepNumber <= prev.StepNumber {
			notes = append(notes, fmt.Sprintf("step_number %d follows %d", step.StepNumber, prev.StepNumber))
		}
		if step.TimestampSeconds < prev.TimestampSeconds {
			notes = append(notes, fmt.Sprintf("step %d timestamp %.2fs is earlier than step %d at %.2fs",
				step.StepNumber, step.TimestampSeconds, prev.StepNumber, prev.TimestampSeconds))
		}
	}
	if durationSeconds > 0 {
		for _, step := range doc.Steps {
			if step.TimestampSeconds >= durationSeconds {
				notes = append(notes, fmt.Sprintf("step %d timestamp %.2fs is beyond the video duration %.2fs",
					step.StepNumber, step.TimestampSeconds, durationSeconds))
			}
		}
	}
	return notes
}
