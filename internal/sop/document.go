package sop

// Document is a synthesized standard operating procedure. The JSON tags are
// the wire contract with the generation service.
type Document struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SafetyNotes []string `json:"safety_notes"`
	Steps       []Step   `json:"steps"`
}

// Step is one atomic instruction.
type Step struct {
	StepNumber       int     `json:"step_number"`
	Instruction      string  `json:"instruction"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
	Reasoning        string  `json:"reasoning,omitempty"`
}

// Clone returns a deep copy so callers never share slices.
func (d Document) Clone() Document {
	out := d
	if d.SafetyNotes != nil {
		out.SafetyNotes = append([]string(nil), d.SafetyNotes...)
	}
	if d.Steps != nil {
		out.Steps = append([]Step(nil), d.Steps...)
	}
	return out
}
