package sop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"sopgen/internal/services/llm"
)

// ValidationError lists every reason a response failed the document schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "document failed validation: " + strings.Join(e.Problems, "; ")
}

// wire mirrors Document with pointers so absent fields can be told apart
// from zero values.
type wireDocument struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	SafetyNotes []string     `json:"safety_notes"`
	Steps       *[]*wireStep `json:"steps"`
}

type wireStep struct {
	StepNumber       *json.RawMessage `json:"step_number"`
	Instruction      *string          `json:"instruction"`
	TimestampSeconds *json.RawMessage `json:"timestamp_seconds"`
	Reasoning        *string          `json:"reasoning"`
}

// Decode parses a raw model response into a Document. At most one code fence
// around the payload is removed. The result is returned only when every
// required field is present and well-formed; otherwise the error is a
// *ValidationError or a JSON syntax/type error. Unknown keys are ignored.
func Decode(raw string) (Document, error) {
	payload := llm.UnwrapCodeFence(raw)
	if payload == "" {
		return Document{}, errors.New("empty response")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var wire wireDocument
	if err := dec.Decode(&wire); err != nil {
		return Document{}, fmt.Errorf("response is not a JSON document: %w", err)
	}
	if dec.More() {
		return Document{}, errors.New("response has trailing content after the JSON document")
	}

	var problems []string
	doc := Document{}

	switch {
	case wire.Title == nil:
		problems = append(problems, "title is missing")
	case strings.TrimSpace(*wire.Title) == "":
		problems = append(problems, "title is empty")
	default:
		doc.Title = *wire.Title
	}
	if wire.Description != nil {
		doc.Description = *wire.Description
	}
	doc.SafetyNotes = append([]string{}, wire.SafetyNotes...)

	switch {
	case wire.Steps == nil || *wire.Steps == nil:
		problems = append(problems, "steps is missing")
	case len(*wire.Steps) == 0:
		problems = append(problems, "steps is empty")
	default:
		doc.Steps = make([]Step, 0, len(*wire.Steps))
		for i, ws := range *wire.Steps {
			step, stepProblems := decodeStep(i, ws)
			problems = append(problems, stepProblems...)
			doc.Steps = append(doc.Steps, step)
		}
	}

	if len(problems) > 0 {
		return Document{}, &ValidationError{Problems: problems}
	}
	return doc, nil
}

func decodeStep(i int, ws *wireStep) (Step, []string) {
	label := fmt.Sprintf("steps[%d]", i)
	if ws == nil {
		return Step{}, []string{label + " is null"}
	}
	var step Step
	var problems []string

	if ws.StepNumber == nil {
		problems = append(problems, label+".step_number is missing")
	} else if num, ok := numberLiteral(*ws.StepNumber); !ok {
		problems = append(problems, fmt.Sprintf("%s.step_number %s is not a number", label, *ws.StepNumber))
	} else if n, ok := integerValue(num); !ok {
		problems = append(problems, fmt.Sprintf("%s.step_number %s is not an integer", label, num))
	} else if n <= 0 {
		problems = append(problems, fmt.Sprintf("%s.step_number %d is not positive", label, n))
	} else {
		step.StepNumber = int(n)
	}

	if ws.Instruction == nil {
		problems = append(problems, label+".instruction is missing")
	} else if strings.TrimSpace(*ws.Instruction) == "" {
		problems = append(problems, label+".instruction is empty")
	} else {
		step.Instruction = *ws.Instruction
	}

	if ws.TimestampSeconds == nil {
		problems = append(problems, label+".timestamp_seconds is missing")
	} else if num, ok := numberLiteral(*ws.TimestampSeconds); !ok {
		problems = append(problems, fmt.Sprintf("%s.timestamp_seconds %s is not a number", label, *ws.TimestampSeconds))
	} else if ts, err := num.Float64(); err != nil {
		problems = append(problems, fmt.Sprintf("%s.timestamp_seconds %s is out of range", label, num))
	} else if ts < 0 {
		problems = append(problems, fmt.Sprintf("%s.timestamp_seconds %v is negative", label, ts))
	} else {
		step.TimestampSeconds = ts
	}

	if ws.Reasoning != nil {
		step.Reasoning = *ws.Reasoning
	}
	return step, problems
}

// numberLiteral accepts only a bare JSON number. Quoted numbers such as "12"
// are strings on the wire and are rejected.
func numberLiteral(raw json.RawMessage) (json.Number, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

// integerValue accepts integer literals and integral floats such as 3.0.
func integerValue(n json.Number) (int64, bool) {
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int64(f), true
}
