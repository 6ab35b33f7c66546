package synthesis

import (
	_ "embed"
	"strconv"
	"strings"
	"text/template"

	"sopgen/internal/sampler"
)

// DefaultContext is used when the caller supplies no task context.
const DefaultContext = "Manufacturing/assembly process"

//go:embed prompt.tmpl
var promptSource string

var promptTemplate = template.Must(template.New("prompt").Parse(promptSource))

type promptFrame struct {
	Index     int
	Timestamp string
}

type promptData struct {
	Context    string
	FrameCount int
	Frames     []promptFrame
	Transcript string
}

func renderPrompt(frames []sampler.Frame, contextText, transcript string) (string, error) {
	data := promptData{
		Context:    strings.TrimSpace(contextText),
		FrameCount: len(frames),
		Frames:     make([]promptFrame, 0, len(frames)),
		Transcript: transcript,
	}
	if data.Context == "" {
		data.Context = DefaultContext
	}
	if strings.TrimSpace(transcript) == "" {
		data.Transcript = ""
	}
	for _, f := range frames {
		data.Frames = append(data.Frames, promptFrame{
			Index:     f.SequenceIndex,
			Timestamp: strconv.FormatFloat(f.TimestampSeconds, 'f', 2, 64),
		})
	}
	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
