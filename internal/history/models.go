package history

import "time"

// Status is the terminal outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Timings holds the wall-clock duration of each pipeline step.
type Timings struct {
	Transcription time.Duration `json:"transcription"`
	Extraction    time.Duration `json:"extraction"`
	Analysis      time.Duration `json:"analysis"`
	Rendering     time.Duration `json:"rendering"`
	Total         time.Duration `json:"total"`
}

// Run is one recorded pipeline execution.
type Run struct {
	ID              string    `json:"id"`
	VideoPath       string    `json:"video_path"`
	OutputPath      string    `json:"output_path,omitempty"`
	Title           string    `json:"title,omitempty"`
	Status          Status    `json:"status"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	StepCount       int       `json:"step_count"`
	FrameCount      int       `json:"frame_count"`
	TranscriptChars int       `json:"transcript_chars"`
	Model           string    `json:"model,omitempty"`
	Timings         Timings   `json:"timings"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Failed reports whether the run ended in error.
func (r Run) Failed() bool {
	return r.Status == StatusFailed
}
