package pipeline

import (
	"context"
	"fmt"
	"time"

	"sopgen/internal/history"
	"sopgen/internal/sampler"
	"sopgen/internal/sop"
)

// Timings holds per-step wall-clock durations.
type Timings = history.Timings

// Request describes one video-to-procedure run.
type Request struct {
	VideoPath string
	// OutputPath defaults to <output_dir>/<video stem>_sop.pdf.
	OutputPath string
	// Context is free text describing the task domain.
	Context string
	// Company overrides render.company for this run.
	Company string
	// IntervalSeconds and MaxWidth override the sampler config when positive.
	IntervalSeconds float64
	MaxWidth        int
	KeepFrames      bool
	// FramesDir overrides paths.frames_dir when KeepFrames is set.
	FramesDir string
	// SkipRender stops after synthesis; OutputPath is left untouched.
	SkipRender bool
}

// Result is a completed run.
type Result struct {
	RunID           string                `json:"run_id"`
	VideoPath       string                `json:"video_path"`
	OutputPath      string                `json:"output_path,omitempty"`
	Metadata        sampler.VideoMetadata `json:"metadata"`
	Document        sop.Document          `json:"document"`
	FrameCount      int                   `json:"frame_count"`
	FramesDir       string                `json:"frames_dir,omitempty"`
	TranscriptChars int                   `json:"transcript_chars"`
	Advisories      []string              `json:"advisories,omitempty"`
	Model           string                `json:"model,omitempty"`
	Timings         Timings               `json:"timings"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
}

// StageError names the step that stopped a run.
type StageError struct {
	Stage string
	RunID string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Transcriber produces an optional transcript; it never fails.
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) string
}

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}
