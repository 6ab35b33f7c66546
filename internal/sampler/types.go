package sampler

import "context"

// FramePattern is the numbered output filename the decoder writes.
const FramePattern = "frame_%06d.jpg"

// VideoMetadata is stream-level information read without decoding frames.
type VideoMetadata struct {
	DurationSeconds float64 `json:"duration_seconds"`
	FrameRate       float64 `json:"frame_rate"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameCount      int64   `json:"frame_count"`
	HasAudio        bool    `json:"has_audio"`
}

// Frame is one sampled image.
type Frame struct {
	SequenceIndex    int
	TimestampSeconds float64
	Image            []byte
	// StoredPath is set only when the caller asked for frames to be kept.
	StoredPath string
}

// ExtractRequest describes one decode pass.
type ExtractRequest struct {
	InputPath       string
	IntervalSeconds float64
	MaxWidth        int
	Quality         int
	// MaxFrames caps the number of frames written; 0 means no cap.
	MaxFrames int
	OutputDir string
	Pattern   string
}

// Decoder is the media capability the sampler depends on. FFmpegDecoder is
// the production implementation.
type Decoder interface {
	Probe(ctx context.Context, path string) (VideoMetadata, error)
	Extract(ctx context.Context, req ExtractRequest) error
}

// Options controls a single SampleFrames call.
type Options struct {
	IntervalSeconds float64
	MaxWidth        int
	// DestinationDir, when set, receives a persisted copy of every frame.
	DestinationDir string
}
