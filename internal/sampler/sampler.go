package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sopgen/internal/config"
	"sopgen/internal/logging"
	"sopgen/internal/progress"
	"sopgen/internal/services"
)

const stageName = "sampling"

// Sampler turns a video into an ordered sequence of timestamped frames.
type Sampler struct {
	decoder     Decoder
	scratchRoot string
	quality     int
	timeout     time.Duration
	logger      *slog.Logger
	reporter    progress.Reporter
}

// Option customizes the sampler.
type Option func(*Sampler)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = logging.NewComponentLogger(logger, "sampler")
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(r progress.Reporter) Option {
	return func(s *Sampler) {
		s.reporter = r
	}
}

// New constructs a sampler from configuration. A nil decoder selects
// FFmpegDecoder with the configured binaries.
func New(cfg *config.Config, decoder Decoder, opts ...Option) *Sampler {
	s := &Sampler{
		decoder: decoder,
		quality: 2,
		timeout: 10 * time.Minute,
		logger:  logging.NewComponentLogger(nil, "sampler"),
	}
	if cfg != nil {
		s.scratchRoot = cfg.Paths.ScratchDir
		s.quality = cfg.Sampler.JPEGQuality
		if t := cfg.SamplerTimeout(); t > 0 {
			s.timeout = t
		}
		if s.decoder == nil {
			s.decoder = NewFFmpegDecoder(cfg.Sampler.FFmpegBinary, cfg.Sampler.FFprobeBinary)
		}
	}
	if s.decoder == nil {
		s.decoder = NewFFmpegDecoder("", "")
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetVideoMetadata reads stream-level metadata without decoding frames.
func (s *Sampler) GetVideoMetadata(ctx context.Context, path string) (VideoMetadata, error) {
	if err := checkInput(path); err != nil {
		return VideoMetadata{}, err
	}
	meta, err := s.decoder.Probe(ctx, path)
	if err != nil {
		return VideoMetadata{}, services.Wrap(services.ErrMediaUnreadable, stageName, "probe", fmt.Sprintf("cannot read %s", filepath.Base(path)), err)
	}
	return meta, nil
}

func checkInput(path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrMediaUnreadable, stageName, "open", "video path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrMediaUnreadable, stageName, "open", fmt.Sprintf("cannot access %s", path), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrMediaUnreadable, stageName, "open", fmt.Sprintf("%s is a directory", path), nil)
	}
	return nil
}

// FrameBudget returns how many frames a video of the given duration yields at
// the interval: ceil(duration/interval), one frame for every timestamp
// i*interval strictly below the duration. Unknown durations return 0.
func FrameBudget(durationSeconds, intervalSeconds float64) int {
	if durationSeconds <= 0 || intervalSeconds <= 0 {
		return 0
	}
	n := math.Ceil(durationSeconds / intervalSeconds)
	// Guard against 10/2 landing on 5.000000001.
	if exact := math.Round(durationSeconds / intervalSeconds); math.Abs(exact-durationSeconds/intervalSeconds) < 1e-9 {
		n = exact
	}
	return int(n)
}

// SampleFrames extracts one frame per interval starting at time zero. Decoding
// always happens in a private scratch directory that is removed before
// returning, on every path. When opts.DestinationDir is set, frames are also
// written there under unique names.
func (s *Sampler) SampleFrames(ctx context.Context, path string, opts Options) (frames []Frame, err error) {
	if opts.IntervalSeconds <= 0 || math.IsNaN(opts.IntervalSeconds) || math.IsInf(opts.IntervalSeconds, 0) {
		return nil, services.Wrap(services.ErrValidation, stageName, "options", fmt.Sprintf("interval must be a positive number of seconds, got %v", opts.IntervalSeconds), nil)
	}
	if opts.MaxWidth <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "options", fmt.Sprintf("max width must be positive, got %d", opts.MaxWidth), nil)
	}

	meta, err := s.GetVideoMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	budget := FrameBudget(meta.DurationSeconds, opts.IntervalSeconds)

	scratchRoot := s.scratchRoot
	if scratchRoot != "" {
		if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
			return nil, services.Wrap(services.ErrExtractionFailed, stageName, "scratch", "create scratch root", err)
		}
	}
	scratch, err := os.MkdirTemp(scratchRoot, "sopgen-frames-")
	if err != nil {
		return nil, services.Wrap(services.ErrExtractionFailed, stageName, "scratch", "create scratch directory", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			logging.WarnWithContext(s.logger, "scratch cleanup failed", "scratch_cleanup_failed",
				logging.String("path", scratch),
				logging.Error(rmErr),
				logging.String(logging.FieldImpact, "temporary frames remain on disk"),
			)
			if err == nil {
				frames = nil
				err = services.Wrap(services.ErrExtractionFailed, stageName, "scratch", "remove scratch directory", rmErr)
			}
		}
	}()

	decodeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	extractErr := s.decoder.Extract(decodeCtx, ExtractRequest{
		InputPath:       path,
		IntervalSeconds: opts.IntervalSeconds,
		MaxWidth:        opts.MaxWidth,
		Quality:         s.quality,
		MaxFrames:       budget,
		OutputDir:       scratch,
		Pattern:         FramePattern,
	})
	if extractErr != nil {
		return nil, classifyExtractError(decodeCtx, ctx, s.timeout, extractErr)
	}

	files, err := listFrames(scratch)
	if err != nil {
		return nil, services.Wrap(services.ErrExtractionFailed, stageName, "collect", "list extracted frames", err)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrExtractionFailed, stageName, "collect",
			fmt.Sprintf("decoder produced no frames (duration %.2fs, interval %gs)", meta.DurationSeconds, opts.IntervalSeconds), nil)
	}
	if budget > 0 && len(files) > budget {
		s.logger.Debug("dropping surplus frames",
			logging.Int("extracted", len(files)),
			logging.Int("budget", budget),
		)
		files = files[:budget]
	}

	var persistDir, token string
	if dest := strings.TrimSpace(opts.DestinationDir); dest != "" {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return nil, services.Wrap(services.ErrExtractionFailed, stageName, "persist", "create destination directory", err)
		}
		persistDir = dest
		token = persistToken(ctx)
	}

	frames = make([]Frame, 0, len(files))
	for i, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, services.Wrap(services.ErrExtractionFailed, stageName, "collect", "read frame", err)
		}
		frame := Frame{
			SequenceIndex:    i + 1,
			TimestampSeconds: float64(i) * opts.IntervalSeconds,
			Image:            data,
		}
		if persistDir != "" {
			stored := filepath.Join(persistDir, fmt.Sprintf("%s_frame_%06d.jpg", token, frame.SequenceIndex))
			if err := writeExclusive(stored, data); err != nil {
				return nil, services.Wrap(services.ErrExtractionFailed, stageName, "persist", "write frame", err)
			}
			frame.StoredPath = stored
		}
		frames = append(frames, frame)
		progress.Emit(s.reporter, progress.Event{
			Stage:   progress.StageSampling,
			Current: frame.SequenceIndex,
			Total:   len(files),
			Detail:  fmt.Sprintf("frame %d at %.2fs", frame.SequenceIndex, frame.TimestampSeconds),
		})
	}

	s.logger.Info("frames sampled",
		logging.Int("frame_count", len(frames)),
		logging.Float64("interval_seconds", opts.IntervalSeconds),
		logging.Int("max_width", opts.MaxWidth),
		logging.Float64("duration_seconds", meta.DurationSeconds),
		logging.Duration("elapsed", time.Since(started)),
		logging.Bool("persisted", persistDir != ""),
	)
	return frames, nil
}

func classifyExtractError(decodeCtx, parent context.Context, timeout time.Duration, err error) error {
	switch {
	case errors.Is(decodeCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil:
		return services.Wrap(services.ErrExtractionFailed, stageName, "decode",
			fmt.Sprintf("decode exceeded %s", timeout), fmt.Errorf("%w: %w", services.ErrTimeout, err))
	case parent.Err() != nil:
		return services.Wrap(services.ErrExtractionFailed, stageName, "decode", "decode interrupted", parent.Err())
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrExtractionFailed, stageName, "decode", "decode tool not found", err)
	default:
		return services.Wrap(services.ErrExtractionFailed, stageName, "decode", "decode tool failed", err)
	}
}

func listFrames(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	// Zero-padded names sort in sample order.
	sort.Strings(matches)
	return matches, nil
}

func persistToken(ctx context.Context) string {
	if id, ok := services.RunIDFromContext(ctx); ok {
		return shortID(id)
	}
	return shortID(uuid.NewString())
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
