package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sopgen/internal/config"
	"sopgen/internal/history"
	"sopgen/internal/logging"
	"sopgen/internal/notifications"
	"sopgen/internal/progress"
	"sopgen/internal/render"
	"sopgen/internal/sampler"
	"sopgen/internal/services"
	"sopgen/internal/services/llm"
	"sopgen/internal/services/transcribe"
	"sopgen/internal/sop"
	"sopgen/internal/synthesis"
)

const (
	stageConfig  = "config"
	stageProbe   = "probe"
	lockWait     = 2 * time.Second
	outputSuffix = "_sop.pdf"
)

// Pipeline runs the linear steps: probe, transcribe, sample, synthesize,
// render. A Pipeline may serve many runs but executes them one at a time.
type Pipeline struct {
	cfg         *config.Config
	decoder     sampler.Decoder
	generator   synthesis.Generator
	model       string
	transcriber Transcriber
	recorder    Recorder
	notifier    notifications.Service
	reporter    progress.Reporter
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithDecoder replaces the ffmpeg decoder.
func WithDecoder(d sampler.Decoder) Option {
	return func(p *Pipeline) { p.decoder = d }
}

// WithGenerator replaces the generation client.
func WithGenerator(g synthesis.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// WithTranscriber replaces the transcription collaborator.
func WithTranscriber(t Transcriber) Option {
	return func(p *Pipeline) { p.transcriber = t }
}

// WithRecorder records every run outcome.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithNotifier replaces the ntfy service.
func WithNotifier(n notifications.Service) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithReporter attaches a progress reporter.
func WithReporter(r progress.Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New wires the production collaborators from cfg. Options replace any of them.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageConfig, "load", "configuration is required", nil)
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.generator == nil {
		client := llm.NewClient(llm.ConfigFromSettings(cfg.LLM))
		p.generator = client
		p.model = client.Model()
	} else if m, ok := p.generator.(interface{ Model() string }); ok {
		p.model = m.Model()
	}
	if p.transcriber == nil {
		p.transcriber = transcribe.New(cfg, transcribe.WithLogger(p.logger))
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	return p, nil
}

// Run executes one video-to-procedure run. Any stage failure ends the run;
// only transcription degrades instead of failing.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := p.now()
	runID := p.newID()
	ctx = services.WithRunID(ctx, runID)
	reporter := progress.WithRunID(p.reporter, runID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.logger, "pipeline"))

	result := &Result{RunID: runID, VideoPath: req.VideoPath, Model: p.model, StartedAt: started.UTC()}
	stage := stageConfig
	err := p.execute(ctx, req, result, reporter, logger, &stage)
	result.FinishedAt = p.now().UTC()
	result.Timings.Total = result.FinishedAt.Sub(result.StartedAt)

	if err != nil {
		stageErr := &StageError{Stage: stage, RunID: runID, Err: err}
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.String(logging.FieldStage, stage),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)
		p.record(ctx, logger, result, stageErr)
		p.notify(ctx, logger, notifications.EventRunFailed, notifications.Payload{
			"video": filepath.Base(req.VideoPath),
			"stage": stage,
			"error": err,
		})
		return nil, stageErr
	}

	progress.Emit(reporter, progress.Event{Stage: progress.StageComplete, Percent: 100, Detail: result.OutputPath})
	logger.Info("run complete",
		logging.String("title", result.Document.Title),
		logging.Int("step_count", len(result.Document.Steps)),
		logging.Int("frame_count", result.FrameCount),
		logging.String("output", result.OutputPath),
		logging.Duration("total", result.Timings.Total),
	)
	p.record(ctx, logger, result, nil)
	p.notify(ctx, logger, notifications.EventRunCompleted, notifications.Payload{
		"title":    result.Document.Title,
		"steps":    len(result.Document.Steps),
		"output":   result.OutputPath,
		"duration": result.Timings.Total,
	})
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, req Request, result *Result, reporter progress.Reporter, logger *slog.Logger, stage *string) error {
	if err := p.cfg.RequireLLMKey(); err != nil {
		return services.Wrap(services.ErrConfiguration, stageConfig, "credentials", "", err)
	}
	opts, outputPath, err := p.resolve(req)
	if err != nil {
		return err
	}
	result.OutputPath = outputPath
	result.FramesDir = opts.DestinationDir

	samp := sampler.New(p.cfg, p.decoder, sampler.WithLogger(p.logger), sampler.WithReporter(reporter))

	*stage = stageProbe
	meta, err := samp.GetVideoMetadata(ctx, req.VideoPath)
	if err != nil {
		return err
	}
	result.Metadata = meta
	logger.Info("video probed",
		logging.Float64("duration_seconds", meta.DurationSeconds),
		logging.Int("width", meta.Width),
		logging.Int("height", meta.Height),
		logging.Bool("has_audio", meta.HasAudio),
		logging.Int("expected_frames", sampler.FrameBudget(meta.DurationSeconds, opts.IntervalSeconds)),
	)

	*stage = progress.StageTranscription
	transcript := ""
	stepStart := time.Now()
	if meta.HasAudio {
		progress.Emit(reporter, progress.Event{Stage: progress.StageTranscription, Percent: -1, Detail: "transcribing audio"})
		transcript = p.transcriber.Transcribe(services.WithStage(ctx, progress.StageTranscription), req.VideoPath)
	} else {
		logger.Info("transcription skipped: video has no audio stream")
	}
	result.Timings.Transcription = time.Since(stepStart)
	result.TranscriptChars = len(transcript)

	*stage = progress.StageSampling
	stepStart = time.Now()
	frames, err := samp.SampleFrames(services.WithStage(ctx, progress.StageSampling), req.VideoPath, opts)
	result.Timings.Extraction = time.Since(stepStart)
	if err != nil {
		return err
	}
	result.FrameCount = len(frames)

	*stage = progress.StageSynthesis
	stepStart = time.Now()
	synth := synthesis.New(p.cfg, p.generator, synthesis.WithLogger(p.logger), synthesis.WithReporter(reporter))
	synthCtx := services.WithStage(ctx, progress.StageSynthesis)
	llmReq, err := synth.BuildRequest(frames, req.Context, transcript)
	if err != nil {
		return err
	}
	doc, err := synth.Synthesize(synthCtx, llmReq)
	result.Timings.Analysis = time.Since(stepStart)
	if err != nil {
		return err
	}
	result.Document = doc
	result.Advisories = sop.Advisories(doc, meta.DurationSeconds)
	for _, note := range result.Advisories {
		logging.WarnWithContext(logger, "procedure advisory", "procedure_advisory",
			logging.String("advisory", note),
			logging.String(logging.FieldImpact, "document is kept as returned"),
		)
	}

	if req.SkipRender {
		result.OutputPath = ""
		return nil
	}
	*stage = progress.StageRendering
	stepStart = time.Now()
	progress.Emit(reporter, progress.Event{Stage: progress.StageRendering, Percent: -1, Detail: outputPath})
	renderer := render.New(p.cfg, render.WithLogger(p.logger), render.WithCompany(req.Company))
	err = withOutputLock(ctx, outputPath, func() error {
		return renderer.RenderFile(services.WithStage(ctx, progress.StageRendering), doc, frames, outputPath)
	})
	result.Timings.Rendering = time.Since(stepStart)
	return err
}

func (p *Pipeline) resolve(req Request) (sampler.Options, string, error) {
	if strings.TrimSpace(req.VideoPath) == "" {
		return sampler.Options{}, "", services.Wrap(services.ErrValidation, stageConfig, "request", "video path is required", nil)
	}
	opts := sampler.Options{
		IntervalSeconds: p.cfg.Sampler.IntervalSeconds,
		MaxWidth:        p.cfg.Sampler.MaxWidth,
	}
	if req.IntervalSeconds > 0 {
		opts.IntervalSeconds = req.IntervalSeconds
	}
	if req.MaxWidth > 0 {
		opts.MaxWidth = req.MaxWidth
	}
	if req.KeepFrames || p.cfg.Sampler.KeepFrames {
		dir := firstNonEmpty(req.FramesDir, p.cfg.Paths.FramesDir)
		if dir == "" {
			return sampler.Options{}, "", services.Wrap(services.ErrValidation, stageConfig, "request", "keep frames requested without a frames directory", nil)
		}
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return sampler.Options{}, "", services.Wrap(services.ErrValidation, stageConfig, "request", "frames directory", err)
		}
		opts.DestinationDir = expanded
	}

	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		stem := strings.TrimSuffix(filepath.Base(req.VideoPath), filepath.Ext(req.VideoPath))
		output = filepath.Join(firstNonEmpty(p.cfg.Paths.OutputDir, "."), stem+outputSuffix)
	}
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return sampler.Options{}, "", services.Wrap(services.ErrValidation, stageConfig, "request", "output path", err)
	}
	return opts, expanded, nil
}

// withOutputLock serializes writers of the same output file across processes.
func withOutputLock(ctx context.Context, outputPath string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, progress.StageRendering, "lock", "create output directory", err)
	}
	lockPath := outputPath + ".lock"
	lock := flock.New(lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrConfiguration, progress.StageRendering, "lock", lockPath, err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, progress.StageRendering, "lock",
			fmt.Sprintf("%s is being written by another run", filepath.Base(outputPath)), nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()
	return fn()
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, result *Result, runErr *StageError) {
	if p.recorder == nil {
		return
	}
	run := history.Run{
		ID:              result.RunID,
		VideoPath:       result.VideoPath,
		OutputPath:      result.OutputPath,
		Title:           result.Document.Title,
		Status:          history.StatusSucceeded,
		StepCount:       len(result.Document.Steps),
		FrameCount:      result.FrameCount,
		TranscriptChars: result.TranscriptChars,
		Model:           result.Model,
		Timings:         result.Timings,
		StartedAt:       result.StartedAt,
		FinishedAt:      result.FinishedAt,
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.OutputPath = ""
		run.ErrorKind = services.Kind(runErr)
		run.ErrorMessage = runErr.Error()
	}
	// Recording must outlive a cancelled run context.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.recorder.Record(recordCtx, run); err != nil {
		logging.WarnWithContext(logger, "run history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is missing from `sopgen history`"),
		)
	}
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := p.notifier.Publish(notifyCtx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push notification for this run"),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
