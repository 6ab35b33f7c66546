package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sopgen/internal/config"
	"sopgen/internal/logging"
	"sopgen/internal/progress"
	"sopgen/internal/sampler"
	"sopgen/internal/services"
	"sopgen/internal/services/llm"
	"sopgen/internal/sop"
)

const (
	stageName      = "synthesis"
	imageMIMEType  = "image/jpeg"
	defaultTimeout = 5 * time.Minute
)

// Generator is the multimodal generation capability. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Synthesizer turns sampled frames into a validated procedure document through
// exactly one generation call. A Synthesizer serves a single run; once it
// reaches a terminal state it refuses further work.
type Synthesizer struct {
	generator      Generator
	timeout        time.Duration
	diagnosticsDir string
	logger         *slog.Logger
	reporter       progress.Reporter

	mu      sync.Mutex
	state   State
	history []State
	rawPath string
}

// Option customizes the synthesizer.
type Option func(*Synthesizer)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logging.NewComponentLogger(logger, "synthesizer")
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(r progress.Reporter) Option {
	return func(s *Synthesizer) {
		s.reporter = r
	}
}

// New constructs a synthesizer bound to generator.
func New(cfg *config.Config, generator Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		generator: generator,
		timeout:   defaultTimeout,
		logger:    logging.NewComponentLogger(nil, "synthesizer"),
		state:     StateIdle,
		history:   []State{StateIdle},
	}
	if cfg != nil {
		if cfg.LLM.TimeoutSeconds > 0 {
			s.timeout = time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
		}
		s.diagnosticsDir = cfg.Synthesis.DiagnosticsDir
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Synthesizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state visited, in order.
func (s *Synthesizer) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.history...)
}

// DiagnosticsPath returns where the rejected raw response was saved, if any.
func (s *Synthesizer) DiagnosticsPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawPath
}

func (s *Synthesizer) moveTo(next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.canMoveTo(next) {
		return fmt.Errorf("synthesis: invalid transition %s -> %s", s.state, next)
	}
	s.state = next
	s.history = append(s.history, next)
	return nil
}

// BuildRequest composes the single prompt and attaches every frame image in
// sequence order.
func (s *Synthesizer) BuildRequest(frames []sampler.Frame, contextText, transcript string) (llm.Request, error) {
	req, err := BuildRequest(frames, contextText, transcript)
	if err != nil {
		return llm.Request{}, err
	}
	if err := s.moveTo(StateRequestBuilt); err != nil {
		return llm.Request{}, services.Wrap(services.ErrValidation, stageName, "build request", "", err)
	}
	return req, nil
}

// BuildRequest composes a request without tracking state.
func BuildRequest(frames []sampler.Frame, contextText, transcript string) (llm.Request, error) {
	if len(frames) == 0 {
		return llm.Request{}, services.Wrap(services.ErrValidation, stageName, "build request", "no frames to analyze", nil)
	}
	prompt, err := renderPrompt(frames, contextText, transcript)
	if err != nil {
		return llm.Request{}, services.Wrap(services.ErrValidation, stageName, "build request", "render prompt", err)
	}
	images := make([]llm.Image, 0, len(frames))
	for _, f := range frames {
		images = append(images, llm.Image{MIMEType: imageMIMEType, Data: f.Image})
	}
	return llm.Request{Prompt: prompt, Images: images}, nil
}

// Synthesize sends req once and decodes the response. Call failures return
// ErrGenerationService and malformed responses ErrSchemaInvalid; neither is
// retried and no partial document is ever returned.
func (s *Synthesizer) Synthesize(ctx context.Context, req llm.Request) (sop.Document, error) {
	if s.State() == StateIdle {
		if err := s.moveTo(StateRequestBuilt); err != nil {
			return sop.Document{}, services.Wrap(services.ErrValidation, stageName, "generate", "", err)
		}
	}
	if s.State() != StateRequestBuilt {
		return sop.Document{}, services.Wrap(services.ErrValidation, stageName, "generate",
			fmt.Sprintf("synthesizer already finished in state %s", s.State()), nil)
	}
	if s.generator == nil {
		_ = s.moveTo(StateGenerationServiceFailed)
		return sop.Document{}, services.Wrap(services.ErrGenerationService, stageName, "generate", "no generation service configured", nil)
	}

	logger := logging.WithContext(ctx, s.logger)
	progress.Emit(s.reporter, progress.Event{
		Stage:   progress.StageSynthesis,
		Percent: -1,
		Detail:  fmt.Sprintf("sending %d frames to the model", len(req.Images)),
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	raw, err := s.generator.Generate(callCtx, req)
	if err != nil {
		_ = s.moveTo(StateGenerationServiceFailed)
		if isTimeout(callCtx, err) {
			err = fmt.Errorf("%w after %s: %w", services.ErrTimeout, s.timeout, err)
		}
		logging.ErrorWithContext(logger, "generation call failed", "generation_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "check llm.api_key, model name, quota and network"),
		)
		return sop.Document{}, services.Wrap(services.ErrGenerationService, stageName, "generate", "", err)
	}
	if err := s.moveTo(StateResponseReceived); err != nil {
		return sop.Document{}, services.Wrap(services.ErrValidation, stageName, "generate", "", err)
	}
	logger.Info("model response received",
		logging.Int("response_bytes", len(raw)),
		logging.Duration("elapsed", time.Since(started)),
	)

	doc, err := sop.Decode(raw)
	if err != nil {
		_ = s.moveTo(StateSchemaInvalid)
		attrs := []logging.Attr{
			logging.Error(err),
			logging.String("response_snippet", llm.Snippet(raw)),
			logging.String(logging.FieldErrorHint, "inspect the raw response; the model ignored the JSON contract"),
		}
		if path, writeErr := s.saveRawResponse(ctx, raw); writeErr != nil {
			attrs = append(attrs, logging.String("diagnostics_error", writeErr.Error()))
		} else if path != "" {
			attrs = append(attrs, logging.String("diagnostics_path", path))
		}
		logging.ErrorWithContext(logger, "model response failed validation", "schema_invalid", attrs...)
		return sop.Document{}, services.Wrap(services.ErrSchemaInvalid, stageName, "decode", "", err)
	}
	if err := s.moveTo(StateDocumentValid); err != nil {
		return sop.Document{}, services.Wrap(services.ErrValidation, stageName, "decode", "", err)
	}
	logger.Info("procedure synthesized",
		logging.String("title", doc.Title),
		logging.Int("step_count", len(doc.Steps)),
		logging.Int("safety_note_count", len(doc.SafetyNotes)),
	)
	return doc.Clone(), nil
}

func (s *Synthesizer) saveRawResponse(ctx context.Context, raw string) (string, error) {
	if s.diagnosticsDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.diagnosticsDir, 0o755); err != nil {
		return "", err
	}
	name := time.Now().UTC().Format("20060102T150405Z")
	if id, ok := services.RunIDFromContext(ctx); ok {
		name += "-" + id
	}
	path := filepath.Join(s.diagnosticsDir, name+"-response.txt")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.rawPath = path
	s.mu.Unlock()
	return path, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
