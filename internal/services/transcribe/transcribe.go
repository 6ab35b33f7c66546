package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"sopgen/internal/config"
	"sopgen/internal/logging"
)

// ErrNoAudio reports a video without an audio stream; the caller skips quietly.
var ErrNoAudio = errors.New("video has no audio stream")

// AudioExtractor writes a compact mono audio track for videoPath to outPath.
type AudioExtractor func(ctx context.Context, videoPath, outPath string) error

// Transcriber turns a video's speech into plain text through an
// OpenAI-compatible /audio/transcriptions endpoint.
type Transcriber struct {
	enabled     bool
	apiKey      string
	endpoint    string
	model       string
	language    string
	scratchRoot string
	httpClient  *http.Client
	extract     AudioExtractor
	logger      *slog.Logger
}

// Option customizes the transcriber.
type Option func(*Transcriber)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transcriber) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// WithAudioExtractor overrides the ffmpeg audio extraction step.
func WithAudioExtractor(fn AudioExtractor) Option {
	return func(t *Transcriber) {
		if fn != nil {
			t.extract = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcriber) {
		t.logger = logging.NewComponentLogger(logger, "transcriber")
	}
}

// New builds a transcriber from configuration.
func New(cfg *config.Config, opts ...Option) *Transcriber {
	t := &Transcriber{logger: logging.NewComponentLogger(nil, "transcriber")}
	ffmpegBinary := "ffmpeg"
	timeout := 5 * time.Minute
	if cfg != nil {
		t.enabled = cfg.Transcription.Enabled
		t.apiKey = strings.TrimSpace(cfg.Transcription.APIKey)
		t.endpoint = cfg.Transcription.BaseURL
		t.model = cfg.Transcription.Model
		t.language = cfg.Transcription.Language
		t.scratchRoot = cfg.Paths.ScratchDir
		if cfg.Sampler.FFmpegBinary != "" {
			ffmpegBinary = cfg.Sampler.FFmpegBinary
		}
		if cfg.Transcription.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second
		}
	}
	t.httpClient = &http.Client{Timeout: timeout}
	t.extract = ffmpegExtractor(ffmpegBinary)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Available reports whether transcription is enabled and has a credential.
func (t *Transcriber) Available() bool {
	return t != nil && t.enabled && t.apiKey != ""
}

// Transcribe returns the spoken text of videoPath. It never fails: a missing
// credential, a silent video or any error degrades to an empty transcript
// with a warning.
func (t *Transcriber) Transcribe(ctx context.Context, videoPath string) string {
	if t == nil {
		return ""
	}
	logger := logging.WithContext(ctx, t.logger)
	if !t.enabled {
		logger.Debug("transcription disabled")
		return ""
	}
	if t.apiKey == "" {
		logging.WarnWithContext(logger, "transcription skipped: no api key", "transcription_skipped",
			logging.String(logging.FieldErrorHint, "set GROQ_API_KEY or transcription.api_key"),
			logging.String(logging.FieldImpact, "procedure is generated from frames only"),
		)
		return ""
	}
	started := time.Now()
	text, err := t.run(ctx, videoPath)
	if err != nil {
		if errors.Is(err, ErrNoAudio) {
			logger.Info("transcription skipped: video has no audio")
			return ""
		}
		logging.WarnWithContext(logger, "transcription failed", "transcription_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "procedure is generated from frames only"),
		)
		return ""
	}
	logger.Info("transcript extracted",
		logging.Int("characters", len(text)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return text
}

func (t *Transcriber) run(ctx context.Context, videoPath string) (string, error) {
	if t.scratchRoot != "" {
		if err := os.MkdirAll(t.scratchRoot, 0o755); err != nil {
			return "", fmt.Errorf("create scratch root: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(t.scratchRoot, "sopgen-audio-")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	audioPath := filepath.Join(scratch, "audio.mp3")
	if err := t.extract(ctx, videoPath, audioPath); err != nil {
		return "", err
	}
	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		return "", ErrNoAudio
	}
	return t.upload(ctx, audioPath)
}

func (t *Transcriber) upload(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	fields := map[string]string{
		"model":           t.model,
		"response_format": "text",
		"temperature":     "0",
	}
	if t.language != "" {
		fields["language"] = t.language
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return "", fmt.Errorf("build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcription read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("transcription request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return strings.TrimSpace(string(payload)), nil
}

func ffmpegExtractor(binary string) AudioExtractor {
	return func(ctx context.Context, videoPath, outPath string) error {
		cmd := exec.CommandContext(ctx, binary,
			"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
			"-i", videoPath,
			"-vn", "-map", "0:a:0?",
			"-ac", "1", "-ar", "16000", "-b:a", "32k",
			outPath,
		)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			detail := strings.TrimSpace(stderr.String())
			if strings.Contains(detail, "does not contain any stream") || strings.Contains(detail, "Output file is empty") {
				return ErrNoAudio
			}
			if detail != "" {
				return fmt.Errorf("ffmpeg audio: %w: %s", err, detail)
			}
			return fmt.Errorf("ffmpeg audio: %w", err)
		}
		return nil
	}
}
