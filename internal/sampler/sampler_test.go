package sampler_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sopgen/internal/config"
	"sopgen/internal/progress"
	"sopgen/internal/sampler"
	"sopgen/internal/services"
)

// fakeDecoder simulates ffmpeg by writing one small file per timestamp below
// the duration, plus optional surplus frames.
type fakeDecoder struct {
	meta     sampler.VideoMetadata
	probeErr error
	extract  func(ctx context.Context, req sampler.ExtractRequest) error
	surplus  int
	requests []sampler.ExtractRequest
	outDirs  []string
}

func (f *fakeDecoder) Probe(context.Context, string) (sampler.VideoMetadata, error) {
	if f.probeErr != nil {
		return sampler.VideoMetadata{}, f.probeErr
	}
	return f.meta, nil
}

func (f *fakeDecoder) Extract(ctx context.Context, req sampler.ExtractRequest) error {
	f.requests = append(f.requests, req)
	f.outDirs = append(f.outDirs, req.OutputDir)
	if f.extract != nil {
		return f.extract(ctx, req)
	}
	count := 0
	for ts := 0.0; ts < f.meta.DurationSeconds; ts += req.IntervalSeconds {
		count++
	}
	count += f.surplus
	if req.MaxFrames > 0 && count > req.MaxFrames {
		count = req.MaxFrames + f.surplus
	}
	for i := 1; i <= count; i++ {
		name := filepath.Join(req.OutputDir, fmt.Sprintf(req.Pattern, i))
		if err := os.WriteFile(name, []byte(fmt.Sprintf("jpeg-%d", i)), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func newSampler(t *testing.T, dec sampler.Decoder, opts ...sampler.Option) (*sampler.Sampler, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(t.TempDir(), "scratch")
	return sampler.New(&cfg, dec, opts...), cfg.Paths.ScratchDir
}

func assertScratchEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch root to be empty, found %d entries", len(entries))
	}
}

func TestSampleFramesTenSecondVideo(t *testing.T) {
	dec := &fakeDecoder{meta: sampler.VideoMetadata{DurationSeconds: 10, FrameRate: 30, Width: 1920, Height: 1080}}
	var events []progress.Event
	s, scratch := newSampler(t, dec, sampler.WithReporter(progress.ReporterFunc(func(evt progress.Event) {
		events = append(events, evt)
	})))

	frames, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if err != nil {
		t.Fatalf("SampleFrames returned error: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	for i, frame := range frames {
		if frame.SequenceIndex != i+1 {
			t.Fatalf("frame %d: sequence index %d", i, frame.SequenceIndex)
		}
		if want := float64(i * 2); frame.TimestampSeconds != want {
			t.Fatalf("frame %d: timestamp %v want %v", i, frame.TimestampSeconds, want)
		}
		if string(frame.Image) != fmt.Sprintf("jpeg-%d", i+1) {
			t.Fatalf("frame %d: unexpected payload %q", i, frame.Image)
		}
		if frame.StoredPath != "" {
			t.Fatalf("frame %d: expected no stored path", i)
		}
	}
	if len(events) != 5 || events[4].Current != 5 || events[4].Total != 5 {
		t.Fatalf("unexpected progress events: %+v", events)
	}

	req := dec.requests[0]
	if req.MaxFrames != 5 || req.MaxWidth != 512 || req.IntervalSeconds != 2 || req.Pattern != sampler.FramePattern {
		t.Fatalf("unexpected extract request: %+v", req)
	}
	if _, err := os.Stat(dec.outDirs[0]); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir %s removed", dec.outDirs[0])
	}
	assertScratchEmpty(t, scratch)
}

func TestSampleFramesCountLaw(t *testing.T) {
	tests := []struct {
		duration float64
		interval float64
		want     int
	}{
		{10, 2, 5},
		{9, 2, 5},
		{10.01, 2, 6},
		{1, 2, 1},
		{7.5, 2.5, 3},
		{3, 0.5, 6},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%gs/%gs", tc.duration, tc.interval), func(t *testing.T) {
			if got := sampler.FrameBudget(tc.duration, tc.interval); got != tc.want {
				t.Fatalf("FrameBudget = %d, want %d", got, tc.want)
			}
			dec := &fakeDecoder{meta: sampler.VideoMetadata{DurationSeconds: tc.duration, Width: 640, Height: 480}}
			s, _ := newSampler(t, dec)
			frames, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: tc.interval, MaxWidth: 512})
			if err != nil {
				t.Fatalf("SampleFrames returned error: %v", err)
			}
			if len(frames) != tc.want {
				t.Fatalf("expected %d frames, got %d", tc.want, len(frames))
			}
			last := frames[len(frames)-1]
			if last.TimestampSeconds >= tc.duration {
				t.Fatalf("last timestamp %v not below duration %v", last.TimestampSeconds, tc.duration)
			}
		})
	}
}

func TestSampleFramesDropsSurplus(t *testing.T) {
	dec := &fakeDecoder{meta: sampler.VideoMetadata{DurationSeconds: 10, Width: 640, Height: 480}, surplus: 2}
	s, _ := newSampler(t, dec)

	frames, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if err != nil {
		t.Fatalf("SampleFrames returned error: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("expected surplus frames dropped, got %d", len(frames))
	}
}

func TestSampleFramesUnknownDurationKeepsAll(t *testing.T) {
	dec := &fakeDecoder{
		meta: sampler.VideoMetadata{Width: 640, Height: 480},
		extract: func(_ context.Context, req sampler.ExtractRequest) error {
			if req.MaxFrames != 0 {
				return fmt.Errorf("expected no cap, got %d", req.MaxFrames)
			}
			for i := 1; i <= 3; i++ {
				if err := os.WriteFile(filepath.Join(req.OutputDir, fmt.Sprintf(req.Pattern, i)), []byte("x"), 0o644); err != nil {
					return err
				}
			}
			return nil
		},
	}
	s, _ := newSampler(t, dec)

	frames, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 1.5, MaxWidth: 512})
	if err != nil {
		t.Fatalf("SampleFrames returned error: %v", err)
	}
	if len(frames) != 3 || frames[2].TimestampSeconds != 3 {
		t.Fatalf("unexpected frames: %+v", frames)
	}
}

func TestSampleFramesPersistsToDestination(t *testing.T) {
	dec := &fakeDecoder{meta: sampler.VideoMetadata{DurationSeconds: 4, Width: 640, Height: 480}}
	s, scratch := newSampler(t, dec)
	dest := filepath.Join(t.TempDir(), "kept", "frames")

	ctx := services.WithRunID(context.Background(), "abcdef12-3456")
	frames, err := s.SampleFrames(ctx, newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512, DestinationDir: dest})
	if err != nil {
		t.Fatalf("SampleFrames returned error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	for _, frame := range frames {
		if frame.StoredPath == "" {
			t.Fatal("expected stored path")
		}
		if filepath.Dir(frame.StoredPath) != dest {
			t.Fatalf("frame stored outside destination: %s", frame.StoredPath)
		}
		if !strings.HasPrefix(filepath.Base(frame.StoredPath), "abcdef12_frame_") {
			t.Fatalf("unexpected stored name %s", frame.StoredPath)
		}
		data, err := os.ReadFile(frame.StoredPath)
		if err != nil {
			t.Fatalf("read stored frame: %v", err)
		}
		if string(data) != string(frame.Image) {
			t.Fatal("stored bytes differ from in-memory frame")
		}
	}
	assertScratchEmpty(t, scratch)

	// A second run into the same directory must not collide.
	if _, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512, DestinationDir: dest}); err != nil {
		t.Fatalf("second SampleFrames returned error: %v", err)
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 4 {
		t.Fatalf("expected 4 persisted frames across runs, got %d", len(entries))
	}
}

func TestSampleFramesMissingInput(t *testing.T) {
	dec := &fakeDecoder{}
	s, scratch := newSampler(t, dec)

	_, err := s.SampleFrames(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrMediaUnreadable) {
		t.Fatalf("expected ErrMediaUnreadable, got %v", err)
	}
	if len(dec.requests) != 0 {
		t.Fatal("decoder should not run for missing input")
	}
	assertScratchEmpty(t, scratch)
}

func TestSampleFramesDirectoryInput(t *testing.T) {
	s, _ := newSampler(t, &fakeDecoder{})
	_, err := s.SampleFrames(context.Background(), t.TempDir(), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrMediaUnreadable) {
		t.Fatalf("expected ErrMediaUnreadable, got %v", err)
	}
}

func TestSampleFramesCorruptInput(t *testing.T) {
	dec := &fakeDecoder{probeErr: errors.New("moov atom not found")}
	s, scratch := newSampler(t, dec)

	_, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrMediaUnreadable) {
		t.Fatalf("expected ErrMediaUnreadable, got %v", err)
	}
	if !strings.Contains(err.Error(), "moov atom") {
		t.Fatalf("expected probe detail in error, got %v", err)
	}
	assertScratchEmpty(t, scratch)
}

func TestSampleFramesZeroFrames(t *testing.T) {
	dec := &fakeDecoder{
		meta:    sampler.VideoMetadata{DurationSeconds: 0.5, Width: 640, Height: 480},
		extract: func(context.Context, sampler.ExtractRequest) error { return nil },
	}
	s, scratch := newSampler(t, dec)

	_, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	assertScratchEmpty(t, scratch)
}

func TestSampleFramesToolMissing(t *testing.T) {
	dec := &fakeDecoder{
		meta: sampler.VideoMetadata{DurationSeconds: 10, Width: 640, Height: 480},
		extract: func(context.Context, sampler.ExtractRequest) error {
			return fmt.Errorf("ffmpeg: %w", exec.ErrNotFound)
		},
	}
	s, scratch := newSampler(t, dec)

	_, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrExtractionFailed) || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected tool-missing extraction error, got %v", err)
	}
	assertScratchEmpty(t, scratch)
}

func TestSampleFramesTimeoutCleansScratch(t *testing.T) {
	dec := &fakeDecoder{
		meta: sampler.VideoMetadata{DurationSeconds: 10, Width: 640, Height: 480},
		extract: func(ctx context.Context, req sampler.ExtractRequest) error {
			// Leave a partial frame behind, then hang until the deadline.
			_ = os.WriteFile(filepath.Join(req.OutputDir, fmt.Sprintf(req.Pattern, 1)), []byte("x"), 0o644)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(t.TempDir(), "scratch")
	cfg.Sampler.TimeoutSeconds = 1
	s := sampler.New(&cfg, dec)

	started := time.Now()
	_, err := s.SampleFrames(context.Background(), newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrExtractionFailed) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected extraction timeout, got %v", err)
	}
	if time.Since(started) > 10*time.Second {
		t.Fatal("decode was not bounded by the timeout")
	}
	assertScratchEmpty(t, cfg.Paths.ScratchDir)
}

func TestSampleFramesCanceledCleansScratch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dec := &fakeDecoder{
		meta: sampler.VideoMetadata{DurationSeconds: 10, Width: 640, Height: 480},
		extract: func(ctx context.Context, req sampler.ExtractRequest) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		},
	}
	s, scratch := newSampler(t, dec)

	_, err := s.SampleFrames(ctx, newVideo(t), sampler.Options{IntervalSeconds: 2, MaxWidth: 512})
	if !errors.Is(err, services.ErrExtractionFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled extraction, got %v", err)
	}
	assertScratchEmpty(t, scratch)
}

func TestSampleFramesRejectsBadOptions(t *testing.T) {
	s, _ := newSampler(t, &fakeDecoder{})
	video := newVideo(t)
	for _, opts := range []sampler.Options{
		{IntervalSeconds: 0, MaxWidth: 512},
		{IntervalSeconds: -1, MaxWidth: 512},
		{IntervalSeconds: math.NaN(), MaxWidth: 512},
		{IntervalSeconds: 2, MaxWidth: 0},
	} {
		if _, err := s.SampleFrames(context.Background(), video, opts); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("options %+v: expected ErrValidation, got %v", opts, err)
		}
	}
}

func TestGetVideoMetadata(t *testing.T) {
	want := sampler.VideoMetadata{DurationSeconds: 12.5, FrameRate: 25, Width: 1280, Height: 720, FrameCount: 312}
	s, _ := newSampler(t, &fakeDecoder{meta: want})

	got, err := s.GetVideoMetadata(context.Background(), newVideo(t))
	if err != nil {
		t.Fatalf("GetVideoMetadata returned error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected metadata %+v", got)
	}
}
