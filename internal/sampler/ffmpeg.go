package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"sopgen/internal/media/ffprobe"
)

// FFmpegDecoder probes with ffprobe and extracts frames with ffmpeg.
type FFmpegDecoder struct {
	FFmpegBinary  string
	FFprobeBinary string
}

// NewFFmpegDecoder returns a decoder using the given binaries, defaulting to
// the names on PATH.
func NewFFmpegDecoder(ffmpegBinary, ffprobeBinary string) *FFmpegDecoder {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = "ffprobe"
	}
	return &FFmpegDecoder{FFmpegBinary: ffmpegBinary, FFprobeBinary: ffprobeBinary}
}

// Probe reads container and stream headers.
func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (VideoMetadata, error) {
	result, err := ffprobe.Inspect(ctx, d.FFprobeBinary, path)
	if err != nil {
		return VideoMetadata{}, err
	}
	return metadataFromProbe(result)
}

func metadataFromProbe(result ffprobe.Result) (VideoMetadata, error) {
	video, ok := result.PrimaryVideo()
	if !ok {
		return VideoMetadata{}, errors.New("no video stream found")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return VideoMetadata{}, fmt.Errorf("video stream reports invalid resolution %dx%d", video.Width, video.Height)
	}
	meta := VideoMetadata{
		DurationSeconds: result.DurationSeconds(),
		FrameRate:       video.FrameRate(),
		Width:           video.Width,
		Height:          video.Height,
		FrameCount:      video.FrameCount(),
		HasAudio:        result.AudioStreamCount() > 0,
	}
	if meta.FrameCount == 0 && meta.FrameRate > 0 && meta.DurationSeconds > 0 {
		meta.FrameCount = int64(meta.DurationSeconds*meta.FrameRate + 0.5)
	}
	return meta, nil
}

// Extract runs ffmpeg once, writing numbered JPEGs into req.OutputDir.
func (d *FFmpegDecoder) Extract(ctx context.Context, req ExtractRequest) error {
	cmd := exec.CommandContext(ctx, d.FFmpegBinary, extractArgs(req)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, lastLine(detail))
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func extractArgs(req ExtractRequest) []string {
	pattern := req.Pattern
	if pattern == "" {
		pattern = FramePattern
	}
	filter := fmt.Sprintf("fps=1/%s,scale='min(iw,%d)':-2", formatSeconds(req.IntervalSeconds), req.MaxWidth)
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", req.InputPath,
		"-vf", filter,
		"-q:v", strconv.Itoa(req.Quality),
	}
	if req.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(req.MaxFrames))
	}
	return append(args, filepath.Join(req.OutputDir, pattern))
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// ScaledSize reports the output dimensions the extraction filter produces for
// a w×h source: width capped at maxWidth without upscaling, height following
// the aspect ratio and rounded to an even number.
func ScaledSize(w, h, maxWidth int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	outW := w
	if maxWidth > 0 && w > maxWidth {
		outW = maxWidth
	}
	outH := int(float64(h)*float64(outW)/float64(w)/2+0.5) * 2
	if outH < 2 {
		outH = 2
	}
	return outW, outH
}
