package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// ToolVersion runs `<binary> -version` and returns the first output line,
// e.g. "ffmpeg version 6.1.1 Copyright ...".
func ToolVersion(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("binary not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s -version timed out", binary)
		}
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// CheckMediaTools reports ffmpeg and ffprobe availability with their versions.
func CheckMediaTools(ctx context.Context, ffmpegBinary, ffprobeBinary string) []Status {
	statuses := CheckBinaries([]Requirement{
		{Name: "FFmpeg", Command: ffmpegBinary, Description: "Required for frame and audio extraction"},
		{Name: "FFprobe", Command: ffprobeBinary, Description: "Required for video metadata"},
	})
	for i := range statuses {
		if !statuses[i].Available {
			continue
		}
		version, err := ToolVersion(ctx, statuses[i].Command)
		if err != nil {
			statuses[i].Available = false
			statuses[i].Detail = err.Error()
			continue
		}
		statuses[i].Version = version
	}
	return statuses
}
