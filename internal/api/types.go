package api

import (
	"time"

	"sopgen/internal/history"
	"sopgen/internal/pipeline"
)

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	VideoPath       string  `json:"video_path"`
	OutputPath      string  `json:"output_path,omitempty"`
	Context         string  `json:"context,omitempty"`
	Company         string  `json:"company,omitempty"`
	IntervalSeconds float64 `json:"interval_seconds,omitempty"`
	MaxWidth        int     `json:"max_width,omitempty"`
	KeepFrames      bool    `json:"keep_frames,omitempty"`
}

func (r RunRequest) toPipeline() pipeline.Request {
	return pipeline.Request{
		VideoPath:       r.VideoPath,
		OutputPath:      r.OutputPath,
		Context:         r.Context,
		Company:         r.Company,
		IntervalSeconds: r.IntervalSeconds,
		MaxWidth:        r.MaxWidth,
		KeepFrames:      r.KeepFrames,
	}
}

// RunsResponse lists recorded runs, newest first.
type RunsResponse struct {
	Runs []history.Run `json:"runs"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	Busy     bool   `json:"busy"`
	Watchers int    `json:"watchers"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Stage    string `json:"stage,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
}

// StatusSince reports uptime in whole seconds.
func StatusSince(start time.Time) int64 {
	if start.IsZero() {
		return 0
	}
	return int64(time.Since(start).Seconds())
}
