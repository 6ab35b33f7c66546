package progress

import (
	"log/slog"
	"sync"
	"time"

	"sopgen/internal/logging"
)

// Stage names emitted by the pipeline.
const (
	StageTranscription = "transcription"
	StageSampling      = "sampling"
	StageSynthesis     = "synthesis"
	StageRendering     = "rendering"
	StageComplete      = "complete"
)

// Event is one progress observation. Current and Total are zero when a stage
// has no natural unit count; Percent is negative when unknown.
type Event struct {
	RunID   string    `json:"run_id,omitempty"`
	Stage   string    `json:"stage"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Percent float64   `json:"percent"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// Reporter receives progress events. Implementations must not block for long
// and must not fail; progress is advisory.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(evt).
func (f ReporterFunc) Report(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Nop discards every event.
var Nop Reporter = ReporterFunc(nil)

// Emit stamps evt and delivers it to r. A nil reporter is allowed.
func Emit(r Reporter, evt Event) {
	if r == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	if evt.Percent == 0 && evt.Total > 0 {
		evt.Percent = float64(evt.Current) / float64(evt.Total) * 100
	}
	r.Report(evt)
}

type multi []Reporter

func (m multi) Report(evt Event) {
	for _, r := range m {
		r.Report(evt)
	}
}

// Multi fans events out to every non-nil reporter in order.
func Multi(reporters ...Reporter) Reporter {
	kept := make(multi, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			kept = append(kept, r)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return kept
}

// WithRunID stamps every event passing through with the run identifier.
func WithRunID(r Reporter, runID string) Reporter {
	if r == nil {
		return nil
	}
	return ReporterFunc(func(evt Event) {
		if evt.RunID == "" {
			evt.RunID = runID
		}
		r.Report(evt)
	})
}

// LogReporter writes events to a logger, thinned by a ProgressSampler so
// per-frame events do not flood the log.
type LogReporter struct {
	logger  *slog.Logger
	mu      sync.Mutex
	sampler *logging.ProgressSampler
}

// NewLogReporter builds a LogReporter emitting at most once per 10% bucket
// per stage.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(10),
	}
}

// Report implements Reporter.
func (l *LogReporter) Report(evt Event) {
	l.mu.Lock()
	emit := l.sampler.ShouldLog(evt.Stage, evt.Percent)
	l.mu.Unlock()
	if !emit {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldStage, evt.Stage),
		logging.String(logging.FieldEventType, "progress"),
	}
	if evt.Total > 0 {
		attrs = append(attrs, logging.Int("current", evt.Current), logging.Int("total", evt.Total))
	}
	if evt.Percent >= 0 {
		attrs = append(attrs, logging.Float64("percent", roundPercent(evt.Percent)))
	}
	if evt.Detail != "" {
		attrs = append(attrs, logging.String("detail", evt.Detail))
	}
	l.logger.Info("progress", logging.Args(attrs...)...)
}

func roundPercent(p float64) float64 {
	return float64(int(p*10+0.5)) / 10
}
