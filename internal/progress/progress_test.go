package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

type recorder struct {
	events []Event
}

func (r *recorder) Report(evt Event) { r.events = append(r.events, evt) }

func TestEmitStampsTimeAndPercent(t *testing.T) {
	rec := &recorder{}
	Emit(rec, Event{Stage: StageSampling, Current: 1, Total: 4})

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.At.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
	if evt.Percent != 25 {
		t.Fatalf("expected 25%%, got %v", evt.Percent)
	}
}

func TestEmitNilReporter(t *testing.T) {
	Emit(nil, Event{Stage: StageSampling})
	Emit(Nop, Event{Stage: StageSampling})
}

func TestMultiAndRunID(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	r := WithRunID(Multi(a, nil, b), "run-1")
	Emit(r, Event{Stage: StageSynthesis, Percent: -1})

	for _, rec := range []*recorder{a, b} {
		if len(rec.events) != 1 || rec.events[0].RunID != "run-1" {
			t.Fatalf("unexpected events %+v", rec.events)
		}
	}
	if single := Multi(a); single != Reporter(a) {
		t.Fatal("expected single reporter to be returned unwrapped")
	}
}

func TestLogReporterThinsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewLogReporter(logger)

	for i := 1; i <= 100; i++ {
		Emit(r, Event{Stage: StageSampling, Current: i, Total: 100})
	}
	lines := strings.Count(buf.String(), "msg=progress")
	if lines == 0 || lines > 11 {
		t.Fatalf("expected bucketed log lines, got %d", lines)
	}
	if !strings.Contains(buf.String(), "stage=sampling") {
		t.Fatalf("expected stage attribute, got %q", buf.String())
	}
}
