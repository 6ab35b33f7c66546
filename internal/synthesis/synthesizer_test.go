package synthesis_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sopgen/internal/config"
	"sopgen/internal/sampler"
	"sopgen/internal/services"
	"sopgen/internal/services/llm"
	"sopgen/internal/synthesis"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	last     llm.Request
	block    bool
}

func (g *stubGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.calls++
	g.last = req
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.response, g.err
}

const threeStepDocument = `{"title":"Replace Filter","description":"d","safety_notes":[],"steps":[
{"step_number":1,"instruction":"Open the housing.","timestamp_seconds":0},
{"step_number":2,"instruction":"Swap the filter.","timestamp_seconds":4},
{"step_number":3,"instruction":"Close the housing opened in Step 1.","timestamp_seconds":8}]}`

func sampleFrames(n int) []sampler.Frame {
	frames := make([]sampler.Frame, n)
	for i := range frames {
		frames[i] = sampler.Frame{SequenceIndex: i + 1, TimestampSeconds: float64(i * 2), Image: []byte{byte(i)}}
	}
	return frames
}

func statesOf(states []synthesis.State) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}

func TestSynthesizeValidDocument(t *testing.T) {
	gen := &stubGenerator{response: threeStepDocument}
	s := synthesis.New(nil, gen)

	req, err := s.BuildRequest(sampleFrames(5), "", "")
	if err != nil {
		t.Fatalf("BuildRequest returned error: %v", err)
	}
	doc, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if doc.Title != "Replace Filter" || len(doc.Steps) != 3 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one generation call, got %d", gen.calls)
	}
	if got := statesOf(s.History()); got != "idle,request_built,response_received,document_valid" {
		t.Fatalf("unexpected state history %s", got)
	}
	if !s.State().Terminal() {
		t.Fatal("expected terminal state")
	}
}

func TestSynthesizeFencedResponse(t *testing.T) {
	gen := &stubGenerator{response: "```json\n" + threeStepDocument + "\n```"}
	s := synthesis.New(nil, gen)
	req, _ := s.BuildRequest(sampleFrames(2), "", "")

	doc, err := s.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if len(doc.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(doc.Steps))
	}
}

func TestSynthesizeNotJSON(t *testing.T) {
	diagnostics := filepath.Join(t.TempDir(), "diag")
	cfg := config.Default()
	cfg.Synthesis.DiagnosticsDir = diagnostics
	gen := &stubGenerator{response: "not json"}
	s := synthesis.New(&cfg, gen)
	req, _ := s.BuildRequest(sampleFrames(1), "", "")

	ctx := services.WithRunID(context.Background(), "run-42")
	doc, err := s.Synthesize(ctx, req)
	if !errors.Is(err, services.ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
	if services.ExitCode(err) == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if doc.Title != "" || doc.Steps != nil {
		t.Fatalf("expected no document, got %+v", doc)
	}
	if s.State() != synthesis.StateSchemaInvalid {
		t.Fatalf("unexpected state %s", s.State())
	}

	path := s.DiagnosticsPath()
	if path == "" || !strings.Contains(filepath.Base(path), "run-42") {
		t.Fatalf("unexpected diagnostics path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read diagnostics: %v", err)
	}
	if string(data) != "not json" {
		t.Fatalf("diagnostics should hold the raw response, got %q", data)
	}
}

func TestSynthesizeMissingSteps(t *testing.T) {
	gen := &stubGenerator{response: `{"title":"Only a title"}`}
	s := synthesis.New(nil, gen)
	req, _ := s.BuildRequest(sampleFrames(1), "", "")

	doc, err := s.Synthesize(context.Background(), req)
	if !errors.Is(err, services.ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
	if doc.Title != "" {
		t.Fatal("partially populated document returned")
	}
}

func TestSynthesizeGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: &llm.HTTPStatusError{StatusCode: 401, Body: "bad key"}}
	s := synthesis.New(nil, gen)
	req, _ := s.BuildRequest(sampleFrames(1), "", "")

	_, err := s.Synthesize(context.Background(), req)
	if !errors.Is(err, services.ErrGenerationService) {
		t.Fatalf("expected ErrGenerationService, got %v", err)
	}
	var statusErr *llm.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected no retry, got %d calls", gen.calls)
	}
	if got := statesOf(s.History()); got != "idle,request_built,generation_service_failed" {
		t.Fatalf("unexpected state history %s", got)
	}
}

func TestSynthesizeTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.TimeoutSeconds = 1
	gen := &stubGenerator{block: true}
	s := synthesis.New(&cfg, gen)
	req, _ := s.BuildRequest(sampleFrames(1), "", "")

	started := time.Now()
	_, err := s.Synthesize(context.Background(), req)
	if !errors.Is(err, services.ErrGenerationService) || !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected generation timeout, got %v", err)
	}
	if time.Since(started) > 10*time.Second {
		t.Fatal("call was not bounded by the timeout")
	}
}

func TestSynthesizeRefusesAfterTerminal(t *testing.T) {
	gen := &stubGenerator{response: threeStepDocument}
	s := synthesis.New(nil, gen)
	req, _ := s.BuildRequest(sampleFrames(1), "", "")
	if _, err := s.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("first Synthesize failed: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), req); err == nil {
		t.Fatal("expected second Synthesize to be refused")
	}
	if _, err := s.BuildRequest(sampleFrames(1), "", ""); err == nil {
		t.Fatal("expected BuildRequest after completion to be refused")
	}
	if gen.calls != 1 {
		t.Fatalf("expected one call, got %d", gen.calls)
	}
}

func TestSynthesizeWithoutBuildRequest(t *testing.T) {
	gen := &stubGenerator{response: threeStepDocument}
	s := synthesis.New(nil, gen)
	req, err := synthesis.BuildRequest(sampleFrames(3), "ctx", "")
	if err != nil {
		t.Fatalf("BuildRequest returned error: %v", err)
	}
	if _, err := s.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
}
