package services

import (
	"context"
	"testing"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithStage(ctx, "sampling")
	ctx = WithRequestID(ctx, "req-9")

	if id, ok := RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id %q (ok=%v)", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "sampling" {
		t.Fatalf("unexpected stage %q (ok=%v)", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-9" {
		t.Fatalf("unexpected request id %q (ok=%v)", rid, ok)
	}
}

func TestContextHelpersIgnoreEmpty(t *testing.T) {
	ctx := context.Background()
	if WithRunID(ctx, "") != ctx {
		t.Fatal("expected empty run id to return original context")
	}
	if WithStage(ctx, "") != ctx {
		t.Fatal("expected empty stage to return original context")
	}
	if _, ok := RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
}
