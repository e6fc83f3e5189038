package services

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, "job_1")
	ctx = WithStage(ctx, "transcode")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := JobIDFromContext(ctx); !ok || id != "job_1" {
		t.Fatalf("job id mismatch: %v %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "transcode" {
		t.Fatalf("stage mismatch: %v %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id mismatch: %v %v", rid, ok)
	}
	if WithStage(ctx, "") != ctx {
		t.Fatal("expected empty stage to leave context untouched")
	}
}
