package services_test

import (
	"context"
	"testing"

	"flashbulb/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithItemID(ctx, "5120345")
	ctx = services.WithStage(ctx, services.StageMedia)
	ctx = services.WithRunID(ctx, "run-123")

	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "5120345" {
		t.Fatalf("unexpected item id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "media" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithItemID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("expected no item id value")
	}
}
