package services

import "context"

type contextKey string

const (
	itemIDKey contextKey = "item_id"
	stageKey  contextKey = "stage"
	runIDKey  contextKey = "run_id"
)

// WithItemID annotates context with the photo or video identifier being processed.
func WithItemID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the item identifier if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, itemIDKey)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithRunID annotates context with the build run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the build run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
