package services

import "context"

type contextKey string

const (
	itemIDKey  contextKey = "item_id"
	runIDKey   contextKey = "run_id"
	stageKey   contextKey = "stage"
	channelKey contextKey = "channel"
)

// WithItemID annotates context with the queue item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the queue item identifier if present.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(itemIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithRunID annotates context with the acquisition run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the acquisition run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stageKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithChannel annotates context with a channel identifier.
func WithChannel(ctx context.Context, channel int) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

// ChannelFromContext returns the channel identifier if present.
func ChannelFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(channelKey).(int); ok {
		return v, true
	}
	return 0, false
}
