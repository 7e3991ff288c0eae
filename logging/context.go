package logging

import (
	"context"
	"log/slog"
)

// Context keys for logging values.
// Using private types to avoid key collisions.
type contextKey int

const (
	sessionIDKey contextKey = iota
	threadIDKey
	componentKey
	hookIDKey
)

// WithSession adds a session ID to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithThread adds an originating thread ID to the context.
func WithThread(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey, threadID)
}

// WithComponent adds a component name to the context.
// Component names identify the subsystem generating logs (e.g., "dispatcher",
// "gateway", "approval").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithHook adds a hook invocation ID to the context.
func WithHook(ctx context.Context, hookID string) context.Context {
	return context.WithValue(ctx, hookIDKey, hookID)
}

// ComponentFromContext extracts the component name from the context.
// Returns empty string if not set.
func ComponentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(componentKey).(string); ok {
		return v
	}
	return ""
}

func attrsFromContext(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("session_id", v))
	}
	if v, ok := ctx.Value(threadIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("thread_id", v))
	}
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("component", v))
	}
	if v, ok := ctx.Value(hookIDKey).(string); ok && v != "" {
		attrs = append(attrs, slog.String("hook_id", v))
	}
	return attrs
}
