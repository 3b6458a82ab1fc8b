package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so that every log line in
// a turn carries the session and routing identifiers without each call site
// repeating them.
type LogFields struct {
	SessionID   *string // conversation session ID
	TurnID      *int64  // snowflake ID assigned to this turn
	Intent      *string // resolved intent tag (COUNT, LIST, ...)
	RoutingPath *string // which routing branch decided (FOLLOWUP, EVIDENCE, ...)
	Component   string  // component name (OTel semantic convention style, e.g., "concierge.routing.validator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.SessionID != nil {
		result.SessionID = next.SessionID
	}
	if next.TurnID != nil {
		result.TurnID = next.TurnID
	}
	if next.Intent != nil {
		result.Intent = next.Intent
	}
	if next.RoutingPath != nil {
		result.RoutingPath = next.RoutingPath
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// String returns a pointer to s, for LogFields literals.
func String(s string) *string { return &s }

// Int64 returns a pointer to i, for LogFields literals.
func Int64(i int64) *int64 { return &i }
