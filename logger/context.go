package logger

import (
	"context"
	"log/slog"
)

type fieldsKey struct{}

// LoggingFields are the request-scoped values attached to every record logged
// with a context that carries them.
type LoggingFields struct {
	SessionID string
	TurnID    string
	Provider  string
	Model     string
	Voice     string
	Stage     string
}

// attrs returns the non-empty fields in a stable order.
func (f LoggingFields) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	add := func(k, v string) {
		if v != "" {
			out = append(out, slog.String(k, v))
		}
	}
	add("session_id", f.SessionID)
	add("turn_id", f.TurnID)
	add("provider", f.Provider)
	add("model", f.Model)
	add("voice", f.Voice)
	add("stage", f.Stage)
	return out
}

// merge overlays the non-empty values of o onto f.
func (f LoggingFields) merge(o LoggingFields) LoggingFields {
	pick := func(cur, next string) string {
		if next != "" {
			return next
		}
		return cur
	}
	return LoggingFields{
		SessionID: pick(f.SessionID, o.SessionID),
		TurnID:    pick(f.TurnID, o.TurnID),
		Provider:  pick(f.Provider, o.Provider),
		Model:     pick(f.Model, o.Model),
		Voice:     pick(f.Voice, o.Voice),
		Stage:     pick(f.Stage, o.Stage),
	}
}

// FieldsFrom returns the logging fields carried by ctx.
func FieldsFrom(ctx context.Context) LoggingFields {
	if ctx == nil {
		return LoggingFields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(LoggingFields)
	return f
}

// WithLoggingContext merges the non-empty values of fields into ctx.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, FieldsFrom(ctx).merge(*fields))
}

// WithSessionID returns a copy of ctx tagged with the session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return WithLoggingContext(ctx, &LoggingFields{SessionID: id})
}

// WithTurnID returns a copy of ctx tagged with the turn ID.
func WithTurnID(ctx context.Context, id string) context.Context {
	return WithLoggingContext(ctx, &LoggingFields{TurnID: id})
}

// WithStage returns a copy of ctx tagged with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return WithLoggingContext(ctx, &LoggingFields{Stage: stage})
}
