package logger

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
)

// Handler decorates records with static attributes and the LoggingFields
// found on the context. When built with a Levels table it also drops records
// below the level configured for the package that emitted them.
type Handler struct {
	next   slog.Handler
	static []slog.Attr
	levels *Levels
}

// NewHandler wraps next. levels may be nil to disable per-module filtering.
func NewHandler(next slog.Handler, levels *Levels, static ...slog.Attr) *Handler {
	return &Handler{next: next, static: static, levels: levels}
}

// Enabled is permissive when module levels are set; Handle makes the final
// call once the caller is known.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.levels != nil {
		return level >= h.levels.floor()
	}
	return h.next.Enabled(ctx, level)
}

//nolint:gocritic // slog.Handler takes the record by value
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var module string
	if h.levels != nil {
		module = callerModule(r.PC)
		if r.Level < h.levels.For(module) {
			return nil
		}
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(h.static...)
	if module != "" {
		out.AddAttrs(slog.String("logger", module))
	}
	out.AddAttrs(FieldsFrom(ctx).attrs()...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), static: h.static, levels: h.levels}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), static: h.static, levels: h.levels}
}

// Unwrap returns the wrapped handler.
func (h *Handler) Unwrap() slog.Handler { return h.next }

var _ slog.Handler = (*Handler)(nil)

const modulePrefix = "github.com/AltairaLabs/speechkit/"

func callerModule(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return moduleOf(frame.Function)
}

// moduleOf turns a qualified function name into a dotted package path under
// this module: ".../internal/streaming.(*Conn).Close" is "internal.streaming".
func moduleOf(fn string) string {
	_, rest, ok := strings.Cut(fn, modulePrefix)
	if !ok {
		return ""
	}
	dir, leaf := "", rest
	if i := strings.LastIndexByte(rest, '/'); i >= 0 {
		dir, leaf = rest[:i+1], rest[i+1:]
	}
	pkg, _, _ := strings.Cut(leaf, ".")
	return strings.ReplaceAll(dir+pkg, "/", ".")
}
