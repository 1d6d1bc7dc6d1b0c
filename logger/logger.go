// Package logger is the structured logging layer shared by every speechkit
// package. It wraps log/slog with a swappable process-wide logger,
// context-carried session fields, per-package levels and credential
// redaction for URLs and payloads.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// settings are what the built-in default logger is assembled from.
type settings struct {
	mu     sync.Mutex
	out    io.Writer
	level  slog.Level
	json   bool
	static []slog.Attr
	levels *Levels
	custom bool // a SetLogger logger is installed
}

var state = &settings{out: os.Stderr, level: slog.LevelInfo}

var current atomic.Pointer[slog.Logger]

func init() {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		state.level = ParseLevel(lvl)
	}
	state.rebuild()
}

// rebuild must be called with state.mu held.
func (s *settings) rebuild() {
	opts := &slog.HandlerOptions{Level: s.level}
	if s.levels != nil {
		opts.Level = s.levels.floor()
	}
	var base slog.Handler
	if s.json {
		base = slog.NewJSONHandler(s.out, opts)
	} else {
		base = slog.NewTextHandler(s.out, opts)
	}
	current.Store(slog.New(NewHandler(base, s.levels, s.static...)))
}

// Default returns the process-wide logger.
func Default() *slog.Logger {
	return current.Load()
}

// SetLevel changes the default level, dropping any per-module table.
func SetLevel(level slog.Level) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.custom {
		return
	}
	state.level = level
	state.levels = nil
	state.rebuild()
}

// SetVerbose switches between debug and info.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
		return
	}
	SetLevel(slog.LevelInfo)
}

// SetOutput redirects the default logger to w at level and restores the
// text format. A nil w means stderr.
func SetOutput(w io.Writer, level slog.Level) {
	if w == nil {
		w = os.Stderr
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.out = w
	state.level = level
	state.json = false
	state.static = nil
	state.levels = nil
	if !state.custom {
		state.rebuild()
	}
}

// SetLogger installs l as the default logger. Configure, SetLevel and
// SetOutput leave it in place until SetLogger(nil) reverts to the built-in
// logger.
func SetLogger(l *slog.Logger) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if l == nil {
		state.custom = false
		state.rebuild()
		return
	}
	state.custom = true
	current.Store(l)
}

// logAt records the caller of the exported helper as the source so module
// levels apply to the package that logged, not to this one.
func logAt(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := Default()
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}

// Debug, Info, Warn and Error log through Default without a context.
func Debug(msg string, args ...any) { logAt(context.Background(), slog.LevelDebug, msg, args...) }
func Info(msg string, args ...any)  { logAt(context.Background(), slog.LevelInfo, msg, args...) }
func Warn(msg string, args ...any)  { logAt(context.Background(), slog.LevelWarn, msg, args...) }
func Error(msg string, args ...any) { logAt(context.Background(), slog.LevelError, msg, args...) }

func DebugContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelDebug, msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelInfo, msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelWarn, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelError, msg, args...)
}

// SessionConnect logs an established synthesis connection. provider and
// voice are only added when ctx does not already carry them.
func SessionConnect(ctx context.Context, provider, voice string, sampleRate int, attrs ...any) {
	f := FieldsFrom(ctx)
	args := make([]any, 0, 6+len(attrs))
	if f.Provider == "" {
		args = append(args, "provider", provider)
	}
	if f.Voice == "" {
		args = append(args, "voice", voice)
	}
	args = append(append(args, "sample_rate", sampleRate), attrs...)
	logAt(ctx, slog.LevelInfo, "TTS session connected", args...)
}

// SessionError logs a failed session operation.
func SessionError(ctx context.Context, provider, operation string, err error, attrs ...any) {
	args := make([]any, 0, 6+len(attrs))
	if FieldsFrom(ctx).Provider == "" {
		args = append(args, "provider", provider)
	}
	args = append(append(args, "operation", operation, "error", err), attrs...)
	logAt(ctx, slog.LevelError, "TTS session error", args...)
}

var (
	tokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),
		regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),
	}
	bearerPattern = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_.-]+`)

	// matches X-API-Key / api_key / apikey fields in JSON, headers and queries
	keyFieldPattern = regexp.MustCompile(`(?i)("?(?:x-api-key|api_key|apikey)"?\s*[:=]\s*"?)([^"&\s,}]+)`)
)

// RedactSensitiveData masks credentials in s. Key fields and bearer tokens
// are replaced outright; recognised key formats keep a four character prefix.
func RedactSensitiveData(s string) string {
	s = keyFieldPattern.ReplaceAllString(s, "${1}[REDACTED]")
	s = bearerPattern.ReplaceAllString(s, "Bearer [REDACTED]")
	for _, p := range tokenPatterns {
		s = p.ReplaceAllStringFunc(s, func(m string) string {
			return m[:4] + "...[REDACTED]"
		})
	}
	return s
}
