package logger

import (
	"log/slog"
	"strings"
)

// Output formats accepted by Configure.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Levels maps dotted package paths ("tts", "internal.streaming") to minimum
// levels. An entry covers its sub-packages unless they have their own.
// A Levels value is immutable once built.
type Levels struct {
	def    slog.Level
	byName map[string]slog.Level
}

// NewLevels builds a table with def as the fallback level.
func NewLevels(def slog.Level, modules map[string]slog.Level) *Levels {
	byName := make(map[string]slog.Level, len(modules))
	for k, v := range modules {
		byName[k] = v
	}
	return &Levels{def: def, byName: byName}
}

// For returns the level that applies to module.
func (l *Levels) For(module string) slog.Level {
	for module != "" {
		if lvl, ok := l.byName[module]; ok {
			return lvl
		}
		i := strings.LastIndexByte(module, '.')
		if i < 0 {
			break
		}
		module = module[:i]
	}
	return l.def
}

// floor is the most verbose level any module may log at.
func (l *Levels) floor() slog.Level {
	lo := l.def
	for _, lvl := range l.byName {
		if lvl < lo {
			lo = lvl
		}
	}
	return lo
}

// LoggingConfigSpec is the logging section of a speech configuration in the
// shape Configure expects.
type LoggingConfigSpec struct {
	DefaultLevel string
	Format       string
	CommonFields map[string]string
	Modules      []ModuleLoggingSpec
}

// ModuleLoggingSpec overrides the level for one package path.
type ModuleLoggingSpec struct {
	Name  string
	Level string
}

// Configure rebuilds the package logger from cfg. It is a no-op for a nil
// spec or after SetLogger installed a caller-provided logger.
func Configure(cfg *LoggingConfigSpec) error {
	if cfg == nil {
		return nil
	}

	def := slog.LevelInfo
	if cfg.DefaultLevel != "" {
		def = ParseLevel(cfg.DefaultLevel)
	}

	var levels *Levels
	if len(cfg.Modules) > 0 {
		m := make(map[string]slog.Level, len(cfg.Modules))
		for _, mod := range cfg.Modules {
			m[mod.Name] = ParseLevel(mod.Level)
		}
		levels = NewLevels(def, m)
	}

	static := make([]slog.Attr, 0, len(cfg.CommonFields))
	for k, v := range cfg.CommonFields {
		static = append(static, slog.String(k, v))
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.custom {
		return nil
	}
	state.level = def
	state.json = cfg.Format == FormatJSON
	state.levels = levels
	state.static = static
	state.rebuild()
	return nil
}

// ModuleLevels returns the table installed by the last Configure, or nil.
func ModuleLevels() *Levels {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.levels
}
