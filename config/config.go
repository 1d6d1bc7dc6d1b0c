// Package config loads speechkit manifests.
//
// A manifest is a Kubernetes-style YAML document:
//
//	apiVersion: speechkit.altairalabs.ai/v1alpha1
//	kind: SpeechConfig
//	metadata:
//	  name: narrator
//	  labels:
//	    app.kubernetes.io/version: 1.0.0
//	spec:
//	  tts:
//	    voice: leah
//	    format: raw
//	  aggregation:
//	    skipTags:
//	      - {start: "<think>", end: "</think>"}
//
// Load validates the document against an embedded JSON schema, applies
// environment overrides and defaults, and exposes typed views for the tts,
// textagg and logger packages.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/logger"
	"github.com/AltairaLabs/speechkit/textagg"
	"github.com/AltairaLabs/speechkit/tts"
)

// Environment overrides.
const (
	EnvAPIKey   = "LMNT_API_KEY"
	EnvVoice    = "SPEECHKIT_VOICE"
	EnvLogLevel = "SPEECHKIT_LOG_LEVEL"
)

// Defaults for optional sections.
const (
	DefaultCacheTTL           = 24 * time.Hour
	DefaultTracingServiceName = "speechkit"
)

// VersionLabel carries the manifest's semantic version.
const VersionLabel = "app.kubernetes.io/version"

// Manifest is the on-disk document.
type Manifest struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metav1.ObjectMeta `yaml:"metadata,omitempty"`
	Spec       Config            `yaml:"spec"`
}

// Config is the manifest spec.
type Config struct {
	TTS         TTSConfig         `yaml:"tts"`
	Aggregation AggregationConfig `yaml:"aggregation,omitempty"`
	Cache       CacheConfig       `yaml:"cache,omitempty"`
	Metrics     MetricsConfig     `yaml:"metrics,omitempty"`
	Tracing     TracingConfig     `yaml:"tracing,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`

	// Copied from the manifest metadata.
	Name    string            `yaml:"-"`
	Version string            `yaml:"-"`
	Labels  map[string]string `yaml:"-"`
}

// TTSConfig configures the streaming synthesis session.
type TTSConfig struct {
	APIKey     string `yaml:"apiKey,omitempty"`
	Voice      string `yaml:"voice,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Model      string `yaml:"model,omitempty"`
	Language   string `yaml:"language,omitempty"`
	Format     string `yaml:"format,omitempty"`
	SampleRate int    `yaml:"sampleRate,omitempty"`
}

// AggregationConfig configures sentence aggregation.
type AggregationConfig struct {
	SkipTags []textagg.TagPair `yaml:"skipTags,omitempty"`
}

// CacheConfig configures the redis audio cache. An empty RedisAddr disables
// caching.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
}

// MetricsConfig configures the Prometheus exporter. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// TracingConfig configures OTLP trace export. An empty Endpoint disables it.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint,omitempty"`
	ServiceName string  `yaml:"serviceName,omitempty"`
	SampleRatio float64 `yaml:"sampleRatio,omitempty"`
}

// LoggingConfig mirrors logger.LoggingConfigSpec with YAML tags.
type LoggingConfig struct {
	DefaultLevel string                `yaml:"defaultLevel,omitempty"`
	Format       string                `yaml:"format,omitempty"`
	CommonFields map[string]string     `yaml:"commonFields,omitempty"`
	Modules      []ModuleLoggingConfig `yaml:"modules,omitempty"`
}

// ModuleLoggingConfig sets the level for one dotted module name.
type ModuleLoggingConfig struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

// Load reads and parses the manifest at filename.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, skerrors.New(skerrors.ComponentConfig, "load",
			fmt.Errorf("failed to read config file: %w", err))
	}
	return Parse(data)
}

// Parse validates and decodes a manifest, then applies environment
// overrides and defaults.
func Parse(data []byte) (*Config, error) {
	if err := ValidateSpeechConfig(data); err != nil {
		return nil, skerrors.New(skerrors.ComponentConfig, "validate schema", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, skerrors.New(skerrors.ComponentConfig, "parse",
			fmt.Errorf("failed to parse config file: %w", err))
	}

	version := m.Metadata.Labels[VersionLabel]
	if version != "" {
		if err := validateSemanticVersion(version); err != nil {
			return nil, skerrors.New(skerrors.ComponentConfig, "validate version", err).
				WithDetails(map[string]any{"version": version})
		}
	}

	cfg := m.Spec
	cfg.Name, cfg.Version, cfg.Labels = m.Metadata.Name, version, m.Metadata.Labels
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.TTS.APIKey = v
	}
	if v := os.Getenv(EnvVoice); v != "" {
		c.TTS.Voice = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.DefaultLevel = v
	}
}

func (c *Config) applyDefaults() {
	d := tts.DefaultSessionConfig()
	if c.TTS.URL == "" {
		c.TTS.URL = d.URL
	}
	if c.TTS.Model == "" {
		c.TTS.Model = d.Model
	}
	if c.TTS.Language == "" {
		c.TTS.Language = d.Language
	}
	if c.TTS.Format == "" {
		c.TTS.Format = d.Format.Name
	}
	if c.TTS.SampleRate == 0 {
		if f, err := tts.ParseAudioFormat(c.TTS.Format); err == nil {
			c.TTS.SampleRate = f.SampleRate
		}
	}
	if c.Cache.RedisAddr != "" && c.Cache.TTL == 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Tracing.Endpoint != "" && c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = DefaultTracingServiceName
	}
}

// Validate checks the parts of the config the schema cannot: the resolved
// session settings and the skip tags.
func (c *Config) Validate() error {
	sc, err := c.SessionConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return skerrors.New(skerrors.ComponentConfig, "validate", err)
	}
	for _, tp := range c.Aggregation.SkipTags {
		if err := tp.Validate(); err != nil {
			return skerrors.New(skerrors.ComponentConfig, "validate", err)
		}
	}
	return nil
}

// SessionConfig converts the tts section into a tts.SessionConfig.
func (c *Config) SessionConfig() (tts.SessionConfig, error) {
	format, err := tts.ParseAudioFormat(c.TTS.Format)
	if err != nil {
		return tts.SessionConfig{}, skerrors.New(skerrors.ComponentConfig, "parse format", err)
	}
	return tts.SessionConfig{
		APIKey:     c.TTS.APIKey,
		Voice:      c.TTS.Voice,
		URL:        c.TTS.URL,
		Model:      c.TTS.Model,
		Language:   c.TTS.Language,
		Format:     format,
		SampleRate: c.TTS.SampleRate,
	}, nil
}

// SkipTags returns the configured tag pairs.
func (c *Config) SkipTags() []textagg.TagPair {
	return c.Aggregation.SkipTags
}

// LoggingSpec converts the logging section for logger.Configure. It returns
// nil when nothing is configured.
func (c *Config) LoggingSpec() *logger.LoggingConfigSpec {
	l := c.Logging
	if l.DefaultLevel == "" && l.Format == "" && len(l.CommonFields) == 0 && len(l.Modules) == 0 {
		return nil
	}
	spec := &logger.LoggingConfigSpec{
		DefaultLevel: l.DefaultLevel,
		Format:       l.Format,
		CommonFields: l.CommonFields,
	}
	for _, m := range l.Modules {
		spec.Modules = append(spec.Modules, logger.ModuleLoggingSpec{Name: m.Name, Level: m.Level})
	}
	return spec
}
