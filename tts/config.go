package tts

import (
	"errors"
	"fmt"
)

// Defaults for SessionConfig.
const (
	ProviderName      = "lmnt"
	DefaultURL        = "wss://api.lmnt.com/v1/ai/speech/stream"
	DefaultModel      = "blizzard"
	DefaultLanguage   = "en"
	DefaultSampleRate = sampleRateDefault
)

// SessionConfig configures a StreamingSession. It is resolved once, before
// the session is constructed.
type SessionConfig struct {
	// APIKey is sent in the init message. Required.
	APIKey string

	// Voice is the voice identifier. Required.
	Voice string

	// URL is the streaming endpoint. Defaults to DefaultURL.
	URL string

	// Model is the synthesis model. Defaults to DefaultModel.
	Model string

	// Language is a language code; regional variants are accepted.
	// Defaults to DefaultLanguage.
	Language string

	// Format is the output format. Defaults to FormatRaw.
	Format AudioFormat

	// SampleRate overrides Format.SampleRate when non-zero.
	SampleRate int
}

// DefaultSessionConfig returns a config with every optional field set.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		URL:        DefaultURL,
		Model:      DefaultModel,
		Language:   DefaultLanguage,
		Format:     FormatRaw,
		SampleRate: DefaultSampleRate,
	}
}

// withDefaults fills unset optional fields.
//
//nolint:gocritic // hugeParam: value receiver keeps callers' config untouched
func (c SessionConfig) withDefaults() SessionConfig {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Format.Name == "" {
		c.Format = FormatRaw
	}
	if c.SampleRate == 0 {
		c.SampleRate = c.Format.SampleRate
	}
	return c
}

// Validate reports every problem with the config at once.
//
//nolint:gocritic // hugeParam
func (c SessionConfig) Validate() error {
	c = c.withDefaults()

	var errs []error
	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.Voice == "" {
		errs = append(errs, ErrMissingVoice)
	}
	if _, ok := LanguageToServiceLanguage(c.Language); !ok {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, c.Language))
	}
	if _, err := ParseAudioFormat(c.Format.Name); err != nil {
		errs = append(errs, err)
	}
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	return errors.Join(errs...)
}

//nolint:gocritic // hugeParam
func (c SessionConfig) initMessage() initMessage {
	lang, _ := LanguageToServiceLanguage(c.Language)
	return initMessage{
		APIKey:     c.APIKey,
		Voice:      c.Voice,
		Format:     c.Format.Name,
		SampleRate: c.SampleRate,
		Language:   lang,
		Model:      c.Model,
	}
}
