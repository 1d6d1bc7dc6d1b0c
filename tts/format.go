package tts

import (
	"fmt"
	"strings"
)

// Audio constants.
const (
	sampleRateDefault = 24000
	sampleRateULaw    = 8000
	bitDepthDefault   = 16
	bitDepthULaw      = 8
)

// AudioFormat describes an audio output format.
type AudioFormat struct {
	// Name is the service-side format identifier ("raw", "mp3", "ulaw", "wav").
	Name string

	// MIMEType is the content type (e.g., "audio/mpeg").
	MIMEType string

	// SampleRate is the default sample rate in Hz for this format.
	SampleRate int

	// BitDepth is the bits per sample (0 for compressed formats).
	BitDepth int

	// Channels is the number of audio channels.
	Channels int
}

// Supported output formats.
var (
	// FormatRaw is headerless 16-bit little-endian PCM.
	FormatRaw = AudioFormat{
		Name:       "raw",
		MIMEType:   "audio/pcm",
		SampleRate: sampleRateDefault,
		BitDepth:   bitDepthDefault,
		Channels:   1,
	}

	// FormatMP3 is MP3.
	FormatMP3 = AudioFormat{
		Name:       "mp3",
		MIMEType:   "audio/mpeg",
		SampleRate: sampleRateDefault,
		Channels:   1,
	}

	// FormatULaw is 8 kHz mu-law, common for telephony.
	FormatULaw = AudioFormat{
		Name:       "ulaw",
		MIMEType:   "audio/basic",
		SampleRate: sampleRateULaw,
		BitDepth:   bitDepthULaw,
		Channels:   1,
	}

	// FormatWAV is PCM with a RIFF header.
	FormatWAV = AudioFormat{
		Name:       "wav",
		MIMEType:   "audio/wav",
		SampleRate: sampleRateDefault,
		BitDepth:   bitDepthDefault,
		Channels:   1,
	}
)

var formatsByName = map[string]AudioFormat{
	FormatRaw.Name:  FormatRaw,
	FormatMP3.Name:  FormatMP3,
	FormatULaw.Name: FormatULaw,
	FormatWAV.Name:  FormatWAV,
	"pcm":           FormatRaw,
}

// ParseAudioFormat looks up a format by name. "pcm" is accepted as an alias
// for "raw".
func ParseAudioFormat(name string) (AudioFormat, error) {
	f, ok := formatsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return AudioFormat{}, fmt.Errorf("%w: %q", ErrInvalidFormat, name)
	}
	return f, nil
}

// SupportedFormats returns the formats the service can produce.
func SupportedFormats() []AudioFormat {
	return []AudioFormat{FormatRaw, FormatMP3, FormatULaw, FormatWAV}
}

// String returns the format name.
func (f AudioFormat) String() string {
	return f.Name
}
