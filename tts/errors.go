package tts

import "errors"

// Configuration and usage errors.
var (
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrNotConnected        = errors.New("tts session is not connected")
	ErrInvalidFormat       = errors.New("invalid or unsupported audio format")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrMissingAPIKey       = errors.New("api key is required")
	ErrMissingVoice        = errors.New("voice is required")
)

// ErrRemote matches every RemoteError under errors.Is.
var ErrRemote = errors.New("speech service reported an error")

// RemoteError is an error the speech service sent in an inbound
// {"error": ...} message. It ends the current turn; the session keeps going
// and redials on the next Synthesize.
type RemoteError struct {
	Provider string
	Message  string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Provider + " error: " + e.Message
}

// Is reports whether target is ErrRemote.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}
