package tts

import "encoding/json"

// initMessage is the first message sent on every new connection.
type initMessage struct {
	APIKey     string `json:"X-API-Key"`
	Voice      string `json:"voice"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language"`
	Model      string `json:"model"`
}

// textMessage appends text to the service-side buffer.
type textMessage struct {
	Text string `json:"text"`
}

// flushMessage forces synthesis of everything buffered so far.
type flushMessage struct {
	Flush bool `json:"flush"`
}

// inboundMessage is a decoded text frame. Only the error key is acted on.
type inboundMessage map[string]json.RawMessage

// remoteError reports whether the frame carries an error key, whatever its
// value. A string value is returned unquoted, anything else as raw JSON.
func (m inboundMessage) remoteError() (string, bool) {
	raw, ok := m["error"]
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil && len(raw) > 0 && raw[0] == '"' {
		return text, true
	}
	return string(raw), true
}

var flush = flushMessage{Flush: true}
