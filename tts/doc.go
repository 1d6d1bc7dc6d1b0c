// Package tts provides streaming text-to-speech sessions.
//
// A StreamingSession holds one long-lived connection to an LMNT-compatible
// speech service. Text is appended with Synthesize and rendered as soon as
// the service is told to flush; audio arrives asynchronously as binary frames
// and is handed to an EventSink together with turn lifecycle events.
//
// Failures never escape as panics or fatal errors. Connection problems are
// reported through EventSink.ConnectionError, a failed send resets the whole
// connection, and remote error messages are surfaced as RemoteError values
// through EventSink.ReportableError.
//
// Usage:
//
//	cfg := tts.DefaultSessionConfig()
//	cfg.APIKey = os.Getenv("LMNT_API_KEY")
//	cfg.Voice = "leah"
//
//	session, err := tts.NewStreamingSession(cfg, tts.WithEventSink(sink))
//	if err != nil {
//	    return err
//	}
//	defer session.Stop(ctx)
//
//	_ = session.Synthesize(ctx, "Hello there.")
package tts
