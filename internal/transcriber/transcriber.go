package transcriber

// Stream is a live bidirectional transcription channel: PCM in, partial and
// final transcript events out. The capture session owns exactly one stream
// while listening.
type Stream interface {
	ProcessAudio(pcm []byte) error
	Results() <-chan Result
	Close() error
}

// Dialer opens a transcription stream with a declared-language hint.
// Injectable so the capture state machine is testable without a live
// network dependency.
type Dialer func(languageHint string) (Stream, error)

// Result is one transcript event from the service. Partials are cumulative:
// each partial carries the full utterance so far, so the latest value wins.
type Result struct {
	Text         string
	IsFinal      bool
	LanguageCode string
}
