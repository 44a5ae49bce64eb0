package transcriber

import "sync"

// Accumulator assembles cumulative partial transcripts for one capture
// session into a growing buffer until the utterance is finalized.
type Accumulator struct {
	mu  sync.Mutex
	buf string
}

// Apply records a partial transcript. Partials are cumulative resends of the
// whole utterance so far, so the latest value simply replaces the buffer.
func (a *Accumulator) Apply(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf = text
}

// Finalize applies the final transcript value, returns the completed text
// and resets the buffer to empty.
func (a *Accumulator) Finalize(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if text != "" {
		a.buf = text
	}
	out := a.buf
	a.buf = ""
	return out
}

// Discard drops any unflushed partial buffer without producing text. Used
// when a session is forcibly stopped mid-utterance.
func (a *Accumulator) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf = ""
}

// Current returns the in-progress transcript.
func (a *Accumulator) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf
}
