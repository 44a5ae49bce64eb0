package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/linguist-ai/linguist-bridge/internal/metrics"
	"github.com/linguist-ai/linguist-bridge/internal/transcriber"
)

// fakeStream implements transcriber.Stream for testing the state machine
// without a live network dependency.
type fakeStream struct {
	results  chan transcriber.Result
	mu       sync.Mutex
	received [][]byte
	closed   bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{results: make(chan transcriber.Result, 16)}
}

func (f *fakeStream) ProcessAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, pcm)
	return nil
}

func (f *fakeStream) Results() <-chan transcriber.Result {
	return f.results
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.results)
	}
	return nil
}

type finalized struct {
	text   string
	target string
}

func newTestSession(t *testing.T, stream *fakeStream) (*Session, chan finalized) {
	t.Helper()
	finals := make(chan finalized, 4)
	dial := func(hint string) (transcriber.Stream, error) {
		return stream, nil
	}
	m := metrics.NewBridgeMetrics("test")
	s := NewSession("p1", "Alice", "English", dial, m, func(sess *Session, text, target string) {
		finals <- finalized{text, target}
	})
	return s, finals
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for state %s, stuck at %s", want, s.State())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPartialsFinalizeIntoTurn(t *testing.T) {
	stream := newFakeStream()
	s, finals := newTestSession(t, stream)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if s.State() != StateStreaming {
		t.Fatalf("expected streaming, got %s", s.State())
	}

	s.Feed("Hindi", []byte{1, 2, 3, 4})

	for _, partial := range []string{"Good", "Good mor", "Good morning"} {
		stream.results <- transcriber.Result{Text: partial, IsFinal: false}
	}
	stream.results <- transcriber.Result{Text: "Good morning", IsFinal: true}

	select {
	case f := <-finals:
		if f.text != "Good morning" {
			t.Errorf("expected finalized text %q, got %q", "Good morning", f.text)
		}
		if f.target != "Hindi" {
			t.Errorf("expected target Hindi, got %q", f.target)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("finalized transcript never arrived")
	}

	// Streaming resumes for the next utterance.
	waitState(t, s, StateStreaming)
	s.Stop()
}

func TestStopDuringStreamingProducesNoTurn(t *testing.T) {
	stream := newFakeStream()
	s, finals := newTestSession(t, stream)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// A non-final partial is buffered when the stop lands.
	stream.results <- transcriber.Result{Text: "don't trans", IsFinal: false}
	time.Sleep(20 * time.Millisecond)

	s.Stop()

	if s.State() != StateIdle {
		t.Errorf("expected idle after stop, got %s", s.State())
	}
	select {
	case f := <-finals:
		t.Errorf("forced stop must not create a turn, got %q", f.text)
	default:
	}
}

func TestChannelDropReturnsToIdle(t *testing.T) {
	stream := newFakeStream()
	s, finals := newTestSession(t, stream)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	stream.results <- transcriber.Result{Text: "half an utter", IsFinal: false}
	stream.Close() // connection drop

	waitState(t, s, StateIdle)

	select {
	case <-finals:
		t.Error("channel drop must not create a turn")
	default:
	}

	// No automatic retry: the session is restartable by the caller.
	stream2 := newFakeStream()
	s.dial = func(hint string) (transcriber.Stream, error) { return stream2, nil }
	if err := s.Start(); err != nil {
		t.Fatalf("restart after failure should work: %v", err)
	}
	s.Stop()
}

func TestFeedReachesStream(t *testing.T) {
	stream := newFakeStream()
	s, _ := newTestSession(t, stream)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	s.Feed("Hindi", []byte{9, 9})

	deadline := time.After(2 * time.Second)
	for {
		stream.mu.Lock()
		n := len(stream.received)
		stream.mu.Unlock()
		if n == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("frame never drained into the stream")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartWhileStreamingFails(t *testing.T) {
	stream := newFakeStream()
	s, _ := newTestSession(t, stream)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(); err == nil {
		t.Error("second start while streaming should fail")
	}
}

func TestFeedWhileIdleIsIgnored(t *testing.T) {
	stream := newFakeStream()
	s, _ := newTestSession(t, stream)

	s.Feed("Hindi", []byte{1}) // must not panic, session is idle

	if got := s.DroppedFrames(); got != 0 {
		t.Errorf("idle feed should be ignored, not counted as dropped: %d", got)
	}
}
