package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linguist-ai/linguist-bridge/internal/capture"
	"github.com/linguist-ai/linguist-bridge/internal/router"
	"github.com/linguist-ai/linguist-bridge/internal/transcriber"
)

type fakeStream struct {
	results  chan transcriber.Result
	mu       sync.Mutex
	received int
	closed   bool
}

func (f *fakeStream) ProcessAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
	return nil
}

func (f *fakeStream) Results() <-chan transcriber.Result { return f.results }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.results)
	}
	return nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (ft *fakeTranslator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.fail {
		return "", errors.New("translation unavailable")
	}
	ft.calls = append(ft.calls, text)
	return "[" + dst + "] " + text, nil
}

type fakeSynth struct{}

func (fs *fakeSynth) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	return []byte(text), nil
}

type fakePlayer struct {
	played chan []byte
}

func (fp *fakePlayer) Play(pcm []byte) error {
	fp.played <- pcm
	return nil
}

func newTestOrchestrator(tr Translator) (*Orchestrator, map[string]*fakeStream, *fakePlayer) {
	streams := make(map[string]*fakeStream)
	var mu sync.Mutex
	dial := func(hint string) (transcriber.Stream, error) {
		mu.Lock()
		defer mu.Unlock()
		fs := &fakeStream{results: make(chan transcriber.Result, 16)}
		streams[hint] = fs
		return fs, nil
	}
	player := &fakePlayer{played: make(chan []byte, 4)}
	o := New(Config{
		SessionID:        "test-bridge",
		BotID:            "LINGUIST_BOT_01",
		FallbackLanguage: "English",
		Heartbeat:        time.Hour,
	}, dial, tr, &fakeSynth{}, player, nil)
	return o, streams, player
}

func TestEndToEndTurn(t *testing.T) {
	tr := &fakeTranslator{}
	o, streams, player := newTestOrchestrator(tr)
	o.Start()
	defer o.Stop()

	o.ParticipantJoined("a", "Alice", "English")
	o.ParticipantJoined("b", "Bharat", "Hindi")

	if err := o.StartListening("a"); err != nil {
		t.Fatalf("start listening failed: %v", err)
	}

	// Alice speaks; the router resolves Hindi as the target.
	o.Route(router.Frame{SourceID: "a", PCM: make([]byte, 320), SampleRate: 16000})

	stream := streams["English"]
	stream.results <- transcriber.Result{Text: "Good", IsFinal: false}
	stream.results <- transcriber.Result{Text: "Good morning", IsFinal: true}

	select {
	case pcm := <-player.played:
		if string(pcm) != "[Hindi] Good morning" {
			t.Errorf("unexpected playback payload: %q", pcm)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("playback never happened")
	}

	// The active-turn slot clears once playback completed, so the next
	// utterance is accepted.
	waitIdleScheduler(t, o)
	stream.results <- transcriber.Result{Text: "How are you", IsFinal: true}

	select {
	case pcm := <-player.played:
		if string(pcm) != "[Hindi] How are you" {
			t.Errorf("unexpected second payload: %q", pcm)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second turn never played")
	}
}

func waitIdleScheduler(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for o.sched.Busy() {
		select {
		case <-deadline:
			t.Fatal("scheduler never went idle")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFailedTranslationReleasesSlot(t *testing.T) {
	tr := &fakeTranslator{fail: true}
	o, streams, player := newTestOrchestrator(tr)
	o.Start()
	defer o.Stop()

	o.ParticipantJoined("a", "Alice", "English")
	o.ParticipantJoined("b", "Bharat", "Hindi")
	if err := o.StartListening("a"); err != nil {
		t.Fatalf("start listening failed: %v", err)
	}

	o.Route(router.Frame{SourceID: "a", PCM: make([]byte, 320)})
	streams["English"].results <- transcriber.Result{Text: "hello", IsFinal: true}

	waitIdleScheduler(t, o)

	if o.Metrics().TurnsFailed != 1 {
		t.Errorf("expected 1 failed turn, got %d", o.Metrics().TurnsFailed)
	}
	select {
	case <-player.played:
		t.Error("failed turn must not play audio")
	default:
	}

	// System stays ready: flipping the translator back makes the next
	// utterance flow.
	tr.mu.Lock()
	tr.fail = false
	tr.mu.Unlock()
	streams["English"].results <- transcriber.Result{Text: "try again", IsFinal: true}

	select {
	case pcm := <-player.played:
		if string(pcm) != "[Hindi] try again" {
			t.Errorf("unexpected payload: %q", pcm)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recovery turn never played")
	}
}

func TestParticipantLifecycle(t *testing.T) {
	o, _, _ := newTestOrchestrator(&fakeTranslator{})
	o.Start()
	defer o.Stop()

	o.ParticipantJoined("a", "Alice", "English")
	if o.CaptureState("a") != capture.StateIdle {
		t.Errorf("fresh capture session should be idle, got %s", o.CaptureState("a"))
	}

	if err := o.StartListening("a"); err != nil {
		t.Fatalf("start listening failed: %v", err)
	}
	if o.CaptureState("a") != capture.StateStreaming {
		t.Errorf("expected streaming, got %s", o.CaptureState("a"))
	}

	o.ParticipantLeft("a")
	if _, ok := o.Registry().Get("a"); ok {
		t.Error("participant should be unregistered after leaving")
	}
	if err := o.StartListening("a"); err == nil {
		t.Error("listening for a departed participant should fail")
	}
}

func TestStartListeningUnknownParticipant(t *testing.T) {
	o, _, _ := newTestOrchestrator(&fakeTranslator{})
	if err := o.StartListening("ghost"); err == nil {
		t.Error("expected error for unknown participant")
	}
}
