package capture

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/linguist-ai/linguist-bridge/internal/metrics"
	"github.com/linguist-ai/linguist-bridge/internal/pipeline"
	"github.com/linguist-ai/linguist-bridge/internal/transcriber"
)

// State names the capture session's position in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateFinalizing State = "finalizing"
	StateStopping   State = "stopping"
	StateFailed     State = "failed"
)

var errAlreadyListening = errors.New("session already listening")

// frameQueueDepth bounds the ingress queue between the audio callback path
// and the network drain goroutine. The callback never blocks: when the
// queue is full the frame is dropped.
const frameQueueDepth = 64

// FinalizeFunc receives the completed transcript of one utterance together
// with the translation target that was current when the last frame arrived.
type FinalizeFunc func(s *Session, text, targetLanguage string)

// Session captures one participant's speech: it owns the streaming
// transcription channel and assembles partials until the service marks a
// result final, at which point the transcript is handed off as a turn
// proposal.
type Session struct {
	ID            uuid.UUID
	ParticipantID string
	Name          string
	Language      string

	dial     transcriber.Dialer
	onFinal  FinalizeFunc
	metrics  *metrics.BridgeMetrics
	acc      transcriber.Accumulator
	frames   chan []byte
	stopped  chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	state    State
	stream   transcriber.Stream
	target   string
	dropped  int
}

// NewSession creates an idle capture session for a participant. dial opens
// the streaming transcription channel; onFinal receives finalized
// transcripts.
func NewSession(participantID, name, language string, dial transcriber.Dialer, m *metrics.BridgeMetrics, onFinal FinalizeFunc) *Session {
	return &Session{
		ID:            uuid.New(),
		ParticipantID: participantID,
		Name:          name,
		Language:      language,
		dial:          dial,
		onFinal:       onFinal,
		metrics:       m,
		state:         StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Start moves Idle -> Connecting -> Streaming: it opens the streaming
// transcription channel with the participant's declared language as a hint
// and spawns the drain and result goroutines. Errors land in Failed and the
// session returns to Idle; the caller must Start again, there is no
// automatic retry.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return pipeline.DeviceError(errAlreadyListening)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	stream, err := s.dial(s.Language)
	if err != nil {
		s.setState(StateFailed)
		log.Printf("Capture %s: channel open failed: %v", s.ParticipantID, err)
		s.setState(StateIdle)
		return pipeline.ChannelError(err)
	}

	s.mu.Lock()
	s.stream = stream
	s.frames = make(chan []byte, frameQueueDepth)
	s.stopped = make(chan struct{})
	s.stopOnce = new(sync.Once)
	s.state = StateStreaming
	s.mu.Unlock()

	s.wg.Add(2)
	go s.drainFrames(stream)
	go s.consumeResults(stream)

	log.Printf("Capture %s: streaming (%s)", s.ParticipantID, s.Language)
	return nil
}

// Feed enqueues one routed frame. Called from the audio callback path, so
// it must never block on network I/O: the frame goes into a bounded queue
// that the drain goroutine pushes to the stream.
func (s *Session) Feed(targetLanguage string, pcm []byte) {
	s.mu.Lock()
	if s.state != StateStreaming && s.state != StateFinalizing {
		s.mu.Unlock()
		return
	}
	s.target = targetLanguage
	frames := s.frames
	s.mu.Unlock()

	select {
	case frames <- pcm:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// drainFrames moves queued frames into the network stream off the callback
// path.
func (s *Session) drainFrames(stream transcriber.Stream) {
	defer s.wg.Done()
	for {
		select {
		case pcm := <-s.frames:
			if err := stream.ProcessAudio(pcm); err != nil {
				log.Printf("Capture %s: send failed: %v", s.ParticipantID, err)
				return
			}
		case <-s.stopped:
			return
		}
	}
}

// consumeResults applies transcript events in receipt order. Partials
// accumulate; a final event finalizes the utterance and hands it off, then
// streaming resumes for the next utterance.
func (s *Session) consumeResults(stream transcriber.Stream) {
	defer s.wg.Done()
	for {
		select {
		case result, ok := <-stream.Results():
			if !ok {
				s.handleChannelClosed()
				return
			}
			s.metrics.AddTranscriptResult(result.IsFinal)
			if !result.IsFinal {
				s.acc.Apply(result.Text)
				continue
			}

			s.setState(StateFinalizing)
			text := s.acc.Finalize(result.Text)

			s.mu.Lock()
			target := s.target
			stillUp := s.state == StateFinalizing
			if stillUp {
				s.state = StateStreaming
			}
			s.mu.Unlock()

			if stillUp && text != "" {
				s.onFinal(s, text, target)
			}

		case <-s.stopped:
			return
		}
	}
}

// handleChannelClosed is the ChannelError path: the streaming connection
// dropped underneath us. The session logs, lands in Failed and auto-returns
// to Idle without retrying.
func (s *Session) handleChannelClosed() {
	s.mu.Lock()
	if s.state == StateStopping || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	stream := s.stream
	s.mu.Unlock()

	log.Printf("Capture %s: transcription channel dropped", s.ParticipantID)
	s.signalStop() // releases the drain goroutine
	if stream != nil {
		_ = stream.Close()
	}
	s.acc.Discard()
	s.setState(StateIdle)
}

func (s *Session) signalStop() {
	s.mu.Lock()
	once, stopped := s.stopOnce, s.stopped
	s.mu.Unlock()
	if once == nil || stopped == nil {
		return
	}
	once.Do(func() { close(stopped) })
}

// Stop forces the session down: Stopping -> Idle. The network channel is
// closed, queued audio is abandoned and any unflushed partial buffer is
// discarded. No turn is created from a forcibly-stopped session.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateStopping {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	stream := s.stream
	s.mu.Unlock()

	s.signalStop()
	if stream != nil {
		if err := stream.Close(); err != nil {
			log.Printf("Capture %s: close failed: %v", s.ParticipantID, err)
		}
	}
	s.wg.Wait()

	s.acc.Discard()
	s.setState(StateIdle)
	log.Printf("Capture %s: stopped", s.ParticipantID)
}

// DroppedFrames reports frames discarded because the ingress queue was full.
func (s *Session) DroppedFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
