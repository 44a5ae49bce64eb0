package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/linguist-ai/linguist-bridge/internal/capture"
	"github.com/linguist-ai/linguist-bridge/internal/eventlog"
	"github.com/linguist-ai/linguist-bridge/internal/metrics"
	"github.com/linguist-ai/linguist-bridge/internal/registry"
	"github.com/linguist-ai/linguist-bridge/internal/router"
	"github.com/linguist-ai/linguist-bridge/internal/transcriber"
	"github.com/linguist-ai/linguist-bridge/internal/turn"
)

// Translator is the request/response translation call.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Synthesizer converts translated text into decoded PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, targetLang string) ([]byte, error)
}

// PlaybackDevice plays decoded PCM to the egress sink, blocking until
// playback completes.
type PlaybackDevice interface {
	Play(pcm []byte) error
}

// Config carries the orchestrator's identity and policy knobs.
type Config struct {
	SessionID        string
	BotID            string
	FallbackLanguage string
	Heartbeat        time.Duration
}

// Orchestrator is the top of the pipeline: it owns the registry, the
// router, one capture session per speaking participant and the turn
// scheduler, and drives each accepted turn through
// translate -> synthesize -> play.
type Orchestrator struct {
	cfg        Config
	reg        *registry.Registry
	rtr        *router.Router
	sched      *turn.Scheduler
	translator Translator
	synth      Synthesizer
	player     PlaybackDevice
	dial       transcriber.Dialer
	metrics    *metrics.BridgeMetrics
	events     *eventlog.Logger

	mu       sync.Mutex
	captures map[string]*capture.Session
	stopBeat chan struct{}
	started  bool
}

// New wires the orchestrator. events may be nil to disable the JSONL log.
func New(cfg Config, dial transcriber.Dialer, translator Translator, synth Synthesizer, player PlaybackDevice, events *eventlog.Logger) *Orchestrator {
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = 30 * time.Second
	}

	o := &Orchestrator{
		cfg:        cfg,
		reg:        registry.New(cfg.BotID),
		translator: translator,
		synth:      synth,
		player:     player,
		dial:       dial,
		metrics:    metrics.NewBridgeMetrics(cfg.SessionID),
		events:     events,
		captures:   make(map[string]*capture.Session),
	}
	o.rtr = router.New(o.reg, cfg.FallbackLanguage, o.metrics, o.dispatch)
	o.sched = turn.NewScheduler(o.runTurn)
	return o
}

// Registry exposes the participant registry, mainly for the bridge's
// join/leave notifications.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.reg
}

// Metrics exposes the session metrics.
func (o *Orchestrator) Metrics() *metrics.BridgeMetrics {
	return o.metrics
}

// Start begins the heartbeat. Participants and capture sessions are added
// as the meeting-joiner announces them.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.stopBeat = make(chan struct{})
	o.mu.Unlock()

	if o.events != nil {
		o.events.LogBridgeStart(o.cfg.SessionID, time.Now())
	}
	go o.heartbeat()
	log.Printf("Orchestrator %s: started", o.cfg.SessionID)
}

// Stop tears the session down: all capture sessions are cancelled
// immediately, but an in-flight turn runs to completion before the egress
// sink is released. No forced interruption of a translate/synthesize call.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	close(o.stopBeat)
	sessions := make([]*capture.Session, 0, len(o.captures))
	for _, s := range o.captures {
		sessions = append(sessions, s)
	}
	o.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	o.sched.Wait()

	o.metrics.Finalize()
	o.rtr.LogDropTotals()
	log.Printf("Orchestrator %s: stopped\n%s", o.cfg.SessionID, o.metrics.Summary())
	if o.events != nil {
		o.events.LogBridgeEnd(o.cfg.SessionID, time.Now())
	}
}

// ParticipantJoined registers a participant and creates their idle capture
// session.
func (o *Orchestrator) ParticipantJoined(id, name, language string) {
	o.reg.Register(id, name, language)

	o.mu.Lock()
	if _, exists := o.captures[id]; !exists {
		o.captures[id] = capture.NewSession(id, name, language, o.dial, o.metrics, o.onFinalized)
	}
	o.mu.Unlock()

	if o.events != nil {
		o.events.LogParticipantJoin(o.cfg.SessionID, name, language)
	}
}

// ParticipantLeft stops listening and removes the participant.
func (o *Orchestrator) ParticipantLeft(id string) {
	o.mu.Lock()
	s := o.captures[id]
	delete(o.captures, id)
	o.mu.Unlock()

	if s != nil {
		s.Stop()
		if o.events != nil {
			o.events.LogParticipantLeave(o.cfg.SessionID, s.Name)
		}
	}
	o.reg.Unregister(id)
}

// StartListening opens the streaming transcription channel for a
// participant.
func (o *Orchestrator) StartListening(id string) error {
	o.mu.Lock()
	s := o.captures[id]
	o.mu.Unlock()
	if s == nil {
		return fmt.Errorf("no capture session for participant %s", id)
	}
	return s.Start()
}

// StopListening cancels a participant's capture session, discarding any
// unfinalized buffer. A turn already handed to the scheduler is unaffected.
func (o *Orchestrator) StopListening(id string) {
	o.mu.Lock()
	s := o.captures[id]
	o.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// Route feeds one ingress frame through the router.
func (o *Orchestrator) Route(f router.Frame) {
	o.rtr.Route(f)
}

// CaptureState reports a participant's capture lifecycle state.
func (o *Orchestrator) CaptureState(id string) capture.State {
	o.mu.Lock()
	s := o.captures[id]
	o.mu.Unlock()
	if s == nil {
		return capture.StateIdle
	}
	return s.State()
}

// dispatch is the router's forward path into the speaker's capture session.
func (o *Orchestrator) dispatch(speaker registry.Participant, targetLanguage string, pcm []byte) {
	o.mu.Lock()
	s := o.captures[speaker.ID]
	o.mu.Unlock()
	if s != nil {
		s.Feed(targetLanguage, pcm)
	}
}

// onFinalized turns a completed transcript into a turn proposal. A
// rejection means a translation is already mid-flight; the utterance is
// dropped, not queued.
func (o *Orchestrator) onFinalized(s *capture.Session, text, targetLanguage string) {
	t := turn.New(s.ParticipantID, s.Name, s.Language, targetLanguage, text)
	if !o.sched.Submit(t) {
		o.metrics.TurnRejected()
		if o.events != nil {
			o.events.LogTurnRejected(o.cfg.SessionID, s.Name, text)
		}
	}
}

// runTurn executes one accepted turn to completion or failure. The
// scheduler clears the active slot when this returns, regardless of
// outcome.
func (o *Orchestrator) runTurn(t *turn.Turn) error {
	ctx := context.Background()
	turnID := t.ID.String()

	log.Printf("Turn %s: %s (%s -> %s): %q", turnID, t.SourceName, t.SourceLanguage, t.TargetLanguage, t.SourceText)
	if o.events != nil {
		o.events.LogTurnStart(o.cfg.SessionID, turnID, t.SourceName, t.SourceLanguage, t.TargetLanguage, t.SourceText)
	}

	translated, err := o.translator.Translate(ctx, t.SourceText, t.SourceLanguage, t.TargetLanguage)
	if err != nil {
		o.failTurn(turnID, "translate", err)
		return err
	}
	t.TranslatedText = translated
	if o.events != nil {
		o.events.LogTurnTranslated(o.cfg.SessionID, turnID, translated)
	}

	pcm, err := o.synth.Synthesize(ctx, translated, t.TargetLanguage)
	if err != nil {
		o.failTurn(turnID, "synthesize", err)
		return err
	}

	if err := o.player.Play(pcm); err != nil {
		o.failTurn(turnID, "play", err)
		return err
	}

	o.metrics.TurnFinished(true)
	if o.events != nil {
		o.events.LogTurnPlayed(o.cfg.SessionID, turnID, len(pcm))
	}
	return nil
}

func (o *Orchestrator) failTurn(turnID, stage string, err error) {
	o.metrics.TurnFinished(false)
	log.Printf("Turn %s: %s failed: %v", turnID, stage, err)
	if o.events != nil {
		o.events.LogTurnFailed(o.cfg.SessionID, turnID, fmt.Sprintf("%s: %v", stage, err))
	}
}

// heartbeat logs a periodic status line while the session is up.
func (o *Orchestrator) heartbeat() {
	ticker := time.NewTicker(o.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.mu.Lock()
			active := len(o.captures)
			o.mu.Unlock()
			done, failed, rejected := o.sched.Counts()
			log.Printf("[Status] Pipeline active | participants=%d turns=%d failed=%d rejected=%d",
				active, done, failed, rejected)
		case <-o.stopBeat:
			return
		}
	}
}
