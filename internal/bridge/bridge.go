package bridge

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/CyCoreSystems/audiosocket"

	"github.com/linguist-ai/linguist-bridge/internal/langdir"
	"github.com/linguist-ai/linguist-bridge/internal/router"
	"github.com/linguist-ai/linguist-bridge/internal/session"
	"github.com/linguist-ai/linguist-bridge/internal/synth"
)

// ParticipantInfo is the statically configured identity of a known
// participant feed.
type ParticipantInfo struct {
	Name     string
	Language string
}

// Config for the meeting-joiner bridge.
type Config struct {
	Host            string
	Port            int
	BotIdentity     string
	DefaultLanguage string
	SampleRate      int
	Participants    map[string]ParticipantInfo
}

// Bridge is the TCP adapter between the headless meeting-joiner and the
// pipeline. The joiner opens one AudioSocket connection per participant
// audio feed (connect = join, disconnect = leave) plus one connection
// announcing the reserved bot identity, which becomes the egress playback
// sink.
type Bridge struct {
	config   Config
	orch     *session.Orchestrator
	player   *synth.Player
	langs    *langdir.Directory
	listener net.Listener
	wg       sync.WaitGroup
	shutdown chan struct{}
}

// New creates a bridge in front of orch. langs may be nil; unknown
// participants then get the default language.
func New(config Config, orch *session.Orchestrator, player *synth.Player, langs *langdir.Directory) *Bridge {
	return &Bridge{
		config:   config,
		orch:     orch,
		player:   player,
		langs:    langs,
		shutdown: make(chan struct{}),
	}
}

// Addr returns the bound listen address, valid after Start.
func (b *Bridge) Addr() net.Addr {
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Start listens for joiner connections and blocks until Stop.
func (b *Bridge) Start() error {
	addr := fmt.Sprintf("%s:%d", b.config.Host, b.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	b.listener = listener

	log.Printf("Bridge listening on %s", listener.Addr())

	for {
		select {
		case <-b.shutdown:
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-b.shutdown:
					return nil
				default:
					log.Printf("Accept error: %v", err)
					continue
				}
			}

			b.wg.Add(1)
			go b.handleConnection(conn)
		}
	}
}

// Stop closes the listener and waits for all feeds to drain.
func (b *Bridge) Stop() {
	close(b.shutdown)
	if b.listener != nil {
		b.listener.Close()
	}
	b.wg.Wait()
}

func (b *Bridge) handleConnection(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()

	id, err := audiosocket.GetID(conn)
	if err != nil {
		log.Printf("Failed to get feed ID: %v", err)
		return
	}
	feedID := id.String()

	if feedID == b.config.BotIdentity {
		b.handleEgress(conn, feedID)
		return
	}
	b.handleIngress(conn, feedID)
}

// handleEgress attaches the connection as the playback sink for the bot's
// synthesized audio.
func (b *Bridge) handleEgress(conn net.Conn, feedID string) {
	log.Printf("Egress %s: playback sink attached", feedID)
	b.player.SetSink(&slinSink{conn: conn})
	defer func() {
		b.player.SetSink(nil)
		log.Printf("Egress %s: playback sink detached", feedID)
	}()

	// The egress leg only carries audio outward; consume and discard
	// whatever the joiner sends until it hangs up.
	for {
		msg, err := audiosocket.NextMessage(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("Egress %s: read error: %v", feedID, err)
			}
			return
		}
		if msg.Kind() == audiosocket.KindHangup {
			return
		}
	}
}

// handleIngress runs one participant feed: join on connect, route every
// audio message, leave on hangup or disconnect.
func (b *Bridge) handleIngress(conn net.Conn, feedID string) {
	name, language := b.resolveParticipant(feedID)
	log.Printf("Ingress %s: %s (%s) joined", feedID, name, language)

	b.orch.ParticipantJoined(feedID, name, language)
	defer b.orch.ParticipantLeft(feedID)

	if err := b.orch.StartListening(feedID); err != nil {
		log.Printf("Ingress %s: failed to start listening: %v", feedID, err)
		return
	}

	start := time.Now()
	for {
		msg, err := audiosocket.NextMessage(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("Ingress %s: read error: %v", feedID, err)
			}
			break
		}

		switch msg.Kind() {
		case audiosocket.KindSlin:
			b.orch.Route(router.Frame{
				SourceID:           feedID,
				PCM:                msg.Payload(),
				SampleRate:         b.config.SampleRate,
				TimestampMonotonic: time.Since(start).Milliseconds(),
			})

		case audiosocket.KindHangup:
			log.Printf("Ingress %s: hangup", feedID)
			b.orch.StopListening(feedID)
			return

		case audiosocket.KindError:
			log.Printf("Ingress %s: error code %d", feedID, msg.ErrorCode())
		}
	}

	b.orch.StopListening(feedID)
	log.Printf("Ingress %s: %s left after %v", feedID, name, time.Since(start))
}

// resolveParticipant finds the display name and declared language for a
// feed: static config first, then the Redis directory, then the default.
func (b *Bridge) resolveParticipant(feedID string) (string, string) {
	if info, ok := b.config.Participants[feedID]; ok {
		return info.Name, info.Language
	}

	name := feedID
	if len(name) > 8 {
		name = name[:8]
	}

	if b.langs != nil {
		if lang, err := b.langs.Lookup(feedID); err == nil {
			return name, lang
		}
	}
	return name, b.config.DefaultLanguage
}

// slinSink frames egress PCM as AudioSocket audio messages.
type slinSink struct {
	conn net.Conn
}

func (s *slinSink) Write(pcm []byte) error {
	if _, err := s.conn.Write(audiosocket.SlinMessage(pcm)); err != nil {
		return fmt.Errorf("failed to send audio chunk: %w", err)
	}
	return nil
}
