package synth

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/linguist-ai/linguist-bridge/internal/pipeline"
)

// Sink is the egress playback device. The meeting-joiner's virtual
// microphone sits behind it.
type Sink interface {
	Write(pcm []byte) error
}

// Player paces decoded PCM into the sink in 20ms chunks. Playback is
// exclusive per sink: a Play call started while another is in progress
// waits for the previous playback to finish, so translated audio is never
// overlapped on the wire.
type Player struct {
	mu         sync.Mutex // held for the whole playback
	sinkMu     sync.Mutex
	sink       Sink
	sampleRate int
}

// NewPlayer creates a player for PCM at the synthesis sample rate.
func NewPlayer(sampleRate int) *Player {
	return &Player{sampleRate: sampleRate}
}

// SetSink attaches or replaces the egress sink. A nil sink makes Play fail
// with a device error until one is attached.
func (p *Player) SetSink(sink Sink) {
	p.sinkMu.Lock()
	p.sink = sink
	p.sinkMu.Unlock()
}

// Play writes the full payload to the sink, 20ms at a time. It blocks until
// playback completes or the sink errors; no partial chunk pacing games.
func (p *Player) Play(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sinkMu.Lock()
	sink := p.sink
	p.sinkMu.Unlock()

	if sink == nil {
		return pipeline.DeviceError(fmt.Errorf("no egress sink attached"))
	}

	// 20ms of 16-bit mono PCM.
	chunkSize := p.sampleRate / 50 * 2

	for i := 0; i < len(pcm); i += chunkSize {
		end := i + chunkSize
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := sink.Write(pcm[i:end]); err != nil {
			return pipeline.DeviceError(fmt.Errorf("sink write failed: %w", err))
		}
		time.Sleep(20 * time.Millisecond)
	}

	log.Printf("Player: played %d bytes (%.2f seconds)",
		len(pcm), float64(len(pcm))/float64(p.sampleRate*2))
	return nil
}
