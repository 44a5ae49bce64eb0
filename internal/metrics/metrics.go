package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Drop reasons counted by the router. Dropped frames are not errors; they
// are the router doing its job.
const (
	DropFeedback     = "feedback"
	DropUnregistered = "unregistered"
	DropMalformed    = "malformed"
)

// BridgeMetrics tracks one bridge session's pipeline activity.
type BridgeMetrics struct {
	SessionID      string
	StartTime      time.Time
	EndTime        time.Time
	AudioBytes     int
	PartialCount   int
	FinalCount     int
	TurnsCompleted int
	TurnsFailed    int
	TurnsRejected  int
	FirstTurnTime  *time.Time
	drops          map[string]int
	mu             sync.Mutex
}

func NewBridgeMetrics(sessionID string) *BridgeMetrics {
	return &BridgeMetrics{
		SessionID: sessionID,
		StartTime: time.Now(),
		drops:     make(map[string]int),
	}
}

func (m *BridgeMetrics) AddAudioBytes(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AudioBytes += n
}

func (m *BridgeMetrics) AddDrop(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[reason]++
}

func (m *BridgeMetrics) Drops(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops[reason]
}

func (m *BridgeMetrics) AddTranscriptResult(isFinal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if isFinal {
		m.FinalCount++
	} else {
		m.PartialCount++
	}
}

func (m *BridgeMetrics) TurnFinished(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FirstTurnTime == nil {
		now := time.Now()
		m.FirstTurnTime = &now
	}
	if ok {
		m.TurnsCompleted++
	} else {
		m.TurnsFailed++
	}
}

func (m *BridgeMetrics) TurnRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnsRejected++
}

func (m *BridgeMetrics) Finalize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
}

func (m *BridgeMetrics) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.EndTime.Sub(m.StartTime)
	var latency time.Duration
	if m.FirstTurnTime != nil {
		latency = m.FirstTurnTime.Sub(m.StartTime)
	}

	audioDuration := float64(m.AudioBytes) / (16000 * 2) // 16kHz, 16-bit

	return fmt.Sprintf(
		"Session: %s\n"+
			"Duration: %v\n"+
			"Audio Routed: %.2f seconds (%d bytes)\n"+
			"Partial Results: %d\n"+
			"Final Results: %d\n"+
			"Turns Completed: %d\n"+
			"Turns Failed: %d\n"+
			"Turns Rejected: %d\n"+
			"Drops: feedback=%d unregistered=%d malformed=%d\n"+
			"First Turn Latency: %v\n",
		m.SessionID,
		duration,
		audioDuration,
		m.AudioBytes,
		m.PartialCount,
		m.FinalCount,
		m.TurnsCompleted,
		m.TurnsFailed,
		m.TurnsRejected,
		m.drops[DropFeedback],
		m.drops[DropUnregistered],
		m.drops[DropMalformed],
		latency,
	)
}
