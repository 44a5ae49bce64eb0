package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger writes structured JSONL pipeline events to a file, one object per
// line.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

type record struct {
	Timestamp  string            `json:"ts"`
	Event      string            `json:"event"`
	SessionID  string            `json:"session_id"`
	TurnID     string            `json:"turn_id,omitempty"`
	Speaker    string            `json:"speaker,omitempty"`
	SourceLang string            `json:"source_lang,omitempty"`
	TargetLang string            `json:"target_lang,omitempty"`
	Text       string            `json:"text,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// New creates a logger under outputDir. Filename is timestamp + session id.
func New(outputDir, sessionID string, started time.Time) (*Logger, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	shortID := sessionID
	if len(sessionID) > 8 {
		shortID = sessionID[:8]
	}
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_bridge_%s.jsonl", started.Format("20060102_150405"), shortID))
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f}, nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) write(rec record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	rec.Text = strings.TrimSpace(rec.Text)
	enc := json.NewEncoder(l.file)
	_ = enc.Encode(rec)
}

func (l *Logger) LogBridgeStart(sessionID string, started time.Time) {
	l.write(record{Timestamp: started.Format(time.RFC3339Nano), Event: "bridge_start", SessionID: sessionID})
}

func (l *Logger) LogBridgeEnd(sessionID string, ended time.Time) {
	l.write(record{Timestamp: ended.Format(time.RFC3339Nano), Event: "bridge_end", SessionID: sessionID})
}

func (l *Logger) LogParticipantJoin(sessionID, participant, language string) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "participant_join", SessionID: sessionID, Speaker: participant, SourceLang: language})
}

func (l *Logger) LogParticipantLeave(sessionID, participant string) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "participant_leave", SessionID: sessionID, Speaker: participant})
}

func (l *Logger) LogTurnStart(sessionID, turnID, speaker, sourceLang, targetLang, text string) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "turn_start", SessionID: sessionID, TurnID: turnID, Speaker: speaker, SourceLang: sourceLang, TargetLang: targetLang, Text: text})
}

func (l *Logger) LogTurnTranslated(sessionID, turnID, text string) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "turn_translated", SessionID: sessionID, TurnID: turnID, Text: text})
}

func (l *Logger) LogTurnPlayed(sessionID, turnID string, audioBytes int) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "turn_played", SessionID: sessionID, TurnID: turnID, Details: map[string]string{"audio_bytes": fmt.Sprintf("%d", audioBytes)}})
}

func (l *Logger) LogTurnFailed(sessionID, turnID, reason string) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "turn_failed", SessionID: sessionID, TurnID: turnID, Details: map[string]string{"reason": reason}})
}

func (l *Logger) LogTurnRejected(sessionID, speaker, text string) {
	l.write(record{Timestamp: time.Now().Format(time.RFC3339Nano), Event: "turn_rejected", SessionID: sessionID, Speaker: speaker, Text: text})
}
