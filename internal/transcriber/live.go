package transcriber

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// The streaming endpoint expects chunks between 50ms and 1000ms of
	// 16kHz 16-bit mono PCM.
	minChunkSize = 1600  // 50ms
	maxChunkSize = 30400 // 950ms, staying under the 1000ms limit
)

// LiveTranscriber streams PCM to the speech service over a websocket and
// emits partial/final transcript events. Audio is never written to the
// socket from the caller's goroutine: ProcessAudio only appends to a buffer
// which a ticker-driven sender drains, so the audio callback path can never
// block on network I/O.
type LiveTranscriber struct {
	conn        *websocket.Conn
	results     chan Result
	apiKey      string
	sessionID   string
	audioBuffer []byte
	bufferMu    sync.Mutex
	stopSending chan struct{}
	wg          sync.WaitGroup
}

// serviceMessage is the wire format of the streaming transcription service.
type serviceMessage struct {
	Type         string `json:"type"`
	ID           string `json:"id,omitempty"`
	Text         string `json:"text,omitempty"`
	IsFinal      bool   `json:"is_final,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// NewLiveTranscriber opens a streaming session with a declared-language hint.
func NewLiveTranscriber(endpoint, apiKey, languageHint string, sampleRate int) (*LiveTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("speech API key is required")
	}

	url := fmt.Sprintf("%s?sample_rate=%d&language_hint=%s", endpoint, sampleRate, languageHint)

	header := http.Header{}
	header.Add("Authorization", apiKey)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to speech service: %w", err)
	}

	lt := &LiveTranscriber{
		conn:        conn,
		results:     make(chan Result, 100),
		apiKey:      apiKey,
		audioBuffer: make([]byte, 0, 8000),
		stopSending: make(chan struct{}),
	}

	go lt.handleResults()

	lt.wg.Add(1)
	go lt.audioSender()

	log.Printf("Transcriber: streaming session opened (hint=%s)", languageHint)
	return lt, nil
}

// ProcessAudio enqueues PCM for the sender goroutine. Never blocks on the
// network.
func (lt *LiveTranscriber) ProcessAudio(pcm []byte) error {
	lt.bufferMu.Lock()
	defer lt.bufferMu.Unlock()
	lt.audioBuffer = append(lt.audioBuffer, pcm...)
	return nil
}

func (lt *LiveTranscriber) audioSender() {
	defer lt.wg.Done()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lt.sendBufferedAudio()
		case <-lt.stopSending:
			lt.sendBufferedAudio()
			return
		}
	}
}

func (lt *LiveTranscriber) sendBufferedAudio() {
	lt.bufferMu.Lock()
	defer lt.bufferMu.Unlock()

	if len(lt.audioBuffer) < minChunkSize {
		return
	}

	for len(lt.audioBuffer) >= minChunkSize {
		chunkSize := len(lt.audioBuffer)
		if chunkSize > maxChunkSize {
			chunkSize = maxChunkSize
		}

		chunk := lt.audioBuffer[:chunkSize]
		if err := lt.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Transcriber: failed to send audio: %v", err)
			}
			lt.audioBuffer = lt.audioBuffer[:0]
			return
		}

		lt.audioBuffer = lt.audioBuffer[chunkSize:]
	}
}

func (lt *LiveTranscriber) handleResults() {
	for {
		_, message, err := lt.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Transcriber: websocket error: %v", err)
			}
			close(lt.results)
			return
		}

		var msg serviceMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Transcriber: failed to parse message: %v", err)
			continue
		}

		switch msg.Type {
		case "Begin":
			lt.sessionID = msg.ID
			log.Printf("Transcriber: session started: %s", msg.ID)

		case "Transcript":
			if msg.Text != "" {
				lt.results <- Result{
					Text:         msg.Text,
					IsFinal:      msg.IsFinal,
					LanguageCode: msg.LanguageCode,
				}
			}

		case "Termination":
			log.Printf("Transcriber: session terminated: %s", lt.sessionID)
		}
	}
}

// Results returns the transcript event channel. It is closed when the
// streaming connection ends.
func (lt *LiveTranscriber) Results() <-chan Result {
	return lt.results
}

// Close stops the sender, flushes any buffered audio and terminates the
// streaming session.
func (lt *LiveTranscriber) Close() error {
	close(lt.stopSending)
	lt.wg.Wait()

	lt.bufferMu.Lock()
	if len(lt.audioBuffer) > 0 {
		_ = lt.conn.WriteMessage(websocket.BinaryMessage, lt.audioBuffer)
		lt.audioBuffer = lt.audioBuffer[:0]
	}
	lt.bufferMu.Unlock()

	terminate := serviceMessage{Type: "Terminate"}
	if msgBytes, err := json.Marshal(terminate); err == nil {
		lt.conn.WriteMessage(websocket.TextMessage, msgBytes)
	}

	return lt.conn.Close()
}
