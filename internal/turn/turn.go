package turn

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a turn through the translate/synthesize/play cycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Turn is one translation cycle: a finalized utterance from one speaker,
// translated and spoken back in the target language.
type Turn struct {
	ID             uuid.UUID
	SourceID       string
	SourceName     string
	SourceLanguage string
	TargetLanguage string
	SourceText     string
	TranslatedText string
	Status         Status
	CreatedAt      time.Time
}

// New creates a pending turn for a finalized transcript.
func New(sourceID, sourceName, sourceLang, targetLang, text string) *Turn {
	return &Turn{
		ID:             uuid.New(),
		SourceID:       sourceID,
		SourceName:     sourceName,
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
		SourceText:     text,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
	}
}
