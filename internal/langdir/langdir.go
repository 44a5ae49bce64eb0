package langdir

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Directory resolves a participant's declared language from a Redis hash
// maintained by the meeting-joiner. Static config takes precedence; the
// directory is only consulted for participants the config does not know.
type Directory struct {
	client *redis.Client
	key    string
}

// New creates a directory reading from the given hash key. A nil client is
// allowed; lookups then always fail and callers fall back to the default
// language.
func New(client *redis.Client, key string) *Directory {
	return &Directory{client: client, key: key}
}

// Lookup returns the declared language for a participant id.
func (d *Directory) Lookup(participantID string) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("language directory not configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	val, err := d.client.HGet(ctx, d.key, participantID).Result()
	if err != nil {
		return "", fmt.Errorf("redis HGET %s %s: %w", d.key, participantID, err)
	}
	if val == "" {
		return "", fmt.Errorf("redis HGET %s %s: empty", d.key, participantID)
	}
	return val, nil
}
