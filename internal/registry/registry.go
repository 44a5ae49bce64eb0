package registry

import (
	"log"
	"sync"
)

// Participant is a member of the live call with a declared language.
type Participant struct {
	ID          string
	DisplayName string
	Language    string
}

// Registry maps participant identity to display name and declared language.
// Iteration via Others follows registration order, which is what breaks the
// tie when more than one translation target is present.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]Participant
	order        []string
	botID        string
}

// New creates a registry. botID is the reserved identity of the bridge's own
// playback participant; attempts to register it are refused.
func New(botID string) *Registry {
	return &Registry{
		participants: make(map[string]Participant),
		order:        make([]string, 0, 4),
		botID:        botID,
	}
}

// BotID returns the reserved playback-bot identity.
func (r *Registry) BotID() string {
	return r.botID
}

// Register upserts a participant. Re-registering an existing id updates the
// name and language in place without disturbing registration order.
func (r *Registry) Register(id, name, language string) {
	if id == r.botID {
		log.Printf("Registry: refusing to register reserved bot identity %s", id)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[id]; !exists {
		r.order = append(r.order, id)
	}
	r.participants[id] = Participant{ID: id, DisplayName: name, Language: language}
	log.Printf("Registry: registered participant %s (%s)", name, language)
}

// Unregister removes a participant. Unknown ids are a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.participants[id]; !exists {
		return
	}
	delete(r.participants, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up a participant by id.
func (r *Registry) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// Others returns all participants except the excluded ids, in registration
// order. The bot identity can never appear since it is never registered.
func (r *Registry) Others(excluding ...string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := make(map[string]bool, len(excluding))
	for _, id := range excluding {
		skip[id] = true
	}

	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		if skip[id] {
			continue
		}
		if p, ok := r.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of registered participants.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}
