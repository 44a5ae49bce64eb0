package registry

import (
	"testing"
)

func TestRegisterIdempotent(t *testing.T) {
	r := New("LINGUIST_BOT_01")

	r.Register("p1", "Asha", "Hindi")
	r.Register("p1", "Asha", "Hindi")

	if r.Len() != 1 {
		t.Fatalf("expected 1 participant after duplicate register, got %d", r.Len())
	}

	p, ok := r.Get("p1")
	if !ok {
		t.Fatal("participant p1 not found")
	}
	if p.DisplayName != "Asha" || p.Language != "Hindi" {
		t.Errorf("unexpected participant data: %+v", p)
	}
}

func TestRegisterUpdatesInPlace(t *testing.T) {
	r := New("LINGUIST_BOT_01")

	r.Register("p1", "Asha", "Hindi")
	r.Register("p2", "Ben", "English")
	r.Register("p1", "Asha K", "Hindi")

	others := r.Others()
	if len(others) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(others))
	}
	// Registration order must survive the update.
	if others[0].ID != "p1" || others[1].ID != "p2" {
		t.Errorf("registration order disturbed: %v, %v", others[0].ID, others[1].ID)
	}
	if others[0].DisplayName != "Asha K" {
		t.Errorf("expected updated display name, got %s", others[0].DisplayName)
	}
}

func TestBotIdentityNeverRegistered(t *testing.T) {
	r := New("LINGUIST_BOT_01")

	r.Register("LINGUIST_BOT_01", "Linguist", "English")

	if r.Len() != 0 {
		t.Error("bot identity must never be registered as a regular participant")
	}
	if _, ok := r.Get("LINGUIST_BOT_01"); ok {
		t.Error("bot identity should not be retrievable")
	}
}

func TestOthersExcludes(t *testing.T) {
	r := New("LINGUIST_BOT_01")

	r.Register("a", "A", "English")
	r.Register("b", "B", "Hindi")
	r.Register("c", "C", "Spanish")

	others := r.Others("a", "LINGUIST_BOT_01")
	if len(others) != 2 {
		t.Fatalf("expected 2 others, got %d", len(others))
	}
	if others[0].ID != "b" || others[1].ID != "c" {
		t.Errorf("unexpected order: %s, %s", others[0].ID, others[1].ID)
	}
}

func TestUnregister(t *testing.T) {
	r := New("LINGUIST_BOT_01")

	r.Register("a", "A", "English")
	r.Register("b", "B", "Hindi")
	r.Unregister("a")
	r.Unregister("missing")

	if r.Len() != 1 {
		t.Fatalf("expected 1 participant, got %d", r.Len())
	}
	others := r.Others()
	if len(others) != 1 || others[0].ID != "b" {
		t.Errorf("unexpected remaining participants: %+v", others)
	}
}
