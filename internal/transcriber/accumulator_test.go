package transcriber

import "testing"

func TestAccumulatorCumulativePartials(t *testing.T) {
	var acc Accumulator

	for _, partial := range []string{"Hel", "Hello", "Hello wor"} {
		acc.Apply(partial)
	}

	got := acc.Finalize("Hello world")
	if got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
	if acc.Current() != "" {
		t.Errorf("buffer must be empty after finalize, got %q", acc.Current())
	}
}

func TestAccumulatorFinalizeWithoutFinalText(t *testing.T) {
	var acc Accumulator

	acc.Apply("almost done")
	got := acc.Finalize("")
	if got != "almost done" {
		t.Errorf("expected last partial to win, got %q", got)
	}
}

func TestAccumulatorDiscard(t *testing.T) {
	var acc Accumulator

	acc.Apply("never mind")
	acc.Discard()

	if acc.Current() != "" {
		t.Errorf("expected empty buffer after discard, got %q", acc.Current())
	}
	if got := acc.Finalize(""); got != "" {
		t.Errorf("discarded buffer must not produce text, got %q", got)
	}
}
