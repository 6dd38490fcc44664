package pause

import "testing"

func TestToggleFlipsPausedState(t *testing.T) {
	g := NewGate(3.0)
	if g.Paused() {
		t.Fatal("expected gate to start unpaused")
	}
	g.Toggle()
	if !g.Paused() {
		t.Fatal("expected gate to be paused after toggle")
	}
	g.Toggle()
	if g.Paused() {
		t.Fatal("expected gate to be unpaused after second toggle")
	}
}

func TestToggleMidFadeFlipsRemainingTime(t *testing.T) {
	g := NewGate(3.0)
	g.Toggle() // pause: timer = 3 - 0 = 3
	g.timer = 1.0 // simulate 2s of fade elapsed
	g.Toggle()    // unpause: timer = 3 - 1 = 2
	if g.timer != 2.0 {
		t.Fatalf("expected flipped remaining time 2.0, got %v", g.timer)
	}
}

func TestSetIsIdempotent(t *testing.T) {
	g := NewGate(3.0)
	g.Set(true)
	if !g.Paused() {
		t.Fatal("expected paused after Set(true)")
	}
	before := g.timer
	g.Set(true)
	if g.timer != before {
		t.Fatal("expected Set(true) to be a no-op when already paused")
	}
}
