// Package pause implements C7: the pause/resume hotkey gate and its
// optional physical GPIO button source.
//
// Gate holds the hysteretic fade timer described in spec.md §4.7. The GPIO
// source is grounded on the corpus's periph.io IMU initialization pattern
// (host.Init once, then resolve a named pin via gpioreg), generalized here
// from an SPI IMU transport to a digital input pin read through
// periph.io/x/conn's gpio package.
package pause

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Gate tracks the paused/not-paused state and the fade timer that the
// derivation pipeline reads on every frame. It is not safe for concurrent
// use from more than one goroutine without external synchronization.
type Gate struct {
	fadeSeconds float64
	paused      bool
	timer       float64
}

// NewGate creates a gate with the given fade duration (telemetryPausedTime
// in spec.md §4.7).
func NewGate(fadeSeconds float64) *Gate {
	return &Gate{fadeSeconds: fadeSeconds}
}

// Toggle flips the paused state. Re-toggling before a fade completes flips
// the remaining time rather than restarting it, matching spec.md §4.7:
// "timer = telemetryPausedTime - timer".
func (g *Gate) Toggle() {
	g.paused = !g.paused
	g.timer = g.fadeSeconds - g.timer
}

// Set forces the paused state to a specific value, toggling only when it
// differs from the current state.
func (g *Gate) Set(paused bool) {
	if paused == g.paused {
		return
	}
	g.Toggle()
}

// Paused reports the current paused state.
func (g *Gate) Paused() bool { return g.paused }

// FadeSeconds returns the configured fade duration.
func (g *Gate) FadeSeconds() float64 { return g.fadeSeconds }

// GPIOButton watches a named GPIO pin for edges; WaitPress blocks for the
// next edge and reports whether the pin is now at its active level. It is a
// best-effort convenience for rigs wired with a physical pause button;
// hotkey-based pause is the contractual input (spec.md §4.7) and does not
// depend on GPIOButton.
type GPIOButton struct {
	pin gpio.PinIO
}

// OpenGPIOButton initializes the periph.io host (once per process) and
// resolves pinName as a pulled-up digital input, active-low.
func OpenGPIOButton(pinName string) (*GPIOButton, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("pause: periph host init: %w", err)
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("pause: gpio pin %q not found", pinName)
	}
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("pause: configure gpio pin %q: %w", pinName, err)
	}
	return &GPIOButton{pin: pin}, nil
}

// WaitPress blocks until the pin reports an edge, then reports whether the
// new level is the active (pressed, i.e. pulled low) level.
func (b *GPIOButton) WaitPress() (pressed bool, err error) {
	if !b.pin.WaitForEdge(-1) {
		return false, fmt.Errorf("pause: gpio wait for edge failed")
	}
	return b.pin.Read() == gpio.Low, nil
}
