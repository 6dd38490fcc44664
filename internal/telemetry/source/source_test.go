package source

import (
	"math"
	"testing"
	"time"
)

func TestMockProducesOrthonormalAxes(t *testing.T) {
	m := NewMock()
	time.Sleep(time.Millisecond)
	frame, err := m.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	r := frame.Transform.Right()
	if l := r.Length(); math.Abs(l-1) > 1e-6 {
		t.Fatalf("expected unit-length right axis, got %v", l)
	}
}

func TestMockDtIsPositive(t *testing.T) {
	m := NewMock()
	time.Sleep(2 * time.Millisecond)
	frame, err := m.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if frame.Dt <= 0 {
		t.Fatalf("expected positive dt, got %v", frame.Dt)
	}
}
