package pipeline

import (
	"testing"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/math3d"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

func identityAt(x, y, z float64) math3d.Mat4 {
	m := math3d.Identity()
	m[3][0], m[3][1], m[3][2] = x, y, z
	return m
}

func TestProcessTransformFirstFrameIsGuard(t *testing.T) {
	s := NewState()
	ok := s.ProcessTransform(identityAt(0, 0, 0), 0.016)
	if !ok {
		t.Fatal("first frame should not be rejected")
	}
	if s.Filtered.Get(schema.PositionX) != 0 {
		t.Fatalf("first-frame guard should not publish a derived position, got %v", s.Filtered.Get(schema.PositionX))
	}
}

func TestProcessTransformGarbageAxesRejected(t *testing.T) {
	s := NewState()
	s.ProcessTransform(identityAt(0, 0, 0), 0.016)

	var m math3d.Mat4 // all-zero rows: right/up/forward are all zero length
	ok := s.ProcessTransform(m, 0.016)
	if ok {
		t.Fatal("expected garbage frame to be rejected")
	}
	if s.DroppedSampleCount() != DroppedSampleMax {
		t.Fatalf("expected dropped_sample_count sentinel, got %d", s.DroppedSampleCount())
	}
}

func TestProcessTransformDuplicateFrameIsStale(t *testing.T) {
	s := NewState()
	t0 := identityAt(0, 0, 0)
	s.ProcessTransform(t0, 0.016)
	t1 := identityAt(1, 0, 0)
	s.ProcessTransform(t1, 0.016)

	before := s.Filtered.Get(schema.PositionX)
	ok := s.ProcessTransform(t1, 0.016)
	if !ok {
		t.Fatal("stale duplicate frame should still report ok")
	}
	if s.Filtered.Get(schema.PositionX) != before {
		t.Fatalf("stale frame should replay last filtered output, got %v want %v", s.Filtered.Get(schema.PositionX), before)
	}
	if s.DroppedSampleCount() != 1 {
		t.Fatalf("expected dropped_sample_count 1 after one duplicate, got %d", s.DroppedSampleCount())
	}
}

func TestProcessTransformDtSanitized(t *testing.T) {
	s := NewState()
	s.ProcessTransform(identityAt(0, 0, 0), 0.016)
	ok := s.ProcessTransform(identityAt(1, 0, 0), 0)
	if !ok {
		t.Fatal("zero dt should not reject the frame")
	}
}

func TestProcessTransformMovementProducesPosition(t *testing.T) {
	s := NewState()
	s.ProcessTransform(identityAt(0, 0, 0), 0.02)
	for i := 1; i <= 5; i++ {
		s.ProcessTransform(identityAt(float64(i), 0, 0), 0.02)
	}
	if s.Filtered.Get(schema.PositionX) <= 0 {
		t.Fatalf("expected position_x to move toward positive x, got %v", s.Filtered.Get(schema.PositionX))
	}
}

func TestPauseGateFreezesFilteredAndSetsFlag(t *testing.T) {
	s := NewState()
	s.ProcessTransform(identityAt(0, 0, 0), 0.02)
	s.ProcessTransform(identityAt(1, 0, 0), 0.02)
	held := s.Filtered.Get(schema.PositionX)

	s.SetPaused(true, pausedFadeSecondsDefault)
	s.ProcessTransform(identityAt(2, 0, 0), 0.02)

	want := held * ((pausedFadeSecondsDefault - 0.02) / pausedFadeSecondsDefault)
	if diff := s.Filtered.Get(schema.PositionX) - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("paused output should be the held position faded by one step, got %v want %v", s.Filtered.Get(schema.PositionX), want)
	}
	if s.Filtered.Get(schema.Paused) != 1 {
		t.Fatal("expected paused flag to be set once paused")
	}
}

func TestPauseUnpauseRestoresUnpausedFlag(t *testing.T) {
	s := NewState()
	s.ProcessTransform(identityAt(0, 0, 0), 0.02)
	s.SetPaused(true, pausedFadeSecondsDefault)
	s.ProcessTransform(identityAt(1, 0, 0), 0.02)
	s.SetPaused(false, pausedFadeSecondsDefault)
	s.ProcessTransform(identityAt(2, 0, 0), 0.02)
	if s.Filtered.Get(schema.Paused) != 0 {
		t.Fatal("expected paused flag cleared after unpause")
	}
}

func TestResetClearsState(t *testing.T) {
	s := NewState()
	s.ProcessTransform(identityAt(0, 0, 0), 0.02)
	s.ProcessTransform(identityAt(3, 0, 0), 0.02)
	s.Reset()
	if s.DroppedSampleCount() != 0 {
		t.Fatalf("expected reset dropped_sample_count 0, got %d", s.DroppedSampleCount())
	}
	ok := s.ProcessTransform(identityAt(0, 0, 0), 0.02)
	if !ok {
		t.Fatal("post-reset frame should be treated as a first frame")
	}
	if s.Filtered.Get(schema.PositionX) != 0 {
		t.Fatalf("post-reset first frame should not derive position yet, got %v", s.Filtered.Get(schema.PositionX))
	}
}
