package record

import (
	"testing"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

func TestRoundTrip(t *testing.T) {
	r := New()
	r.Set(schema.PositionX, 12.5)
	r.Set(schema.Speed, 30.25)
	r.Set(schema.Gear, 3)
	r.Set(schema.Paused, 1)

	buf := r.ToBytes()
	if len(buf) != schema.RecordSize {
		t.Fatalf("ToBytes: got %d bytes, want %d", len(buf), schema.RecordSize)
	}

	got := New()
	if err := got.FromBytes(buf); err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !got.Equal(r) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got.values, r.values)
	}
}

func TestFromBytesWrongSize(t *testing.T) {
	r := New()
	if err := r.FromBytes(make([]byte, schema.RecordSize-1)); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestKeyMaskDisjoint(t *testing.T) {
	a := []schema.DataKey{schema.PositionX, schema.PositionY}
	b := []schema.DataKey{schema.Yaw, schema.Roll}

	maskA := schema.KeyMask(a...)
	maskB := schema.KeyMask(b...)
	union := append(append([]schema.DataKey{}, a...), b...)

	if schema.KeyMask(union...) != maskA|maskB {
		t.Fatal("mask(A∪B) != mask(A)|mask(B)")
	}
	if maskA&maskB != 0 {
		t.Fatal("disjoint key sets must have zero mask intersection")
	}
}

func TestLerpAllFromZero(t *testing.T) {
	r := New()
	r.Set(schema.Speed, 10)
	r.Set(schema.Gear, 3)
	r.Set(schema.Paused, 1)

	r.LerpAllFromZero(0.5)

	if got := r.Get(schema.Speed); got != 5 {
		t.Fatalf("Speed = %v, want 5", got)
	}
	if got := r.Get(schema.Gear); got != 3 {
		t.Fatalf("Gear should be untouched, got %v", got)
	}
	if got := r.Get(schema.Paused); got != 0.5 {
		t.Fatalf("Paused should scale with t like any other channel, got %v", got)
	}
}

func TestLerpAllFromZeroBound(t *testing.T) {
	r := New()
	for _, f := range schema.Fields() {
		if f.Kind == schema.KindFloat32 {
			r.Set(f.Key, 100)
		}
	}
	orig := *r
	for _, tCase := range []float64{0, 0.25, 0.5, 1} {
		r.Copy(&orig)
		r.LerpAllFromZero(tCase)
		for _, f := range schema.Fields() {
			if f.Kind != schema.KindFloat32 || f.Key == schema.Paused {
				continue
			}
			got := r.Get(f.Key)
			want := 100 * tCase
			if diff := got - want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("channel %s: got %v want %v", f.Name, got, want)
			}
		}
	}
}
