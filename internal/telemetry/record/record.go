// Package record implements the fixed-layout telemetry packet (C1):
// a flat, packed set of named channels with keyed access, little-endian
// (de)serialization, and the fade helper used by the pause gate and the
// consumer's start-up smoothing.
package record

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

// Record holds one frame's worth of telemetry channels. Values are stored
// as float64 internally for derivation-math precision; on-wire and in
// shared memory they are packed as float32/int32, matching spec.md §3.
type Record struct {
	values [schema.NumKeys]float64
}

// New returns a zeroed record.
func New() *Record { return &Record{} }

// Init zeroes every channel in place.
func (r *Record) Init() {
	for i := range r.values {
		r.values[i] = 0
	}
}

// Get reads a channel value.
func (r *Record) Get(k schema.DataKey) float64 { return r.values[k] }

// Set writes a channel value.
func (r *Record) Set(k schema.DataKey, v float64) { r.values[k] = v }

// Copy overwrites r's channels with other's.
func (r *Record) Copy(other *Record) { r.values = other.values }

// Equal reports whether two records hold bit-identical channel values.
func (r *Record) Equal(other *Record) bool { return r.values == other.values }

// LerpAllFromZero multiplies every float channel by t, leaving integer
// state channels (gear, max_gears, max_rpm, idle_rpm) untouched except
// Paused, which scales like any other channel so a fading-in record does
// not claim to be instantly paused. This implements the interpolation
// "from a zero record to current values" described in spec.md §4.1.
func (r *Record) LerpAllFromZero(t float64) {
	for _, f := range schema.Fields() {
		if f.Kind == schema.KindInt32 && f.Key != schema.Paused {
			continue
		}
		r.values[f.Key] *= t
	}
}

// KeyMask is a convenience re-export so callers needn't import schema
// directly just to build a mask.
func KeyMask(keys ...schema.DataKey) uint64 { return schema.KeyMask(keys...) }

// ToBytes serializes the record into a little-endian packed buffer of
// exactly schema.RecordSize bytes, in declaration order.
func (r *Record) ToBytes() []byte {
	buf := make([]byte, schema.RecordSize)
	for _, f := range schema.Fields() {
		v := r.values[f.Key]
		switch f.Kind {
		case schema.KindInt32:
			binary.LittleEndian.PutUint32(buf[f.Offset:], uint32(int32(v)))
		default:
			binary.LittleEndian.PutUint32(buf[f.Offset:], math.Float32bits(float32(v)))
		}
	}
	return buf
}

// FromBytes decodes buf into r. It is total over any buffer of exactly
// schema.RecordSize bytes: undefined bytes simply map to whatever value
// their bit pattern decodes to, with no further interpretation.
func (r *Record) FromBytes(buf []byte) error {
	if len(buf) != schema.RecordSize {
		return fmt.Errorf("record: FromBytes: want %d bytes, got %d", schema.RecordSize, len(buf))
	}
	for _, f := range schema.Fields() {
		raw := binary.LittleEndian.Uint32(buf[f.Offset:])
		switch f.Kind {
		case schema.KindInt32:
			r.values[f.Key] = float64(int32(raw))
		default:
			r.values[f.Key] = float64(math.Float32frombits(raw))
		}
	}
	return nil
}
