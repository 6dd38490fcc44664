// Package schema defines the ordered channel enumeration that drives the
// telemetry record's layout, key-mask bits, and on-wire field order.
//
// In the original system this table was produced by loading
// CMCustomUDPFormat.xml at process start. Here it is an injected,
// compile-time table instead (see Design Note 9c): nothing in this package
// reads a file. A future XML-backed loader can populate the same
// []FieldSpec shape without touching any consumer of Fields().
package schema

// Kind identifies how a channel's bytes are interpreted.
type Kind int

const (
	KindFloat32 Kind = iota
	KindInt32
)

// DataKey is the ordinal position of a channel in the record. Its numeric
// value is also the bit position in a key mask, so DataKey count must stay
// at or below 64.
type DataKey int

// FieldSpec names one channel: its key, its byte offset within the packed
// record, and how to interpret its bytes.
type FieldSpec struct {
	Name   string
	Key    DataKey
	Offset int
	Kind   Kind
}

const (
	PositionX DataKey = iota
	PositionY
	PositionZ
	Pitch
	Yaw
	Roll

	LocalVelocityX
	LocalVelocityY
	LocalVelocityZ
	GForceLateral
	GForceVertical
	GForceLongitudinal
	Speed

	YawVelocity
	YawAcceleration
	PitchVelocity
	PitchAcceleration
	RollVelocity
	RollAcceleration

	SuspensionPositionBL
	SuspensionPositionBR
	SuspensionPositionFL
	SuspensionPositionFR
	SuspensionVelocityBL
	SuspensionVelocityBR
	SuspensionVelocityFL
	SuspensionVelocityFR
	SuspensionAccelerationBL
	SuspensionAccelerationBR
	SuspensionAccelerationFL
	SuspensionAccelerationFR
	WheelPatchSpeedBL
	WheelPatchSpeedBR
	WheelPatchSpeedFL
	WheelPatchSpeedFR

	EngineRate
	MaxRPM
	IdleRPM
	Gear
	MaxGears
	SteeringInput
	ThrottleInput
	BrakeInput

	Paused

	numKeys
)

// NumKeys is the total number of channels in the record.
const NumKeys = int(numKeys)

// names holds the declaration-order channel names, parallel to the DataKey
// iota block above. Order here is the authoritative field order (spec.md
// §3: "field ordering is authoritative").
var names = [numKeys]string{
	PositionX: "position_x", PositionY: "position_y", PositionZ: "position_z",
	Pitch: "pitch", Yaw: "yaw", Roll: "roll",

	LocalVelocityX: "local_velocity_x", LocalVelocityY: "local_velocity_y", LocalVelocityZ: "local_velocity_z",
	GForceLateral: "gforce_lateral", GForceVertical: "gforce_vertical", GForceLongitudinal: "gforce_longitudinal",
	Speed: "speed",

	YawVelocity: "yaw_velocity", YawAcceleration: "yaw_acceleration",
	PitchVelocity: "pitch_velocity", PitchAcceleration: "pitch_acceleration",
	RollVelocity: "roll_velocity", RollAcceleration: "roll_acceleration",

	SuspensionPositionBL: "suspension_position_bl", SuspensionPositionBR: "suspension_position_br",
	SuspensionPositionFL: "suspension_position_fl", SuspensionPositionFR: "suspension_position_fr",
	SuspensionVelocityBL: "suspension_velocity_bl", SuspensionVelocityBR: "suspension_velocity_br",
	SuspensionVelocityFL: "suspension_velocity_fl", SuspensionVelocityFR: "suspension_velocity_fr",
	SuspensionAccelerationBL: "suspension_acceleration_bl", SuspensionAccelerationBR: "suspension_acceleration_br",
	SuspensionAccelerationFL: "suspension_acceleration_fl", SuspensionAccelerationFR: "suspension_acceleration_fr",
	WheelPatchSpeedBL: "wheel_patch_speed_bl", WheelPatchSpeedBR: "wheel_patch_speed_br",
	WheelPatchSpeedFL: "wheel_patch_speed_fl", WheelPatchSpeedFR: "wheel_patch_speed_fr",

	EngineRate: "engine_rate", MaxRPM: "max_rpm", IdleRPM: "idle_rpm",
	Gear: "gear", MaxGears: "max_gears",
	SteeringInput: "steering_input", ThrottleInput: "throttle_input", BrakeInput: "brake_input",

	Paused: "paused",
}

// intKeys are the channels stored as int32 rather than float32. Every other
// key is float32.
var intKeys = map[DataKey]bool{
	Gear: true, MaxGears: true, Paused: true, MaxRPM: true, IdleRPM: true,
}

// fields is built once at package init from names/intKeys: the "injected
// schema" referenced throughout this package's docs, in place of a runtime
// XML load.
var fields []FieldSpec

// RecordSize is the packed byte size of one telemetry record: 4 bytes per
// channel, declaration order, no padding.
var RecordSize int

func init() {
	fields = make([]FieldSpec, numKeys)
	offset := 0
	for k := DataKey(0); k < numKeys; k++ {
		kind := KindFloat32
		if intKeys[k] {
			kind = KindInt32
		}
		fields[k] = FieldSpec{Name: names[k], Key: k, Offset: offset, Kind: kind}
		offset += 4
	}
	RecordSize = offset
}

// Fields returns the ordered channel table. Callers must not mutate the
// returned slice.
func Fields() []FieldSpec { return fields }

// Name returns the declared name for a key.
func (k DataKey) Name() string {
	if k < 0 || int(k) >= int(numKeys) {
		return ""
	}
	return names[k]
}

// Mask returns the bit for a single key.
func (k DataKey) Mask() uint64 { return 1 << uint(k) }

// KeyMask ORs together the bits for a set of keys. For disjoint key sets A
// and B, KeyMask(A...)|KeyMask(B...) == KeyMask(append(A,B)...) and
// KeyMask(A...)&KeyMask(B...) == 0, since each key contributes exactly one
// distinct bit.
func KeyMask(keys ...DataKey) uint64 {
	var m uint64
	for _, k := range keys {
		m |= k.Mask()
	}
	return m
}

// AllKeys returns every declared DataKey in declaration order.
func AllKeys() []DataKey {
	out := make([]DataKey, numKeys)
	for k := DataKey(0); k < numKeys; k++ {
		out[k] = k
	}
	return out
}
