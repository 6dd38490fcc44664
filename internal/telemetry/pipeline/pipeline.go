// Package pipeline implements C4: the per-frame derivation that turns a raw
// world transform into a complete, filtered telemetry record.
//
// The stage order, constants, and edge-case handling below follow spec.md
// §4.4 exactly; comments reference the stage numbers there. Grounded on the
// corpus's single-callback frame pipeline style (the lidar tracking
// pipeline's NewFrameCallback gates each stage on the previous one's
// result and bails out early on a dropped/garbage frame) generalized from
// point-cloud frames to rigid-body transforms.
package pipeline

import (
	"math"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/filter"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/math3d"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/record"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

// gToMetersPerSecondSquared is 1/9.80665, the g-conversion constant from
// the glossary.
const gToMetersPerSecondSquared = 0.10197162129779283

// maxAccel2DMagSusp clamps the planar g-force magnitude used to drive the
// suspension proxy (spec.md §4.4 stage 9).
const maxAccel2DMagSusp = 3.0

const (
	travelCenter = -20.0
	travelMax    = 8 - travelCenter  // 28
	travelMin    = -80 - travelCenter // -60
)

const minAxisLength = 0.9
const defaultDt = 0.015

// DroppedSampleMax is the sentinel dropped_sample_count value written when
// a garbage frame is detected (spec.md §4.4 stage 1).
const DroppedSampleMax = math.MaxInt32

// ControllerInput is the driver-input snapshot the derivation pipeline
// reads at stage 12. It stands in for the out-of-scope controller driver
// (spec.md §1).
type ControllerInput struct {
	LeftThumbX   float64
	LeftTrigger  float64
	RightTrigger float64
}

// corner identifies one of the four suspension corners.
type corner int

const (
	cornerBL corner = iota
	cornerBR
	cornerFL
	cornerFR
	numCorners
)

var cornerVec = [numCorners]math3d.Vec2{
	cornerBL: {X: -0.5, Y: -1},
	cornerBR: {X: 0.5, Y: -1},
	cornerFL: {X: -0.5, Y: 1},
	cornerFR: {X: 0.5, Y: 1},
}

var cornerPositionKey = [numCorners]schema.DataKey{
	cornerBL: schema.SuspensionPositionBL, cornerBR: schema.SuspensionPositionBR,
	cornerFL: schema.SuspensionPositionFL, cornerFR: schema.SuspensionPositionFR,
}
var cornerVelocityKey = [numCorners]schema.DataKey{
	cornerBL: schema.SuspensionVelocityBL, cornerBR: schema.SuspensionVelocityBR,
	cornerFL: schema.SuspensionVelocityFL, cornerFR: schema.SuspensionVelocityFR,
}
var cornerAccelKey = [numCorners]schema.DataKey{
	cornerBL: schema.SuspensionAccelerationBL, cornerBR: schema.SuspensionAccelerationBR,
	cornerFL: schema.SuspensionAccelerationFL, cornerFR: schema.SuspensionAccelerationFR,
}
var cornerWheelPatchKey = [numCorners]schema.DataKey{
	cornerBL: schema.WheelPatchSpeedBL, cornerBR: schema.WheelPatchSpeedBR,
	cornerFL: schema.WheelPatchSpeedFL, cornerFR: schema.WheelPatchSpeedFR,
}

var (
	positionKeys       = []schema.DataKey{schema.PositionX, schema.PositionY, schema.PositionZ}
	velocityKeys       = []schema.DataKey{schema.LocalVelocityX, schema.LocalVelocityY, schema.LocalVelocityZ}
	gforceKeys         = []schema.DataKey{schema.GForceLateral, schema.GForceVertical, schema.GForceLongitudinal}
	angularVelKeys     = []schema.DataKey{schema.YawVelocity, schema.PitchVelocity, schema.RollVelocity}
	angularAccelKeys   = []schema.DataKey{schema.YawAcceleration, schema.PitchAcceleration, schema.RollAcceleration}
	suspensionVelKeys  = []schema.DataKey{schema.SuspensionVelocityBL, schema.SuspensionVelocityBR, schema.SuspensionVelocityFL, schema.SuspensionVelocityFR}
	suspensionAccKeys  = []schema.DataKey{schema.SuspensionAccelerationBL, schema.SuspensionAccelerationBR, schema.SuspensionAccelerationFL, schema.SuspensionAccelerationFR}
)

var individuallyFilteredMask = schema.KeyMask(append(append(append(append(append(append(
	append([]schema.DataKey{}, positionKeys...), velocityKeys...), gforceKeys...), angularVelKeys...), angularAccelKeys...),
	suspensionVelKeys...), suspensionAccKeys...)...)

// residualMask is every channel not already filtered individually in an
// earlier stage (spec.md §4.4 stage 13).
var residualMask = func() uint64 {
	var m uint64
	for _, k := range schema.AllKeys() {
		if individuallyFilteredMask&k.Mask() == 0 {
			m |= k.Mask()
		}
	}
	return m
}()

// State is the pipeline's per-instance memory (the record.md §3 "pipeline
// state"). It is created by NewState (start_sending) and cleared by Reset
// (stop_sending), owned
// exclusively by the producer loop (no concurrent mutation).
type State struct {
	Raw      *record.Record
	Filtered *record.Record

	lastFiltered     *record.Record
	lastTransform    math3d.Mat4
	lastPosition     math3d.Vec3
	lastVelocity     math3d.Vec3
	lastWorldVel     math3d.Vec3
	rotInv           math3d.Mat4
	lastFrameValid   bool
	positionStreamed bool
	droppedCount     int64
	lastDt           float64

	filter *filter.Filter

	paused      bool
	pausedTimer float64

	controller ControllerInput
}

const (
	maxRPM  = 6000.0
	idleRPM = 700.0
)

// NewState creates a fresh pipeline state, as on start_sending.
func NewState() *State {
	s := &State{
		Raw:          record.New(),
		Filtered:     record.New(),
		lastFiltered: record.New(),
		filter:       filter.NewDefault(),
	}
	return s
}

// Reset returns the state to its start_sending condition, as on
// stop_sending (spec.md §3).
func (s *State) Reset() {
	*s = *NewState()
}

// SetControllerInput updates the driver-input snapshot read by stage 12.
func (s *State) SetControllerInput(in ControllerInput) { s.controller = in }

// SetPaused toggles the pause gate (C7). Re-toggling before a fade
// completes flips the remaining time, per spec.md §4.7's hysteresis rule.
func (s *State) SetPaused(paused bool, pausedFadeSeconds float64) {
	if paused == s.paused {
		return
	}
	s.paused = paused
	s.pausedTimer = pausedFadeSeconds - s.pausedTimer
}

// DroppedSampleCount reports the running dropped/stale frame counter.
func (s *State) DroppedSampleCount() int64 { return s.droppedCount }

// ProcessTransform runs one frame through the full derivation pipeline
// (spec.md §4.4, stages 1-15 short of publish, which the transport layer
// performs). It returns false only when the frame is rejected as garbage
// (stage 1); every other outcome, including stale/dropped frames, returns
// true with State.Filtered holding the record to publish.
func (s *State) ProcessTransform(transform math3d.Mat4, dt float64) bool {
	// Stage 1: axis extraction / garbage check.
	rht, up, fwd := transform.Right(), transform.Up(), transform.Forward()
	if rht.Length() < minAxisLength || up.Length() < minAxisLength || fwd.Length() < minAxisLength {
		s.droppedCount = DroppedSampleMax
		return false
	}

	// Stage 2: first-frame guard.
	if !s.lastFrameValid {
		s.lastPosition = transform.Translation()
		s.lastTransform = transform
		s.lastVelocity = math3d.Vec3{}
		s.lastWorldVel = math3d.Vec3{}
		s.lastFrameValid = true
		return true
	}

	// Stage 3: dt sanitize.
	if dt <= 0 {
		dt = defaultDt
	}
	s.lastDt = dt

	// Stage 4: position & change detection.
	if transform == s.lastTransform {
		s.Filtered.Copy(s.lastFiltered)
		s.droppedCount++
		return true
	}
	worldPosition := transform.Translation()
	s.Raw.Set(schema.PositionX, worldPosition.X)
	s.Raw.Set(schema.PositionY, worldPosition.Y)
	s.Raw.Set(schema.PositionZ, worldPosition.Z)
	reset := !s.positionStreamed
	s.positionStreamed = true
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(positionKeys...), reset)
	s.droppedCount = 0

	// Stage 5: local velocity.
	worldVelocity := worldPosition.Sub(s.lastPosition).Scale(1 / dt)
	rotOnly := transform.WithZeroTranslation()
	rotInv, ok := rotOnly.Inverse()
	if ok {
		s.rotInv = rotInv
	}
	localVel := s.rotInv.TransformVector(worldVelocity)
	localVel.X = -localVel.X // handedness flip the consumer expects
	s.Raw.Set(schema.LocalVelocityX, localVel.X)
	s.Raw.Set(schema.LocalVelocityY, localVel.Y)
	s.Raw.Set(schema.LocalVelocityZ, localVel.Z)
	s.lastPosition = worldPosition
	s.lastWorldVel = worldVelocity

	// Stage 6: velocity filter.
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(velocityKeys...), reset)

	// Stage 7: local acceleration -> g-force.
	filteredVel := math3d.Vec3{
		X: s.Filtered.Get(schema.LocalVelocityX),
		Y: s.Filtered.Get(schema.LocalVelocityY),
		Z: s.Filtered.Get(schema.LocalVelocityZ),
	}
	accel := filteredVel.Sub(s.lastVelocity).Scale(1 / dt).Scale(gToMetersPerSecondSquared)
	s.Raw.Set(schema.GForceLateral, accel.X)
	s.Raw.Set(schema.GForceVertical, accel.Y)
	s.Raw.Set(schema.GForceLongitudinal, accel.Z)
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(gforceKeys...), reset)
	s.lastVelocity = filteredVel

	// Stage 8: Euler angles.
	q := math3d.QuatFromMat4(transform)
	pyr := q.ToEuler()
	roll := math3d.LoopAngleRad(-pyr.Z, math.Pi/2)
	s.Raw.Set(schema.Pitch, pyr.X)
	s.Raw.Set(schema.Yaw, pyr.Y)
	s.Raw.Set(schema.Roll, roll)

	// Stage 9: suspension synthesis.
	s.computeSuspension(reset)

	// Stage 10: angular velocity / acceleration.
	s.computeAngularVelocity(dt, reset)

	// Stage 11: engine proxy.
	s.Raw.Set(schema.MaxRPM, maxRPM)
	s.Raw.Set(schema.MaxGears, 6)
	s.Raw.Set(schema.Gear, 1)
	s.Raw.Set(schema.IdleRPM, idleRPM)
	speed := math3d.Vec3{X: localVel.X, Y: localVel.Y, Z: localVel.Z}.Length()
	s.Raw.Set(schema.Speed, speed)

	// Stage 12: driver inputs.
	s.Raw.Set(schema.EngineRate, s.controller.RightTrigger*5500+700)
	s.Raw.Set(schema.SteeringInput, s.controller.LeftThumbX)
	s.Raw.Set(schema.ThrottleInput, s.controller.RightTrigger)
	s.Raw.Set(schema.BrakeInput, s.controller.LeftTrigger)

	// Stage 13: residual filter (everything not yet individually filtered).
	s.filter.Filter(s.Raw, s.Filtered, residualMask, reset)

	// Stage 14: pause gate.
	s.applyPauseGate(pausedFadeSecondsDefault, dt)

	s.lastTransform = transform
	s.lastFiltered.Copy(s.Filtered)
	return true
}

// pausedFadeSecondsDefault is telemetryPausedTime from spec.md §4.7.
const pausedFadeSecondsDefault = 3.0

func (s *State) computeSuspension(reset bool) {
	planar := math3d.Vec2{
		X: s.Filtered.Get(schema.GForceLateral) / gToMetersPerSecondSquared,
		Y: s.Filtered.Get(schema.GForceLongitudinal) / gToMetersPerSecondSquared,
	}
	mag := planar.Length()
	if mag > maxAccel2DMagSusp {
		mag = maxAccel2DMagSusp
	}
	scaledAccelMag := mag / maxAccel2DMagSusp

	accelNorm := math3d.SafeNormalize2(planar)

	for c := corner(0); c < numCorners; c++ {
		dot := accelNorm.Dot(cornerVec[c])
		if math.IsNaN(dot) || math.IsInf(dot, 0) {
			dot = 0
		}
		var span float64
		switch {
		case dot > 0:
			span = travelMax
		case dot < 0:
			span = travelMin
		}
		travel := travelCenter + span*math.Abs(dot)*scaledAccelMag
		s.Raw.Set(cornerPositionKey[c], travel)
		s.Filtered.Set(cornerPositionKey[c], travel)
	}

	lastFilteredSnapshot := [numCorners]float64{}
	for c := corner(0); c < numCorners; c++ {
		lastFilteredSnapshot[c] = s.lastFiltered.Get(cornerPositionKey[c])
	}

	dt := s.lastDt
	for c := corner(0); c < numCorners; c++ {
		vel := (s.Filtered.Get(cornerPositionKey[c]) - lastFilteredSnapshot[c]) / dt
		s.Raw.Set(cornerVelocityKey[c], vel)
	}
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(suspensionVelKeys...), reset)

	lastFilteredVel := [numCorners]float64{}
	for c := corner(0); c < numCorners; c++ {
		lastFilteredVel[c] = s.lastFiltered.Get(cornerVelocityKey[c])
	}
	for c := corner(0); c < numCorners; c++ {
		acc := (s.Filtered.Get(cornerVelocityKey[c]) - lastFilteredVel[c]) / dt
		s.Raw.Set(cornerAccelKey[c], acc)
	}
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(suspensionAccKeys...), reset)

	wheelPatch := s.Filtered.Get(schema.LocalVelocityZ)
	for c := corner(0); c < numCorners; c++ {
		s.Raw.Set(cornerWheelPatchKey[c], wheelPatch)
		s.Filtered.Set(cornerWheelPatchKey[c], wheelPatch)
	}
}

func (s *State) computeAngularVelocity(dt float64, reset bool) {
	lastLocal := s.lastTransform.Mul(s.rotInv)
	lastFwd := lastLocal.Forward()
	lastUp := lastLocal.Up()
	lastRht := lastLocal.Right()

	fwdProjX := math3d.Vec3{X: 0, Y: lastFwd.Y, Z: lastFwd.Z}.Normalize()
	fwdProjY := math3d.Vec3{X: lastFwd.X, Y: 0, Z: lastFwd.Z}.Normalize()
	rhtProjZ := math3d.Vec3{X: lastRht.X, Y: lastRht.Y, Z: 0}.Normalize()

	zHat := math3d.Vec3{Z: 1}
	yHat := math3d.Vec3{Y: 1}
	xHat := math3d.Vec3{X: 1}

	yawVel := -math.Acos(clamp(fwdProjY.Dot(zHat), -1, 1)) * sign(lastFwd.Dot(yHat))
	pitchVel := -math.Acos(clamp(fwdProjX.Dot(zHat), -1, 1)) * sign(lastUp.Dot(zHat))
	rollVel := -math.Acos(clamp(rhtProjZ.Dot(xHat), -1, 1)) * sign(lastUp.Dot(xHat))

	yawVel /= dt
	pitchVel /= dt
	rollVel /= dt

	s.Raw.Set(schema.YawVelocity, yawVel)
	s.Raw.Set(schema.PitchVelocity, pitchVel)
	s.Raw.Set(schema.RollVelocity, rollVel)
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(angularVelKeys...), reset)

	lastYawVel := s.lastFiltered.Get(schema.YawVelocity)
	lastPitchVel := s.lastFiltered.Get(schema.PitchVelocity)
	lastRollVel := s.lastFiltered.Get(schema.RollVelocity)

	s.Raw.Set(schema.YawAcceleration, (s.Filtered.Get(schema.YawVelocity)-lastYawVel)/dt)
	s.Raw.Set(schema.PitchAcceleration, (s.Filtered.Get(schema.PitchVelocity)-lastPitchVel)/dt)
	s.Raw.Set(schema.RollAcceleration, (s.Filtered.Get(schema.RollVelocity)-lastRollVel)/dt)
	s.filter.Filter(s.Raw, s.Filtered, schema.KeyMask(angularAccelKeys...), reset)
}

func (s *State) applyPauseGate(pausedFadeSeconds, dt float64) {
	if s.paused {
		s.Filtered.Copy(s.lastFiltered)
		if s.pausedTimer > 0 {
			s.pausedTimer -= dt
			if s.pausedTimer < 0 {
				s.pausedTimer = 0
			}
		}
		lerp := s.pausedTimer / pausedFadeSeconds
		s.Filtered.LerpAllFromZero(lerp)
		s.Filtered.Set(schema.Paused, 1)
		s.Raw.Set(schema.Paused, 1)
		return
	}

	if s.pausedTimer > 0 {
		s.pausedTimer -= dt
		if s.pausedTimer < 0 {
			s.pausedTimer = 0
		}
		lerp := s.pausedTimer / pausedFadeSeconds
		s.Filtered.LerpAllFromZero(1 - lerp)
	}
	s.Filtered.Set(schema.Paused, 0)
	s.Raw.Set(schema.Paused, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
