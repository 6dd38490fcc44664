// Package filter implements the cascaded low-pass smoother (C2) applied to
// every telemetry channel before publication.
//
// Each channel is smoothed by a chain of first-order exponential smoothers
// (a "nested smooth"): y[n] = y[n-1] + alpha*(x[n]-y[n-1]), run in series
// for StageCount stages so the combined response has no overshoot for any
// alpha in (0, 1]. This generalizes the single-alpha exponential update
// (`effectiveAlpha`) used for the background model's per-cell EMA in the
// pack's lidar background tracker to a per-channel-group stage count.
package filter

import (
	"github.com/relabs-tech/inertial_computer/internal/telemetry/record"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

// Group configures the smoother applied to one set of channels.
type Group struct {
	Keys       []schema.DataKey
	StageCount int     // number of cascaded exponential stages, >= 1
	Alpha      float64 // smoothing factor in (0, 1]; 1 disables smoothing
}

// DefaultGroups returns a reasonable per-category smoothing configuration,
// grounded on the corpus's convention of one alpha per logical region
// rather than one global alpha.
func DefaultGroups() []Group {
	return []Group{
		{Keys: []schema.DataKey{schema.PositionX, schema.PositionY, schema.PositionZ}, StageCount: 2, Alpha: 0.35},
		{Keys: []schema.DataKey{schema.LocalVelocityX, schema.LocalVelocityY, schema.LocalVelocityZ}, StageCount: 3, Alpha: 0.25},
		{Keys: []schema.DataKey{schema.GForceLateral, schema.GForceVertical, schema.GForceLongitudinal}, StageCount: 3, Alpha: 0.20},
		{Keys: []schema.DataKey{schema.YawVelocity, schema.PitchVelocity, schema.RollVelocity}, StageCount: 3, Alpha: 0.25},
		{Keys: []schema.DataKey{schema.YawAcceleration, schema.PitchAcceleration, schema.RollAcceleration}, StageCount: 3, Alpha: 0.20},
		{Keys: []schema.DataKey{
			schema.SuspensionPositionBL, schema.SuspensionPositionBR, schema.SuspensionPositionFL, schema.SuspensionPositionFR,
		}, StageCount: 2, Alpha: 0.30},
		{Keys: []schema.DataKey{
			schema.SuspensionVelocityBL, schema.SuspensionVelocityBR, schema.SuspensionVelocityFL, schema.SuspensionVelocityFR,
		}, StageCount: 2, Alpha: 0.30},
		{Keys: []schema.DataKey{
			schema.SuspensionAccelerationBL, schema.SuspensionAccelerationBR, schema.SuspensionAccelerationFL, schema.SuspensionAccelerationFR,
		}, StageCount: 2, Alpha: 0.30},
		{Keys: schema.AllKeys(), StageCount: 1, Alpha: 0.5}, // residual catch-all, see NewDefault
	}
}

type channelHistory struct {
	stages []float64 // per-stage smoothed value, index 0 feeds index 1, etc.
	seeded bool
}

// Filter holds per-channel smoothing history. It is not safe for concurrent
// use: the derivation pipeline is its sole owner.
type Filter struct {
	groupOf [schema.NumKeys]*Group
	hist    [schema.NumKeys]channelHistory
}

// New builds a Filter from an explicit set of groups. A channel covered by
// more than one group takes the first group that lists it.
func New(groups []Group) *Filter {
	f := &Filter{}
	for i := range groups {
		g := &groups[i]
		for _, k := range g.Keys {
			if f.groupOf[k] == nil {
				f.groupOf[k] = g
			}
		}
	}
	return f
}

// NewDefault builds a Filter using DefaultGroups, where the last group acts
// as a residual catch-all for any channel not claimed by an earlier one.
func NewDefault() *Filter { return New(DefaultGroups()) }

// Filter smooths every channel selected by mask from raw into out. Channels
// outside mask are left untouched in out, satisfying the C2 contract in
// spec.md §4.2. When reset is true, the per-channel history for the
// selected channels is cleared first, so the first output sample after a
// reset equals the raw input (a fresh EMA seed), which makes filter
// reset-stable: a second immediate call with reset=false will not move an
// already-settled output beyond one step's attack.
func (f *Filter) Filter(raw, out *record.Record, mask uint64, reset bool) {
	for _, field := range schema.Fields() {
		k := field.Key
		if mask&k.Mask() == 0 {
			continue
		}
		g := f.groupOf[k]
		if g == nil {
			out.Set(k, raw.Get(k))
			continue
		}
		h := &f.hist[k]
		if reset {
			h.seeded = false
		}
		v := raw.Get(k)
		if !h.seeded || len(h.stages) != g.StageCount {
			h.stages = make([]float64, g.StageCount)
			for i := range h.stages {
				h.stages[i] = v
			}
			h.seeded = true
		} else {
			x := v
			for i := 0; i < g.StageCount; i++ {
				h.stages[i] += g.Alpha * (x - h.stages[i])
				x = h.stages[i]
			}
		}
		out.Set(k, h.stages[g.StageCount-1])
	}
}

// Reset clears smoothing history for every channel, as if the next Filter
// call for each channel used reset=true.
func (f *Filter) Reset() {
	for i := range f.hist {
		f.hist[i] = channelHistory{}
	}
}
