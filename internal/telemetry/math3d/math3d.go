// Package math3d provides the small amount of 3D/4D linear algebra the
// derivation pipeline needs: vectors, a row-major 4x4 transform, rotation
// inversion, and quaternion-to-Euler conversion. It intentionally stays
// free of any external dependency; nothing in the retrieved pack uses a
// linear-algebra library for this kind of small, fixed-size math (gonum in
// the pack is used for plotting/statistics, not rigid-body transforms), so
// this is the grounded choice, documented in DESIGN.md.
package math3d

import "math"

// Vec3 is a 3D vector.
type Vec3 struct{ X, Y, Z float64 }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length, or the zero vector if v is
// itself (numerically) zero.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Vec2 is a 2D vector, used for the planar (lateral/longitudinal) g-force
// projections in the suspension stage.
type Vec2 struct{ X, Y float64 }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Length() float64    { return math.Sqrt(v.X*v.X + v.Y*v.Y) }

func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l < 1e-12 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Mat4 is a row-major 4x4 transform: rows 0-2 are the rotation basis
// (right, up, forward), row 3 is unused beyond translation bookkeeping.
// M[row][col].
type Mat4 [4][4]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// Right, Up, Forward read the rotation basis rows (spec.md §4.4 stage 1).
func (m Mat4) Right() Vec3   { return Vec3{m[0][0], m[0][1], m[0][2]} }
func (m Mat4) Up() Vec3      { return Vec3{m[1][0], m[1][1], m[1][2]} }
func (m Mat4) Forward() Vec3 { return Vec3{m[2][0], m[2][1], m[2][2]} }

// Translation reads the position row.
func (m Mat4) Translation() Vec3 { return Vec3{m[3][0], m[3][1], m[3][2]} }

// WithZeroTranslation returns a copy of m with its translation row zeroed,
// i.e. the rotation-only matrix used before inversion (spec.md §4.4 stage 5).
func (m Mat4) WithZeroTranslation() Mat4 {
	out := m
	out[3][0], out[3][1], out[3][2] = 0, 0, 0
	return out
}

// Mul multiplies two row-major 4x4 matrices, m*o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * o[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// TransformVector applies the rotation (ignoring translation) to v.
func (m Mat4) TransformVector(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[1][0]*v.Y + m[2][0]*v.Z,
		Y: m[0][1]*v.X + m[1][1]*v.Y + m[2][1]*v.Z,
		Z: m[0][2]*v.X + m[1][2]*v.Y + m[2][2]*v.Z,
	}
}

// Inverse computes the full 4x4 inverse via Gauss-Jordan elimination. The
// derivation pipeline only ever inverts a rotation-only (orthonormal)
// matrix, whose inverse is its transpose, but the general solver keeps this
// package honest about what "Inverse" means and degrades gracefully instead
// of silently assuming orthonormality.
func (m Mat4) Inverse() (Mat4, bool) {
	var a [4][8]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			a[i][j] = m[i][j]
		}
		a[i][4+i] = 1
	}
	for col := 0; col < 4; col++ {
		pivot := col
		best := math.Abs(a[col][col])
		for r := col + 1; r < 4; r++ {
			if v := math.Abs(a[r][col]); v > best {
				best, pivot = v, r
			}
		}
		if best < 1e-12 {
			return Mat4{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		pv := a[col][col]
		for j := 0; j < 8; j++ {
			a[col][j] /= pv
		}
		for r := 0; r < 4; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 8; j++ {
				a[r][j] -= factor * a[col][j]
			}
		}
	}
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = a[i][4+j]
		}
	}
	return out, true
}

// Quat is a unit quaternion (w, x, y, z).
type Quat struct{ W, X, Y, Z float64 }

// QuatFromMat4 converts the rotation part of m to a unit quaternion, using
// the standard trace-based branch selection for numerical stability. The
// off-diagonal differences follow this package's row-basis convention
// (rows 0-2 are right, up, forward).
func QuatFromMat4(m Mat4) Quat {
	m00, m01, m02 := m[0][0], m[0][1], m[0][2]
	m10, m11, m12 := m[1][0], m[1][1], m[1][2]
	m20, m21, m22 := m[2][0], m[2][1], m[2][2]

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		q.W = 0.25 / s
		q.X = (m12 - m21) * s
		q.Y = (m20 - m02) * s
		q.Z = (m01 - m10) * s
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		q.W = (m12 - m21) / s
		q.X = 0.25 * s
		q.Y = (m01 + m10) / s
		q.Z = (m02 + m20) / s
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		q.W = (m20 - m02) / s
		q.X = (m01 + m10) / s
		q.Y = 0.25 * s
		q.Z = (m12 + m21) / s
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		q.W = (m01 - m10) / s
		q.X = (m02 + m20) / s
		q.Y = (m12 + m21) / s
		q.Z = 0.25 * s
	}
	return q
}

// PitchYawRoll holds Euler angles in radians, extracted in the order the
// consumer expects (spec.md §4.4 stage 8, before the roll remap).
type PitchYawRoll struct{ X, Y, Z float64 } // X=pitch, Y=yaw, Z=roll

// ToEuler converts a unit quaternion to pitch/yaw/roll using the standard
// Z-Y-X Tait-Bryan extraction, reading the X angle as pitch, the Y angle as
// yaw (the asin term, saturating at ±π/2) and the Z angle as roll.
func (q Quat) ToEuler() PitchYawRoll {
	sinp := 2 * (q.W*q.X + q.Y*q.Z)
	cosp := 1 - 2*(q.X*q.X+q.Y*q.Y)
	pitch := math.Atan2(sinp, cosp)

	siny := 2 * (q.W*q.Y - q.Z*q.X)
	var yaw float64
	if siny >= 1 {
		yaw = math.Pi / 2
	} else if siny <= -1 {
		yaw = -math.Pi / 2
	} else {
		yaw = math.Asin(siny)
	}

	sinr := 2 * (q.W*q.Z + q.X*q.Y)
	cosr := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	roll := math.Atan2(sinr, cosr)

	return PitchYawRoll{X: pitch, Y: yaw, Z: roll}
}

// LoopAngleRad wraps x into [-k, k], the remap spec.md §4.4 stage 8 applies
// to roll: roll = LoopAngleRad(-pyr.z, pi/2).
func LoopAngleRad(x, k float64) float64 {
	span := 2 * k
	if span <= 0 {
		return x
	}
	y := math.Mod(x+k, span)
	if y < 0 {
		y += span
	}
	return y - k
}

// SafeNormalize2 returns the NaN/Inf-safe unit vector for v, substituting
// the zero vector when v has zero length, NaN, or Inf components (spec.md
// §7 item 4).
func SafeNormalize2(v Vec2) Vec2 {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
		return Vec2{}
	}
	return v.Normalize()
}
