package math3d

import (
	"math"
	"testing"
)

func closeEnough(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func yawMat4(yaw float64) Mat4 {
	c, s := math.Cos(yaw), math.Sin(yaw)
	right := Vec3{X: c, Y: 0, Z: -s}
	up := Vec3{X: 0, Y: 1, Z: 0}
	forward := Vec3{X: s, Y: 0, Z: c}

	var m Mat4
	m[0][0], m[0][1], m[0][2] = right.X, right.Y, right.Z
	m[1][0], m[1][1], m[1][2] = up.X, up.Y, up.Z
	m[2][0], m[2][1], m[2][2] = forward.X, forward.Y, forward.Z
	m[3][3] = 1
	return m
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := yawMat4(0.7)
	m[3][0], m[3][1], m[3][2] = 3, -1, 5

	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("expected an invertible matrix")
	}
	product := m.Mul(inv)
	ident := Identity()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if !closeEnough(product[i][j], ident[i][j], 1e-9) {
				t.Fatalf("m * inverse(m) != identity at [%d][%d]: got %v", i, j, product[i][j])
			}
		}
	}
}

func TestMat4InverseSingularFails(t *testing.T) {
	var m Mat4 // all zero, not invertible
	if _, ok := m.Inverse(); ok {
		t.Fatal("expected the zero matrix to be reported as non-invertible")
	}
}

func TestQuatFromMat4RoundTripsYaw(t *testing.T) {
	const yaw = 0.9
	m := yawMat4(yaw)

	q := QuatFromMat4(m)
	pyr := q.ToEuler()

	if !closeEnough(pyr.Y, yaw, 1e-6) {
		t.Fatalf("expected recovered yaw %v, got %v", yaw, pyr.Y)
	}
	if !closeEnough(pyr.X, 0, 1e-6) || !closeEnough(pyr.Z, 0, 1e-6) {
		t.Fatalf("expected zero pitch/roll for a pure yaw rotation, got pitch=%v roll=%v", pyr.X, pyr.Z)
	}
}

func TestQuatFromMat4IdentityIsIdentityQuat(t *testing.T) {
	q := QuatFromMat4(Identity())
	if !closeEnough(q.W, 1, 1e-9) || !closeEnough(q.X, 0, 1e-9) ||
		!closeEnough(q.Y, 0, 1e-9) || !closeEnough(q.Z, 0, 1e-9) {
		t.Fatalf("expected identity quaternion, got %+v", q)
	}
}

func TestLoopAngleRadWrapsIntoRange(t *testing.T) {
	cases := []struct {
		x, k, want float64
	}{
		{0, math.Pi / 2, 0},
		{math.Pi, math.Pi / 2, 0},
		{math.Pi/2 + 0.01, math.Pi / 2, -math.Pi/2 + 0.01},
		{-math.Pi/2 - 0.01, math.Pi / 2, math.Pi/2 - 0.01},
	}
	for _, c := range cases {
		got := LoopAngleRad(c.x, c.k)
		if !closeEnough(got, c.want, 1e-9) {
			t.Fatalf("LoopAngleRad(%v, %v) = %v, want %v", c.x, c.k, got, c.want)
		}
		if got < -c.k-1e-9 || got > c.k+1e-9 {
			t.Fatalf("LoopAngleRad(%v, %v) = %v outside [-%v, %v]", c.x, c.k, got, c.k, c.k)
		}
	}
}

func TestLoopAngleRadZeroSpanIsNoOp(t *testing.T) {
	if got := LoopAngleRad(5, 0); got != 5 {
		t.Fatalf("expected zero span to pass x through unchanged, got %v", got)
	}
}

func TestSafeNormalize2HandlesNaNAndInf(t *testing.T) {
	cases := []Vec2{
		{X: math.NaN(), Y: 1},
		{X: 1, Y: math.Inf(1)},
		{X: math.Inf(-1), Y: math.Inf(-1)},
		{X: 0, Y: 0},
	}
	for _, v := range cases {
		got := SafeNormalize2(v)
		if got != (Vec2{}) {
			t.Fatalf("SafeNormalize2(%+v) = %+v, want zero vector", v, got)
		}
	}
}

func TestSafeNormalize2NormalizesFiniteVector(t *testing.T) {
	got := SafeNormalize2(Vec2{X: 3, Y: 4})
	if !closeEnough(got.Length(), 1, 1e-9) {
		t.Fatalf("expected unit length, got %v", got.Length())
	}
}
