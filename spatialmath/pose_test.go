package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestComposeTranslationOnly(t *testing.T) {
	a := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	b := NewPoseFromPoint(r3.Vector{X: 10})
	composed := Compose(a, b)
	test.That(t, R3VectorAlmostEqual(composed.Point(), r3.Vector{X: 11, Y: 2, Z: 3}, 1e-9), test.ShouldBeTrue)
}

func TestComposeRotatesChildTranslation(t *testing.T) {
	// A 90 degree turn about Z carries the child's +X offset onto +Y.
	a := NewPose(r3.Vector{}, &R4AA{Theta: math.Pi / 2, RX: 0, RY: 0, RZ: 1})
	b := NewPoseFromPoint(r3.Vector{X: 1})
	composed := Compose(a, b)
	test.That(t, R3VectorAlmostEqual(composed.Point(), r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)
}

func TestComposeMatchesMatrixProduct(t *testing.T) {
	a := NewPose(r3.Vector{X: 5, Y: -2, Z: 1}, &R4AA{Theta: 0.4, RX: 1, RY: 0.5, RZ: 0})
	b := NewPose(r3.Vector{X: -1, Y: 3, Z: 2}, &R4AA{Theta: 1.2, RX: 0, RY: 1, RZ: -1})
	composed := Compose(a, b)

	// The same product computed with rotation matrices.
	ra := a.Orientation().RotationMatrix()
	expectedPoint := a.Point().Add(ra.MulVec(b.Point()))
	test.That(t, R3VectorAlmostEqual(composed.Point(), expectedPoint, 1e-9), test.ShouldBeTrue)

	for _, v := range []r3.Vector{{X: 1}, {Y: 1}, {Z: 1}} {
		viaCompose := composed.Orientation().RotationMatrix().MulVec(v)
		viaMatrices := ra.MulVec(b.Orientation().RotationMatrix().MulVec(v))
		test.That(t, R3VectorAlmostEqual(viaCompose, viaMatrices, 1e-9), test.ShouldBeTrue)
	}
}

func TestPoseInverse(t *testing.T) {
	p := NewPose(r3.Vector{X: 3, Y: -4, Z: 5}, &R4AA{Theta: 0.8, RX: 1, RY: 1, RZ: 0})
	roundTrip := Compose(p, PoseInverse(p))
	test.That(t, PoseAlmostCoincident(roundTrip, NewZeroPose()), test.ShouldBeTrue)
}
