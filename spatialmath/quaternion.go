package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// quaternion is an orientation in quaternion representation.
type quaternion quat.Number

// Quaternion returns orientation in quaternion representation.
func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// AxisAngles returns the orientation in axis angle representation.
func (q *quaternion) AxisAngles() *R4AA {
	return QuatToR4AA(q.Quaternion())
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *quaternion) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(q.Quaternion())
}

// QuatToR4AA converts a quat to an R4 axis angle in the same way the C++ Eigen library does.
// https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html
func QuatToR4AA(q quat.Number) *R4AA {
	denom := Norm(q)

	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}

	if denom < 1e-6 {
		return &R4AA{angle, 1, 0, 0}
	}
	return &R4AA{angle, q.Imag / denom, q.Jmag / denom, q.Kmag / denom}
}

// QuatToRotationMatrix converts a quat to a rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	mat := [9]float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*z*w, 2*x*z + 2*y*w,
		2*x*y + 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z - 2*x*w,
		2*x*z - 2*y*w, 2*y*z + 2*x*w, 1 - 2*x*x - 2*y*y,
	}
	return &RotationMatrix{mat}
}

// QuatRotate rotates a vector by a unit quaternion, treating the vector as a pure quaternion.
func QuatRotate(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// QuatBetweenVectors returns the minimal rotation carrying the direction of `from` onto the
// direction of `to`. Degenerate inputs (either vector near zero) yield the identity, and
// antiparallel vectors rotate pi about an arbitrary axis perpendicular to `from`.
func QuatBetweenVectors(from, to r3.Vector) quat.Number {
	fromNorm, toNorm := from.Norm(), to.Norm()
	if fromNorm < floatEpsilon || toNorm < floatEpsilon {
		return quat.Number{Real: 1}
	}
	from = from.Mul(1 / fromNorm)
	to = to.Mul(1 / toNorm)

	dot := from.Dot(to)
	switch {
	case dot > 1-floatEpsilon:
		return quat.Number{Real: 1}
	case dot < -1+floatEpsilon:
		// Antiparallel; any axis perpendicular to `from` will do.
		axis := from.Cross(r3.Vector{X: 1})
		if axis.Norm() < floatEpsilon {
			axis = from.Cross(r3.Vector{Y: 1})
		}
		aa := R4AA{math.Pi, axis.X, axis.Y, axis.Z}
		return aa.ToQuat()
	default:
		axis := from.Cross(to)
		q := quat.Number{Real: 1 + dot, Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
		return Normalize(q)
	}
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Normalize a quaternion, returning its, versor (unit quaternion).
func Normalize(q quat.Number) quat.Number {
	length := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if math.Abs(length-1.0) < 1e-10 {
		return q
	}
	if length == 0 {
		return quat.Number{Real: 1}
	}
	if length == math.Inf(1) {
		length = float64(math.MaxFloat64)
	}
	return quat.Scale(1/length, q)
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion.
// Since q and -q represent the same rotation, both cases are checked.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	return quatAlmostEqual(a, b, tol) || quatAlmostEqual(a, quat.Scale(-1, b), tol)
}

func quatAlmostEqual(a, b quat.Number, tol float64) bool {
	return math.Abs(a.Real-b.Real) < tol &&
		math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol &&
		math.Abs(a.Kmag-b.Kmag) < tol
}
