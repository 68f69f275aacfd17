package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform: a 3D position together with an orientation,
// equivalent to the usual 4x4 homogeneous transform matrix.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basicPose struct {
	point       r3.Vector
	orientation quaternion
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return &basicPose{orientation: quaternion{Real: 1}}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a pose with no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basicPose{point: point, orientation: quaternion{Real: 1}}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basicPose{point: p, orientation: quaternion(o.Quaternion())}
}

func (p *basicPose) Point() r3.Vector {
	return p.point
}

func (p *basicPose) Orientation() Orientation {
	o := p.orientation
	return &o
}

// Compose treats Poses as functions A(x) and B(x), and produces a new function C(x) = A(B(x)),
// the same as chaining their homogeneous transform matrices A x B.
func Compose(a, b Pose) Pose {
	aq := a.Orientation().Quaternion()
	return &basicPose{
		point:       a.Point().Add(QuatRotate(aq, b.Point())),
		orientation: quaternion(Normalize(quat.Mul(aq, b.Orientation().Quaternion()))),
	}
}

// PoseInverse returns the pose representing the inverse transform, such that
// Compose(p, PoseInverse(p)) is the zero pose.
func PoseInverse(p Pose) Pose {
	invQ := quat.Conj(p.Orientation().Quaternion())
	return &basicPose{
		point:       QuatRotate(invQ, p.Point().Mul(-1)),
		orientation: quaternion(invQ),
	}
}

// PoseAlmostCoincident checks if two poses approximately are at the same 3D coordinate location
// and have approximately the same orientation.
func PoseAlmostCoincident(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), 1e-3) &&
		OrientationAlmostEqual(a.Orientation(), b.Orientation())
}
