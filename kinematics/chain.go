// Package kinematics models the simulated arm chains driving the replayed camera and
// light tools, and solves their per-frame joint configurations.
package kinematics

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/colinzhenli/capture-replay/spatialmath"
)

// Segment is one rigid link of a chain. Its length is fixed for the lifetime of the
// chain; only the joint orientation at its near end varies over time.
type Segment struct {
	length      float64
	orientation quat.Number // relative to the parent joint frame
}

// Length returns the fixed rest length of the segment.
func (s *Segment) Length() float64 {
	return s.length
}

// Orientation returns the joint orientation relative to the parent joint frame.
func (s *Segment) Orientation() spatialmath.Orientation {
	return spatialmath.NewOrientationFromQuaternion(s.orientation)
}

// Chain is an ordered sequence of segments anchored at a fixed base position. Joint
// orientations are overwritten every solve; everything else is fixed at construction.
type Chain struct {
	base     r3.Vector
	segments []*Segment

	// restDirection is the unit direction every segment points in at the zero
	// configuration. It doubles as the fallback when a solve encounters a
	// zero-length direction vector.
	restDirection r3.Vector

	// bias is the lateral nudge applied to intermediate joints each forward pass,
	// disambiguating which elbow configuration the solver settles into.
	bias r3.Vector

	// tool is the orientation of the mounted tool relative to the last joint frame.
	tool quat.Number
}

// NewChain creates a chain with the given base position and segment lengths, at the
// zero configuration (all segments pointing along the rest direction).
func NewChain(base r3.Vector, lengths []float64) (*Chain, error) {
	if len(lengths) == 0 {
		return nil, errors.New("chain must have at least one segment")
	}
	segments := make([]*Segment, 0, len(lengths))
	for i, length := range lengths {
		if length <= 0 {
			return nil, errors.Errorf("segment %d has non-positive length %f", i, length)
		}
		segments = append(segments, &Segment{length: length, orientation: quat.Number{Real: 1}})
	}
	return &Chain{
		base:          base,
		segments:      segments,
		restDirection: defaultRestDirection,
		bias:          defaultBias,
		tool:          quat.Number{Real: 1},
	}, nil
}

// Base returns the fixed base position of the chain.
func (c *Chain) Base() r3.Vector {
	return c.base
}

// Segments returns the segments of the chain in base-to-tip order.
func (c *Chain) Segments() []*Segment {
	return c.segments
}

// SetBias overrides the lateral solver bias. The default is tuned for a three segment
// chain and does not necessarily generalize to other segment counts.
func (c *Chain) SetBias(bias r3.Vector) {
	c.bias = bias
}

// Clone returns a chain identical to this one, sharing no state with it.
func (c *Chain) Clone() *Chain {
	segments := make([]*Segment, 0, len(c.segments))
	for _, seg := range c.segments {
		segCopy := *seg
		segments = append(segments, &segCopy)
	}
	return &Chain{
		base:          c.base,
		segments:      segments,
		restDirection: c.restDirection,
		bias:          c.bias,
		tool:          c.tool,
	}
}

// JointPositions computes the current world positions of all N+1 joints from the
// stored orientations. Position 0 is the base and position N is the end effector.
func (c *Chain) JointPositions() []r3.Vector {
	positions := make([]r3.Vector, len(c.segments)+1)
	positions[0] = c.base
	world := quat.Number{Real: 1}
	for i, seg := range c.segments {
		world = quat.Mul(world, seg.orientation)
		positions[i+1] = positions[i].Add(spatialmath.QuatRotate(world, c.restDirection.Mul(seg.length)))
	}
	return positions
}

// JointTransforms returns the world pose of every joint in base-to-tip order, the
// transforms a renderer reads to place the arm meshes. The last entry is the end
// effector pose including the tool orientation.
func (c *Chain) JointTransforms() []spatialmath.Pose {
	positions := c.JointPositions()
	transforms := make([]spatialmath.Pose, 0, len(positions))
	world := quat.Number{Real: 1}
	for i, seg := range c.segments {
		world = quat.Mul(world, seg.orientation)
		transforms = append(transforms, spatialmath.NewPose(positions[i], spatialmath.NewOrientationFromQuaternion(world)))
	}
	world = quat.Mul(world, c.tool)
	transforms = append(transforms, spatialmath.NewPose(positions[len(positions)-1], spatialmath.NewOrientationFromQuaternion(world)))
	return transforms
}

// EndEffectorPose returns the world pose of the chain's terminal frame, with the tool
// orientation composed onto the last joint.
func (c *Chain) EndEffectorPose() spatialmath.Pose {
	transforms := c.JointTransforms()
	return transforms[len(transforms)-1]
}

// ToolOrientation returns the orientation of the mounted tool relative to the last
// joint frame.
func (c *Chain) ToolOrientation() spatialmath.Orientation {
	return spatialmath.NewOrientationFromQuaternion(c.tool)
}

// lastWorldOrientation returns the world orientation of the final joint frame, the
// parent frame of the mounted tool.
func (c *Chain) lastWorldOrientation() quat.Number {
	world := quat.Number{Real: 1}
	for _, seg := range c.segments {
		world = quat.Mul(world, seg.orientation)
	}
	return world
}
