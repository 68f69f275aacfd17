package kinematics

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/colinzhenli/capture-replay/spatialmath"
)

// solveIterations is the fixed iteration count of every solve. FABRIK converges
// quickly for short chains, and a fixed count keeps solves deterministic and bounded.
const solveIterations = 10

// polishIterations is how many of the final iterations run without the lateral bias,
// letting the end effector settle onto the target once the elbow side is decided.
const polishIterations = 3

// zeroLengthEpsilon is the squared norm below which a direction vector is treated as
// degenerate and replaced with the chain's rest direction.
const zeroLengthEpsilon = 1e-12

var (
	defaultRestDirection = r3.Vector{Z: 1}

	// defaultBias nudges elbow joints toward +X each forward pass. The magnitude is
	// empirical: large enough to keep the elbow from flipping sides between frames,
	// small enough not to fight convergence. Tuned for a three segment chain.
	defaultBias = r3.Vector{X: 1}
)

// Solve runs FABRIK to converge the chain's joints so that the end effector reaches
// the target position, then stores the resulting joint orientations back into the
// chain. The solve is seeded from the chain's current configuration, so consecutive
// solves against nearby targets move smoothly instead of jumping between equivalent
// arm configurations. Unreachable targets leave the chain fully extended toward the
// target, which is the desired visual behavior rather than an error.
func (c *Chain) Solve(target r3.Vector) {
	positions := c.JointPositions()
	bias := c.effectiveBias(target)
	for iteration := 0; iteration < solveIterations; iteration++ {
		if iteration == solveIterations-polishIterations {
			bias = r3.Vector{}
		}
		c.backwardReach(positions, target)
		c.forwardReach(positions, bias)
	}
	c.setOrientationsFromPositions(positions)
}

// effectiveBias scales the configured bias by the chain's slack toward the target.
// A taut chain has no elbow ambiguity to break, and biasing it would only pull the
// end effector off target, so the bias fades out as the target approaches full reach.
func (c *Chain) effectiveBias(target r3.Vector) r3.Vector {
	total := 0.
	for _, seg := range c.segments {
		total += seg.length
	}
	slack := (total - target.Sub(c.base).Norm()) / total
	if slack <= 0 {
		return r3.Vector{}
	}
	if slack > 1 {
		slack = 1
	}
	return c.bias.Mul(slack)
}

// backwardReach re-roots the chain at the target and works tip to base, sliding each
// joint onto the sphere of its segment's rest length around its child.
func (c *Chain) backwardReach(positions []r3.Vector, target r3.Vector) {
	n := len(c.segments)
	positions[n] = target
	for i := n - 1; i >= 0; i-- {
		positions[i] = constrainLength(positions[i+1], positions[i], c.segments[i].length, c.restDirection.Mul(-1))
	}
}

// forwardReach re-anchors the chain at the base and works base to tip, nudging
// intermediate joints along the bias direction before restoring each segment's rest
// length. The nudge breaks the left/right ambiguity of the elbow; the end effector
// joint is never nudged so that convergence onto the target is not disturbed.
func (c *Chain) forwardReach(positions []r3.Vector, bias r3.Vector) {
	n := len(c.segments)
	positions[0] = c.base
	for i := 0; i < n; i++ {
		toward := positions[i+1]
		if i+1 < n {
			toward = toward.Add(bias)
		}
		positions[i+1] = constrainLength(positions[i], toward, c.segments[i].length, c.restDirection)
	}
}

// constrainLength returns the point at the given distance from `from` along the
// direction toward `to`, substituting fallback when the two points coincide.
func constrainLength(from, to r3.Vector, length float64, fallback r3.Vector) r3.Vector {
	direction := to.Sub(from)
	if direction.Norm2() < zeroLengthEpsilon {
		direction = fallback
	}
	return from.Add(direction.Normalize().Mul(length))
}

// setOrientationsFromPositions derives each joint's orientation from the solved joint
// positions and stores them back into the chain. Joints are processed base to tip so
// each parent frame is final before its child is expressed against it; the stored
// configuration seeds the next solve.
func (c *Chain) setOrientationsFromPositions(positions []r3.Vector) {
	parent := quat.Number{Real: 1}
	for i, seg := range c.segments {
		direction := positions[i+1].Sub(positions[i])
		if direction.Norm2() < zeroLengthEpsilon {
			direction = spatialmath.QuatRotate(parent, c.restDirection)
		}
		world := spatialmath.QuatBetweenVectors(c.restDirection, direction)
		seg.orientation = spatialmath.Normalize(quat.Mul(quat.Conj(parent), world))
		parent = world
	}
}

// ApplyToolOrientation imposes a world-frame target rotation on the mounted tool,
// corrected by the tool's fixed mount adjustment and expressed relative to the solved
// last joint frame so it composes correctly with the joint chain. It does not move
// any joints; call it after Solve.
func (c *Chain) ApplyToolOrientation(target, mount spatialmath.Orientation) {
	world := quat.Mul(target.Quaternion(), mount.Quaternion())
	parent := c.lastWorldOrientation()
	c.tool = spatialmath.Normalize(quat.Mul(quat.Conj(parent), world))
}
