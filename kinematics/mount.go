package kinematics

import (
	"math"

	"github.com/colinzhenli/capture-replay/spatialmath"
)

// Tool mount adjustments. Each tool model's forward axis convention differs from the
// kinematic wrist convention, so a fixed rotation offset is composed onto the target
// orientation before it is stored on the chain.
var (
	// CameraMount corrects the camera model, whose lens looks along its local -Z,
	// onto the wrist frame's +Z forward axis.
	CameraMount spatialmath.Orientation = &spatialmath.R4AA{Theta: math.Pi, RX: 0, RY: 1, RZ: 0}

	// LightMount corrects the light model, whose emitter hangs along its local -Y.
	LightMount spatialmath.Orientation = &spatialmath.R4AA{Theta: math.Pi / 2, RX: 1, RY: 0, RZ: 0}
)
