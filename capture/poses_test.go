package capture

import (
	"testing"

	"go.viam.com/test"
)

func identityRotation() [][]float64 {
	return [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func almostEqualSlice(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	test.That(t, got, test.ShouldHaveLength, len(want))
	for i := range want {
		test.That(t, got[i], test.ShouldAlmostEqual, want[i], tol)
	}
}

func TestComputePosesCamera(t *testing.T) {
	records := []Record{{
		ID: 0,
		Camera: ToolRecord{
			RotationMatrix: identityRotation(),
			Position:       []float64{0, 0, 0},
			ServoAngles:    []float64{1, 2, 3, 4, 5, 6, 7},
		},
	}}

	poses, err := ComputePoses(records)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, poses, test.ShouldHaveLength, 1)
	test.That(t, poses[0].FrameID, test.ShouldEqual, 0)

	// With an identity gripper at the origin, the camera sits at the
	// camera-to-gripper offset (in millimeters) with the mount rotation.
	camera := poses[0].Camera
	almostEqualSlice(t, camera.Position, []float64{32.6272696, -16.1560433, 28.0920856}, 1e-6)
	almostEqualSlice(t, camera.Rotation[0], []float64{-7.17667595e-04, 9.99776474e-01, 2.11302413e-02}, 1e-6)
	almostEqualSlice(t, camera.Rotation[1], []float64{-4.42126179e-03, 2.11268680e-02, -9.99767027e-01}, 1e-6)
	almostEqualSlice(t, camera.Rotation[2], []float64{-9.99989969e-01, -8.10922726e-04, 4.40511146e-03}, 1e-6)

	// Camera gripper positions are already in the world frame and pass through,
	// and servo angles are truncated to six.
	almostEqualSlice(t, camera.GripperPosition, []float64{0, 0, 0}, 1e-9)
	test.That(t, camera.ServoAngles, test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6})
}

func TestComputePosesLight(t *testing.T) {
	records := []Record{{
		ID:     3,
		Camera: ToolRecord{RotationMatrix: identityRotation(), Position: []float64{0, 0, 0}},
		Light:  &ToolRecord{RotationMatrix: identityRotation(), Position: []float64{0, 0, 0}},
	}}

	poses, err := ComputePoses(records)
	test.That(t, err, test.ShouldBeNil)

	// The light gripper is logged in base2; its world pose composes the
	// light-to-gripper offset with the base2-to-base1 calibration.
	light := poses[0].Light
	almostEqualSlice(t, light.Position, []float64{7.193065090994721, -94.15930055155198, 22.89933812192}, 1e-6)
	almostEqualSlice(t, light.GripperPosition, []float64{7.22042468, 8.26339062, 3.93500345}, 1e-6)
	test.That(t, light.ServoAngles, test.ShouldResemble, []float64{0, 0, 0, 0, 0, 0})
}

func TestComputePosesDefaultLight(t *testing.T) {
	records := []Record{{
		ID:     1,
		Camera: ToolRecord{RotationMatrix: identityRotation(), Position: []float64{10, 20, 30}},
	}}

	poses, err := ComputePoses(records)
	test.That(t, err, test.ShouldBeNil)

	// Frames captured without the light arm get the fixed fallback pose.
	light := poses[0].Light
	test.That(t, light.Position, test.ShouldResemble, []float64{0, 300, 400})
	test.That(t, light.Rotation, test.ShouldResemble, identityRotation())
	test.That(t, light.GripperPosition, test.ShouldResemble, []float64{0, 300, 400})
	test.That(t, light.ServoAngles, test.ShouldResemble, []float64{0, 0, 0, 0, 0, 0})
}

func TestComputePosesPositionScaling(t *testing.T) {
	// A gripper a meter up the Z axis moves the camera by the same offset; the
	// millimeter round trip through meters must not change the scale.
	atOrigin := []Record{{
		ID:     0,
		Camera: ToolRecord{RotationMatrix: identityRotation(), Position: []float64{0, 0, 0}},
	}}
	raised := []Record{{
		ID:     0,
		Camera: ToolRecord{RotationMatrix: identityRotation(), Position: []float64{0, 0, 1000}},
	}}

	posesOrigin, err := ComputePoses(atOrigin)
	test.That(t, err, test.ShouldBeNil)
	posesRaised, err := ComputePoses(raised)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, posesRaised[0].Camera.Position[2]-posesOrigin[0].Camera.Position[2],
		test.ShouldAlmostEqual, 1000, 1e-6)
}
