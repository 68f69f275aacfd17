package capture

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/colinzhenli/capture-replay/spatialmath"
)

// Calibration constants relating each tool to the gripper it is mounted on, and the
// light arm's base to the camera arm's base (the world frame). Translations are in
// meters; logged positions are in millimeters and are converted around composition.
var (
	cameraToGripperRotation = []float64{
		-7.17667595e-04, 9.99776474e-01, 2.11302413e-02,
		-4.42126179e-03, 2.11268680e-02, -9.99767027e-01,
		-9.99989969e-01, -8.10922726e-04, 4.40511146e-03,
	}
	cameraToGripperTranslation = r3.Vector{X: 3.26272696e-02, Y: -1.61560433e-02, Z: 2.80920856e-02}

	lightToGripperRotation = []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	lightToGripperTranslation = r3.Vector{X: 0, Y: -0.102, Z: 0.02112}

	base2ToBase1Rotation = []float64{
		9.99999959e-01, 2.33227594e-04, -1.69051819e-04,
		-2.36740680e-04, 9.99777598e-01, -2.10878871e-02,
		1.64095944e-04, 2.10879262e-02, 9.99777611e-01,
	}
	base2ToBase1Translation = r3.Vector{X: 7.22042468e-03, Y: 8.26339062e-03, Z: 3.93500345e-03}
)

// Default light pose served when a frame has no light record.
var (
	defaultLightPosition = []float64{0, 300, 400}
	defaultLightRotation = [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
)

// servoAngleCount is the number of servo angles exposed per tool; captures log a
// seventh gripper value which the visualization does not use.
const servoAngleCount = 6

// ToolPose is the computed world pose of one tool for one frame, the per-frame input
// the replay solver consumes. Positions are in millimeters, world (base1) frame.
type ToolPose struct {
	Position        []float64   `json:"position"`
	Rotation        [][]float64 `json:"rotation"`
	GripperPosition []float64   `json:"gripper_position"`
	ServoAngles     []float64   `json:"servo_angles"`
}

// FramePose holds the computed camera and light poses for one frame.
type FramePose struct {
	FrameID int      `json:"frame_id"`
	Camera  ToolPose `json:"camera"`
	Light   ToolPose `json:"light"`
}

// ComputePoses derives world poses for both tools for every frame of a capture log.
// The camera gripper is logged in the world (base1) frame directly; the light gripper
// is logged in its own arm's base frame (base2) and is reframed into base1.
func ComputePoses(records []Record) ([]FramePose, error) {
	cameraToGripper, err := mountPose(cameraToGripperRotation, cameraToGripperTranslation)
	if err != nil {
		return nil, err
	}
	lightToGripper, err := mountPose(lightToGripperRotation, lightToGripperTranslation)
	if err != nil {
		return nil, err
	}
	base2ToBase1, err := mountPose(base2ToBase1Rotation, base2ToBase1Translation)
	if err != nil {
		return nil, err
	}

	poses := make([]FramePose, 0, len(records))
	for _, record := range records {
		framePose := FramePose{FrameID: record.ID}

		cameraGripper, err := gripperPose(&record.Camera)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d camera", record.ID)
		}
		cameraWorld := spatialmath.Compose(cameraGripper, cameraToGripper)
		framePose.Camera = ToolPose{
			Position: pointMM(cameraWorld.Point()),
			Rotation: cameraWorld.Orientation().RotationMatrix().Rows(),
			// Camera gripper positions are logged in base1 already.
			GripperPosition: append([]float64{}, record.Camera.Position...),
			ServoAngles:     servoAngles(record.Camera.ServoAngles),
		}

		if record.Light != nil {
			lightGripper, err := gripperPose(record.Light)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d light", record.ID)
			}
			lightInBase2 := spatialmath.Compose(lightGripper, lightToGripper)
			lightWorld := spatialmath.Compose(base2ToBase1, lightInBase2)
			gripperWorld := spatialmath.Compose(base2ToBase1, spatialmath.NewPoseFromPoint(lightGripper.Point()))
			framePose.Light = ToolPose{
				Position:        pointMM(lightWorld.Point()),
				Rotation:        lightWorld.Orientation().RotationMatrix().Rows(),
				GripperPosition: pointMM(gripperWorld.Point()),
				ServoAngles:     servoAngles(record.Light.ServoAngles),
			}
		} else {
			framePose.Light = ToolPose{
				Position:        append([]float64{}, defaultLightPosition...),
				Rotation:        defaultLightRotation,
				GripperPosition: append([]float64{}, defaultLightPosition...),
				ServoAngles:     servoAngles(nil),
			}
		}

		poses = append(poses, framePose)
	}
	return poses, nil
}

// gripperPose builds the gripper-to-base pose of a tool record, translation in meters.
func gripperPose(record *ToolRecord) (spatialmath.Pose, error) {
	rotation, err := spatialmath.NewRotationMatrixFromRows(record.RotationMatrix)
	if err != nil {
		return nil, err
	}
	point := r3.Vector{
		X: record.Position[0] / 1000.,
		Y: record.Position[1] / 1000.,
		Z: record.Position[2] / 1000.,
	}
	return spatialmath.NewPose(point, rotation), nil
}

func mountPose(rotation []float64, translation r3.Vector) (spatialmath.Pose, error) {
	rm, err := spatialmath.NewRotationMatrix(rotation)
	if err != nil {
		return nil, err
	}
	return spatialmath.NewPose(translation, rm), nil
}

// pointMM converts a point in meters back to the millimeter triple the API serves.
func pointMM(point r3.Vector) []float64 {
	return []float64{point.X * 1000., point.Y * 1000., point.Z * 1000.}
}

func servoAngles(logged []float64) []float64 {
	angles := make([]float64, servoAngleCount)
	copy(angles, logged)
	return angles
}
