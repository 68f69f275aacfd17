// Package replay drives the frame-by-frame playback of a capture session: for each
// frame it feeds the recorded tool poses to the arm chains' solver and exposes the
// resulting joint transforms for a renderer to consume.
package replay

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/colinzhenli/capture-replay/capture"
	"github.com/colinzhenli/capture-replay/kinematics"
	"github.com/colinzhenli/capture-replay/spatialmath"
)

// ChainState is the solved state of one arm chain for one frame.
type ChainState struct {
	// Joints holds the world pose of every joint, base to tip; the final entry is the
	// end effector with the tool orientation applied.
	Joints []spatialmath.Pose

	// Target is the recorded tool position the solve converged toward.
	Target r3.Vector
}

// FrameState is the solved state of both chains for one frame.
type FrameState struct {
	Frame  int
	Camera ChainState
	Light  ChainState
}

// Player owns the playback state of one capture session. The two chains are solved
// independently and sequentially within a step; no state is shared between them.
type Player struct {
	mu      sync.Mutex
	poses   []capture.FramePose
	camera  *kinematics.Chain
	light   *kinematics.Chain
	clock   clock.Clock
	fps     float64
	frame   int
	playing bool
	logger  golog.Logger
}

// NewPlayer creates a player over the given pose sequence and arm chains.
func NewPlayer(
	poses []capture.FramePose,
	camera, light *kinematics.Chain,
	fps float64,
	logger golog.Logger,
) (*Player, error) {
	if len(poses) == 0 {
		return nil, errors.New("pose sequence is empty")
	}
	if camera == nil || light == nil {
		return nil, errors.New("both chains are required")
	}
	if fps <= 0 {
		return nil, errors.Errorf("fps must be positive, got %f", fps)
	}
	return &Player{
		poses:  poses,
		camera: camera,
		light:  light,
		clock:  clock.New(),
		fps:    fps,
		logger: logger,
	}, nil
}

// Len returns the number of frames in the pose sequence.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.poses)
}

// CurrentFrame returns the index of the last stepped frame.
func (p *Player) CurrentFrame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// Play starts advancing frames from the run loop.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

// Pause stops the run loop from advancing frames; Step and Seek still work.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// SetPoses replaces the pose sequence, e.g. after the capture log was rewritten.
// The current frame is clamped into the new range.
func (p *Player) SetPoses(poses []capture.FramePose) error {
	if len(poses) == 0 {
		return errors.New("pose sequence is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.poses = poses
	if p.frame >= len(poses) {
		p.frame = len(poses) - 1
	}
	return nil
}

// Step solves both chains against the given frame's recorded poses and returns the
// resulting joint transforms. The frame index must be in range.
func (p *Player) Step(frame int) (*FrameState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frame < 0 || frame >= len(p.poses) {
		return nil, errors.Errorf("frame %d out of range [0, %d)", frame, len(p.poses))
	}
	pose := p.poses[frame]

	cameraState, err := stepChain(p.camera, &pose.Camera, kinematics.CameraMount)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d camera", frame)
	}
	lightState, err := stepChain(p.light, &pose.Light, kinematics.LightMount)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d light", frame)
	}

	p.frame = frame
	return &FrameState{Frame: frame, Camera: *cameraState, Light: *lightState}, nil
}

// Seek is Step for an externally chosen frame, e.g. a scrub bar.
func (p *Player) Seek(frame int) (*FrameState, error) {
	return p.Step(frame)
}

// Run advances playback at the configured frame rate until ctx is done. Each tick is
// a synchronous solve of both chains; ticks are dropped rather than queued if a solve
// overruns the frame interval.
func (p *Player) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / p.fps)
	ticker := p.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		p.mu.Lock()
		playing := p.playing
		next := p.frame + 1
		if next >= len(p.poses) {
			next = 0
		}
		p.mu.Unlock()
		if !playing {
			continue
		}
		if _, err := p.Step(next); err != nil {
			p.logger.Errorw("failed to step frame", "frame", next, "error", err)
		}
	}
}

func stepChain(chain *kinematics.Chain, pose *capture.ToolPose, mount spatialmath.Orientation) (*ChainState, error) {
	if len(pose.Position) != 3 {
		return nil, errors.Errorf("position has %d elements, need exactly 3", len(pose.Position))
	}
	rotation, err := spatialmath.NewRotationMatrixFromRows(pose.Rotation)
	if err != nil {
		return nil, err
	}

	target := r3.Vector{X: pose.Position[0], Y: pose.Position[1], Z: pose.Position[2]}
	chain.Solve(target)
	chain.ApplyToolOrientation(rotation, mount)
	return &ChainState{Joints: chain.JointTransforms(), Target: target}, nil
}
