// Package config defines the structures to configure a replay server and the capture
// session it serves.
package config

import (
	"github.com/pkg/errors"
)

// Default values for fields the config file may omit.
const (
	DefaultBindAddress = "localhost:8000"
	DefaultFPS         = 30.
)

// DefaultSegmentLengthsMM is the default three segment arm, in millimeters.
var DefaultSegmentLengthsMM = []float64{250, 250, 250}

// Config describes the capture session to replay and how to serve it.
type Config struct {
	ConfigFilePath string `json:"-"`

	// ImageDir holds the per-frame still images simulating the video track.
	ImageDir string `json:"image_dir"`

	// CaptureLogPath points at the capture log the per-frame poses are computed from.
	CaptureLogPath string `json:"capture_log_path"`

	// SecondaryVideoPath is the reference video played alongside the frames. Optional.
	SecondaryVideoPath string `json:"secondary_video_path,omitempty"`

	// FrontendDir is served at the root path when set. Optional.
	FrontendDir string `json:"frontend_dir,omitempty"`

	// AllowedOrigins are the CORS origins permitted to call the API. Empty allows the
	// local Vite dev server, matching the original deployment.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	BindAddress string `json:"bind_address,omitempty"`

	// FPS is the playback rate of the replay engine.
	FPS float64 `json:"fps,omitempty"`

	// Arm tunes the simulated arm chains.
	Arm ArmConfig `json:"arm"`
}

// ArmConfig tunes the simulated kinematic chains.
type ArmConfig struct {
	// SegmentLengthsMM are the fixed segment lengths of both arm chains.
	SegmentLengthsMM []float64 `json:"segment_lengths_mm,omitempty"`

	// Bias is the lateral solver nudge, millimeters per axis. Zero means the solver
	// default; it should be re-tuned if the segment count changes.
	Bias []float64 `json:"bias,omitempty"`
}

// Ensure validates the config and fills in defaults.
func (c *Config) Ensure() error {
	if c.ImageDir == "" {
		return errors.New("image_dir is required")
	}
	if c.CaptureLogPath == "" {
		return errors.New("capture_log_path is required")
	}
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if c.FPS == 0 {
		c.FPS = DefaultFPS
	}
	if c.FPS < 0 {
		return errors.Errorf("fps must be positive, got %f", c.FPS)
	}
	if len(c.Arm.SegmentLengthsMM) == 0 {
		c.Arm.SegmentLengthsMM = DefaultSegmentLengthsMM
	}
	for i, length := range c.Arm.SegmentLengthsMM {
		if length <= 0 {
			return errors.Errorf("arm segment %d has non-positive length %f", i, length)
		}
	}
	if len(c.Arm.Bias) != 0 && len(c.Arm.Bias) != 3 {
		return errors.Errorf("arm bias has %d elements, need exactly 3", len(c.Arm.Bias))
	}
	return nil
}
