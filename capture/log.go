// Package capture reads recorded robotic-arm capture sessions: the capture log with
// per-frame tool poses, and the directory of per-frame still images.
package capture

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ToolRecord is the raw logged pose of one tracked tool's gripper: a world rotation
// matrix, a position in millimeters, and the arm's servo angles at capture time.
type ToolRecord struct {
	RotationMatrix [][]float64 `json:"rotation_matrix"`
	Position       []float64   `json:"position"`
	ServoAngles    []float64   `json:"servo_angles,omitempty"`
}

// Record is one frame of the capture log. The light record is optional; some datasets
// were captured without the light arm.
type Record struct {
	ID     int         `json:"id"`
	Camera ToolRecord  `json:"camera"`
	Light  *ToolRecord `json:"light,omitempty"`
}

// ReadLog reads and validates a capture log from the given file.
func ReadLog(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open capture log")
	}
	defer f.Close()

	var records []Record
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, errors.Wrap(err, "failed to decode capture log")
	}
	for _, record := range records {
		if err := record.Camera.validate(); err != nil {
			return nil, errors.Wrapf(err, "frame %d camera", record.ID)
		}
		if record.Light != nil {
			if err := record.Light.validate(); err != nil {
				return nil, errors.Wrapf(err, "frame %d light", record.ID)
			}
		}
	}
	return records, nil
}

func (tr *ToolRecord) validate() error {
	if len(tr.Position) != 3 {
		return errors.Errorf("position has %d elements, need exactly 3", len(tr.Position))
	}
	if len(tr.RotationMatrix) != 3 {
		return errors.Errorf("rotation has %d rows, need exactly 3", len(tr.RotationMatrix))
	}
	for i, row := range tr.RotationMatrix {
		if len(row) != 3 {
			return errors.Errorf("rotation row %d has %d elements, need exactly 3", i, len(row))
		}
	}
	return nil
}
