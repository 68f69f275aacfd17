package capture

import (
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var imageNamePattern = regexp.MustCompile(`^capture-(\d+)_visualized\.png$`)

// ImageIndex maps capture frames to the still images that simulate the video track.
// Images holds one entry per frame id from 0 through the highest id found; frames
// with no image present have an empty entry.
type ImageIndex struct {
	Images  []string       `json:"images"`
	ByFrame map[int]string `json:"images_dict"`
}

// IndexImages scans a directory of per-frame captures and builds a frame-ordered
// image index.
func IndexImages(dir string) (*ImageIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image directory")
	}

	byFrame := map[int]string{}
	maxID := -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := imageNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		frameID, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		byFrame[frameID] = entry.Name()
		if frameID > maxID {
			maxID = frameID
		}
	}

	images := make([]string, maxID+1)
	for frameID, name := range byFrame {
		images[frameID] = name
	}
	return &ImageIndex{Images: images, ByFrame: byFrame}, nil
}
