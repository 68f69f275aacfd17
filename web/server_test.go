package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/colinzhenli/capture-replay/config"
)

const testLog = `[
	{
		"id": 0,
		"camera": {
			"rotation_matrix": [[1, 0, 0], [0, 1, 0], [0, 0, 1]],
			"position": [0, 0, 750],
			"servo_angles": [1, 2, 3, 4, 5, 6]
		}
	},
	{
		"id": 1,
		"camera": {
			"rotation_matrix": [[1, 0, 0], [0, 1, 0], [0, 0, 1]],
			"position": [375, 0, 0]
		}
	}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	imageDir := filepath.Join(dir, "frames")
	test.That(t, os.Mkdir(imageDir, 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(
		filepath.Join(imageDir, "capture-0000_visualized.png"), []byte("png"), 0o644), test.ShouldBeNil)

	logPath := filepath.Join(dir, "capture_log.json")
	test.That(t, os.WriteFile(logPath, []byte(testLog), 0o644), test.ShouldBeNil)

	cfg := &config.Config{
		ImageDir:       imageDir,
		CaptureLogPath: logPath,
		BindAddress:    "localhost:0",
	}
	test.That(t, cfg.Ensure(), test.ShouldBeNil)
	return cfg
}

func testServer(t *testing.T) *Server {
	t.Helper()
	server, err := New(testConfig(t), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return server
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAPIPoses(t *testing.T) {
	handler := testServer(t).Handler()

	rec := get(handler, "/api/poses")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	var body posesResponse
	test.That(t, json.NewDecoder(rec.Body).Decode(&body), test.ShouldBeNil)
	test.That(t, body.Poses, test.ShouldHaveLength, 2)
	test.That(t, body.Poses[0].FrameID, test.ShouldEqual, 0)
	test.That(t, body.Poses[0].Camera.Position, test.ShouldHaveLength, 3)
	// Frames without a light record serve the fixed fallback light pose.
	test.That(t, body.Poses[0].Light.Position, test.ShouldResemble, []float64{0, 300, 400})
}

func TestAPIImages(t *testing.T) {
	handler := testServer(t).Handler()

	rec := get(handler, "/api/images")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	var body struct {
		Images  []string       `json:"images"`
		ByFrame map[int]string `json:"images_dict"`
	}
	test.That(t, json.NewDecoder(rec.Body).Decode(&body), test.ShouldBeNil)
	test.That(t, body.Images, test.ShouldResemble, []string{"capture-0000_visualized.png"})

	// The indexed image is also served statically.
	rec = get(handler, "/images/capture-0000_visualized.png")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldEqual, "png")
}

func TestAPIVideoInfo(t *testing.T) {
	server := testServer(t)

	rec := get(server.Handler(), "/api/video-info")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	var body videoInfoResponse
	test.That(t, json.NewDecoder(rec.Body).Decode(&body), test.ShouldBeNil)
	test.That(t, body.Exists, test.ShouldBeFalse)

	videoPath := filepath.Join(t.TempDir(), "secondary.mp4")
	test.That(t, os.WriteFile(videoPath, []byte("mp4data"), 0o644), test.ShouldBeNil)
	server.cfg.SecondaryVideoPath = videoPath

	rec = get(server.Handler(), "/api/video-info")
	test.That(t, json.NewDecoder(rec.Body).Decode(&body), test.ShouldBeNil)
	test.That(t, body.Exists, test.ShouldBeTrue)
	test.That(t, body.Path, test.ShouldEqual, videoPath)
}

func TestAPISecondaryVideo(t *testing.T) {
	server := testServer(t)

	rec := get(server.Handler(), "/api/secondary-video")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusNotFound)

	videoPath := filepath.Join(t.TempDir(), "secondary.mp4")
	test.That(t, os.WriteFile(videoPath, []byte("mp4data"), 0o644), test.ShouldBeNil)
	server.cfg.SecondaryVideoPath = videoPath

	rec = get(server.Handler(), "/api/secondary-video")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldEqual, "mp4data")
	// Range support is what lets the video element seek.
	test.That(t, rec.Header().Get("Accept-Ranges"), test.ShouldEqual, "bytes")
}

func TestAPIFrameState(t *testing.T) {
	handler := testServer(t).Handler()

	rec := get(handler, "/api/frames/0/state")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)

	var body jointStateResponse
	test.That(t, json.NewDecoder(rec.Body).Decode(&body), test.ShouldBeNil)
	test.That(t, body.Frame, test.ShouldEqual, 0)
	test.That(t, body.Camera, test.ShouldHaveLength, 4)
	test.That(t, body.Light, test.ShouldHaveLength, 4)

	rec = get(handler, "/api/frames/99/state")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	rec = get(handler, "/api/frames/notanumber/state")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)
}

func TestCORSHeaders(t *testing.T) {
	handler := testServer(t).Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/poses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	handler.ServeHTTP(rec, req)
	test.That(t, rec.Header().Get("Access-Control-Allow-Origin"), test.ShouldEqual, "http://localhost:5173")
}

func TestStartStop(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	test.That(t, server.Start(ctx), test.ShouldBeNil)
	cancel()
	test.That(t, server.Stop(context.Background()), test.ShouldBeNil)
}

func TestReload(t *testing.T) {
	server := testServer(t)

	shortened := `[
		{
			"id": 0,
			"camera": {
				"rotation_matrix": [[1, 0, 0], [0, 1, 0], [0, 0, 1]],
				"position": [0, 0, 750]
			}
		}
	]`
	test.That(t, os.WriteFile(server.cfg.CaptureLogPath, []byte(shortened), 0o644), test.ShouldBeNil)
	test.That(t, server.reload(), test.ShouldBeNil)

	rec := get(server.Handler(), "/api/poses")
	var body posesResponse
	test.That(t, json.NewDecoder(rec.Body).Decode(&body), test.ShouldBeNil)
	test.That(t, body.Poses, test.ShouldHaveLength, 1)
}
