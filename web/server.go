// Package web serves the replay HTTP API: computed per-frame tool poses, the frame
// image index, the secondary reference video, and solved arm states for preview.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"github.com/colinzhenli/capture-replay/capture"
	"github.com/colinzhenli/capture-replay/config"
	"github.com/colinzhenli/capture-replay/kinematics"
	"github.com/colinzhenli/capture-replay/replay"
	"github.com/colinzhenli/capture-replay/spatialmath"
)

// defaultAllowedOrigins matches the original deployment: the Vite dev server.
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// Server hosts the replay API for one capture session.
type Server struct {
	cfg    *config.Config
	logger golog.Logger

	mu     sync.RWMutex
	poses  []capture.FramePose
	images *capture.ImageIndex

	player *replay.Player

	httpServer              *http.Server
	activeBackgroundWorkers sync.WaitGroup
}

// New loads the capture session described by the config and builds a server for it.
func New(cfg *config.Config, logger golog.Logger) (*Server, error) {
	records, err := capture.ReadLog(cfg.CaptureLogPath)
	if err != nil {
		return nil, err
	}
	poses, err := capture.ComputePoses(records)
	if err != nil {
		return nil, err
	}
	images, err := capture.IndexImages(cfg.ImageDir)
	if err != nil {
		return nil, err
	}

	cameraChain, err := kinematics.NewChain(r3.Vector{}, cfg.Arm.SegmentLengthsMM)
	if err != nil {
		return nil, err
	}
	lightChain, err := kinematics.NewChain(r3.Vector{}, cfg.Arm.SegmentLengthsMM)
	if err != nil {
		return nil, err
	}
	if len(cfg.Arm.Bias) == 3 {
		bias := r3.Vector{X: cfg.Arm.Bias[0], Y: cfg.Arm.Bias[1], Z: cfg.Arm.Bias[2]}
		cameraChain.SetBias(bias)
		lightChain.SetBias(bias)
	}

	player, err := replay.NewPlayer(poses, cameraChain, lightChain, cfg.FPS, logger)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		poses:  poses,
		images: images,
		player: player,
	}, nil
}

// Player returns the replay engine backing the solved-state endpoint.
func (s *Server) Player() *replay.Player {
	return s.player
}

// Handler builds the full API handler, CORS included.
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/api/poses"), s.apiPoses)
	mux.HandleFunc(pat.Get("/api/images"), s.apiImages)
	mux.HandleFunc(pat.Get("/api/video-info"), s.apiVideoInfo)
	mux.HandleFunc(pat.Get("/api/secondary-video"), s.apiSecondaryVideo)
	mux.HandleFunc(pat.Get("/api/frames/:frame/state"), s.apiFrameState)
	mux.Handle(
		pat.Get("/images/*"),
		http.StripPrefix("/images/", http.FileServer(http.Dir(s.cfg.ImageDir))),
	)
	if s.cfg.FrontendDir != "" {
		mux.Handle(pat.Get("/*"), http.FileServer(http.Dir(s.cfg.FrontendDir)))
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead},
	}).Handler(mux)
}

// Start begins listening and also starts the capture log watcher and the playback
// loop; both stop when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %q", s.cfg.BindAddress)
	}
	s.httpServer = &http.Server{Handler: s.Handler()}

	if err := capture.Watch(ctx, s.cfg.CaptureLogPath, s.logger, func() {
		if err := s.reload(); err != nil {
			s.logger.Errorw("failed to reload capture log", "error", err)
		}
	}); err != nil {
		return multierr.Combine(err, listener.Close())
	}

	s.activeBackgroundWorkers.Add(2)
	utils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		s.logger.Infow("serving", "address", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("http serve error", "error", err)
		}
	})
	utils.PanicCapturingGo(func() {
		defer s.activeBackgroundWorkers.Done()
		if err := s.player.Run(ctx); err != nil {
			s.logger.Errorw("playback loop error", "error", err)
		}
	})
	return nil
}

// Stop shuts the server down and waits for its background workers.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.activeBackgroundWorkers.Wait()
	return err
}

// reload recomputes poses and the image index after the capture log changed.
func (s *Server) reload() error {
	records, err := capture.ReadLog(s.cfg.CaptureLogPath)
	if err != nil {
		return err
	}
	poses, err := capture.ComputePoses(records)
	if err != nil {
		return err
	}
	images, err := capture.IndexImages(s.cfg.ImageDir)
	if err != nil {
		return err
	}
	if err := s.player.SetPoses(poses); err != nil {
		return err
	}

	s.mu.Lock()
	s.poses = poses
	s.images = images
	s.mu.Unlock()
	s.logger.Infow("capture session reloaded", "frames", len(poses))
	return nil
}

type posesResponse struct {
	Poses []capture.FramePose `json:"poses"`
}

func (s *Server) apiPoses(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	poses := s.poses
	s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, posesResponse{Poses: poses})
}

func (s *Server) apiImages(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	images := s.images
	s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, images)
}

type videoInfoResponse struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func (s *Server) apiVideoInfo(w http.ResponseWriter, r *http.Request) {
	_, err := os.Stat(s.cfg.SecondaryVideoPath)
	s.writeJSON(w, http.StatusOK, videoInfoResponse{
		Path:   s.cfg.SecondaryVideoPath,
		Exists: s.cfg.SecondaryVideoPath != "" && err == nil,
	})
}

func (s *Server) apiSecondaryVideo(w http.ResponseWriter, r *http.Request) {
	if s.cfg.SecondaryVideoPath == "" {
		s.writeError(w, http.StatusNotFound, errors.New("no secondary video configured"))
		return
	}
	if _, err := os.Stat(s.cfg.SecondaryVideoPath); err != nil {
		s.writeError(w, http.StatusNotFound, errors.New("video not found"))
		return
	}
	// ServeFile handles range requests, which the video element relies on for seeking.
	http.ServeFile(w, r, s.cfg.SecondaryVideoPath)
}

type jointStateResponse struct {
	Frame  int          `json:"frame"`
	Camera []jointState `json:"camera"`
	Light  []jointState `json:"light"`
}

type jointState struct {
	Position []float64   `json:"position"`
	Rotation [][]float64 `json:"rotation"`
}

func (s *Server) apiFrameState(w http.ResponseWriter, r *http.Request) {
	frame, err := strconv.Atoi(pat.Param(r, "frame"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid frame index"))
		return
	}
	state, err := s.player.Seek(frame)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jointStateResponse{
		Frame:  state.Frame,
		Camera: jointStates(state.Camera.Joints),
		Light:  jointStates(state.Light.Joints),
	})
}

func jointStates(joints []spatialmath.Pose) []jointState {
	states := make([]jointState, 0, len(joints))
	for _, joint := range joints {
		point := joint.Point()
		states = append(states, jointState{
			Position: []float64{point.X, point.Y, point.Z},
			Rotation: joint.Orientation().RotationMatrix().Rows(),
		})
	}
	return states
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorw("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}
