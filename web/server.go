package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"shorts-pipeline/assemble"
	"shorts-pipeline/config"
	"shorts-pipeline/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Runner is the pipeline entry point the server drives; swapped for a fake in
// handler tests
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server exposes the generation pipeline over HTTP
type Server struct {
	cfg    *config.Config
	runner Runner
}

// NewServer creates a Server around a pipeline runner
func NewServer(cfg *config.Config, runner Runner) *Server {
	return &Server{cfg: cfg, runner: runner}
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/generate", s.handleGenerate)
	r.Get("/download/{filename}", s.handleDownload)
	return r
}

// ListenAndServe runs the server on the configured address
func (s *Server) ListenAndServe() error {
	log.Printf("[web] Listening on %s", s.cfg.Web.Addr)
	return http.ListenAndServe(s.cfg.Web.Addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Topic       string `json:"topic"`
	Script      string `json:"script"`
	VideoSource string `json:"video_source"`
	Upload      bool   `json:"upload"`
}

type generateResponse struct {
	*pipeline.Result
	DownloadURL string `json:"download_url,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := s.runner.Run(r.Context(), pipeline.Request{
		Topic:       req.Topic,
		Script:      req.Script,
		VideoSource: req.VideoSource,
		Upload:      req.Upload,
	})
	switch {
	case errors.Is(err, assemble.ErrNoScenesReady):
		writeJSON(w, http.StatusUnprocessableEntity, generateResponse{
			Result:  result,
			Message: "no scenes could be produced; no video was rendered",
		})
		return
	case err != nil:
		log.Printf("[web] generation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.scheduleRetentionDelete(result.OutputPath)
	writeJSON(w, http.StatusOK, generateResponse{
		Result:      result,
		DownloadURL: "/download/" + result.Filename,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	// Sanitizing the name prevents directory traversal
	name := pipeline.SanitizeFilename(chi.URLParam(r, "filename"))
	path := filepath.Join(s.cfg.Paths.Output, name)
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found or has been deleted"})
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
	http.ServeFile(w, r, path)
}

// scheduleRetentionDelete removes the deliverable after the retention window
func (s *Server) scheduleRetentionDelete(path string) {
	retain := time.Duration(s.cfg.Video.RetainOutputSec * float64(time.Second))
	if retain <= 0 {
		retain = time.Minute
	}
	time.AfterFunc(retain, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[web] retention delete failed for %s: %v", path, err)
			return
		}
		log.Printf("[web] Deleted expired output: %s", path)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
