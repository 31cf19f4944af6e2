package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/treefix50/watchtrack/internal/catalog"
	"github.com/treefix50/watchtrack/internal/tracker"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

type libraryResponse struct {
	Category   string                 `json:"category"`
	Categories []string               `json:"categories"`
	Videos     []tracker.LibraryEntry `json:"videos"`
}

// GET /api/videos?category=
func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = catalog.AllCategories
	}
	entries, err := s.opts.Tracker.Library(r.Context(), category)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, libraryResponse{
		Category:   category,
		Categories: s.opts.Catalog.Categories(),
		Videos:     entries,
	})
}

// GET /api/videos/{id}
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := s.opts.Tracker.Progress(r.Context(), id)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	video, _ := s.opts.Catalog.GetVideo(id)
	writeJSON(w, http.StatusOK, tracker.LibraryEntry{Video: video, Progress: view})
}

// GET /api/videos/{id}/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	view, err := s.opts.Tracker.Progress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/videos/{id}/stream
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	video, ok := s.opts.Catalog.GetVideo(chi.URLParam(r, "id"))
	if !ok || video.Path == "" {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	serveVideoFile(w, r, video.Path)
}

// POST /api/videos/{id}/segments
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.opts.Tracker.RecordSegment(r.Context(), chi.URLParam(r, "id"), req.Start, req.End)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PUT /api/videos/{id}/position
func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.opts.Tracker.UpdatePosition(r.Context(), id, req.Position); err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	view, err := s.opts.Tracker.Progress(r.Context(), id)
	if err != nil {
		s.writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GET /api/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	states, err := s.opts.Store.Snapshot(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="watchtrack-progress.json"`)
	writeJSON(w, http.StatusOK, states)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
