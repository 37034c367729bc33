package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wasd09090030/chartvault/internal/core"
	"github.com/wasd09090030/chartvault/internal/database"
)

// setResponse is the detail view of a set with its difficulties.
type setResponse struct {
	database.ChartSet
	Difficulties []database.Difficulty `json:"difficulties"`
}

// handleImportArchive accepts a multipart .osz upload and runs the
// archive import pipeline.
func (s *Server) handleImportArchive(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxArchiveSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		respondError(w, r, core.ErrInvalidInput("file too large or invalid form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrInvalidInput("no file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	set, err := s.service.ImportArchive(r.Context(), header.Filename, data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

// handleImportBundle accepts a pre-uploaded bundle as JSON and runs the
// map-mode import pipeline.
func (s *Server) handleImportBundle(w http.ResponseWriter, r *http.Request) {
	var req core.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, core.ErrInvalidInput("invalid request body"))
		return
	}

	set, err := s.service.ImportUploaded(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

func (s *Server) handleListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.service.ListSets(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if sets == nil {
		sets = []database.ChartSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleGetSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	set, diffs, err := s.service.GetSet(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if diffs == nil {
		diffs = []database.Difficulty{}
	}
	writeJSON(w, http.StatusOK, setResponse{ChartSet: *set, Difficulties: diffs})
}

// handleGetDifficulty returns one difficulty with its raw chart data.
func (s *Server) handleGetDifficulty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := s.service.GetDifficulty(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The blob is already JSON; splice it in without re-encoding.
	type difficultyResponse struct {
		database.Difficulty
		Data json.RawMessage `json:"data"`
	}
	writeJSON(w, http.StatusOK, difficultyResponse{Difficulty: *d, Data: json.RawMessage(d.Data)})
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route parameter, responding with an invalid
// input error when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, core.ErrInvalidInput("invalid id %q", raw))
		return 0, false
	}
	return id, true
}
