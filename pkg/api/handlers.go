package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rubiojr/bookexplorer/pkg/catalog"
	"github.com/rubiojr/bookexplorer/pkg/detail"
	"github.com/rubiojr/bookexplorer/pkg/search"
	"github.com/rubiojr/bookexplorer/pkg/session"
	"github.com/rubiojr/bookexplorer/pkg/sorter"
	"github.com/rubiojr/bookexplorer/pkg/version"
)

// lookup resolves the {id} path value, writing a 404 when the session is
// unknown or expired.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Session not found", fmt.Sprintf("Session '%s' does not exist or has expired", id))
		return nil, false
	}
	return sess, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	return true
}

// writeFetchError maps catalog failures to a gateway error; anything else is
// an internal error.
func (s *Server) writeFetchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, catalog.ErrInvalidQuery):
		s.writeError(w, http.StatusBadRequest, "Invalid query", err.Error())
	case errors.Is(err, catalog.ErrNetwork), errors.Is(err, catalog.ErrRemote), errors.Is(err, catalog.ErrMalformed):
		s.writeError(w, http.StatusBadGateway, "Catalog request failed", err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, "Request failed", err.Error())
	}
}

func (s *Server) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	s.writeJSON(w, http.StatusCreated, CreateSessionResponse{ID: sess.ID(), View: sess.View()})
}

func (s *Server) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		s.writeError(w, http.StatusNotFound, "Session not found", fmt.Sprintf("Session '%s' does not exist", r.PathValue("id")))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusAccepted, sess.Input(req.Text))
}

func (s *Server) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := sess.Submit(r.Context(), req.Text)
	if err != nil {
		s.writeFetchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleLoadMore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view, err := sess.LoadMore(r.Context())
	if err != nil {
		s.writeFetchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	view, err := sess.Retry(r.Context())
	if err != nil {
		s.writeFetchError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) HandleSetSort(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req SortRequest
	if !s.decode(w, r, &req) {
		return
	}
	mode, err := sorter.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid sort mode", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, sess.SetSort(mode))
}

func (s *Server) HandleDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	bookID := r.PathValue("bookID")

	d, err := sess.Details(r.Context(), bookID)
	switch {
	case errors.Is(err, session.ErrUnknownRecord):
		s.writeError(w, http.StatusNotFound, "Book not found", fmt.Sprintf("Book '%s' is not part of the current results", bookID))
		return
	case errors.Is(err, detail.ErrTotalEnrichment):
		s.writeError(w, http.StatusBadGateway, "Details unavailable", err.Error())
		return
	}
	// partial failures still carry a loaded detail
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	terms, err := s.recent.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to list recent searches", err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, RecentResponse{Terms: terms, Count: len(terms)})
}

func (s *Server) HandleClearRecent(w http.ResponseWriter, r *http.Request) {
	if err := s.recent.Clear(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to clear recent searches", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleCover(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("coverID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid cover id", fmt.Sprintf("Cover id '%s' is not a number", raw))
		return
	}
	http.Redirect(w, r, s.covers.CoverURL(&id, r.URL.Query().Get("size")), http.StatusFound)
}

func (s *Server) HandleSortModes(w http.ResponseWriter, r *http.Request) {
	var resp SortModesResponse
	for _, m := range sorter.Modes() {
		resp.Modes = append(resp.Modes, SortMode{Mode: string(m), Label: m.Label()})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Sessions:  s.sessions.Len(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
