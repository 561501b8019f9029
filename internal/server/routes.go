package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/retention/internal/memory"
	"github.com/lazypower/retention/internal/pipeline"
	"github.com/lazypower/retention/internal/store"
)

type analyzeRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type analyzeResponse struct {
	SessionID string `json:"session_id"`
	pipeline.State
	Dominant string `json:"dominant"`
	Summary  string `json:"summary"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	ctx := r.Context()
	if s.analyzer.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.analyzer.Timeout)
		defer cancel()
	}

	unlock, err := s.locks.lock(ctx, req.SessionID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "waiting for session: "+err.Error())
		return
	}
	p := pipeline.New(s.analyzer.Classifier, s.db.Memory(req.SessionID), s.analyzer.Recommender)
	state, err := p.Run(ctx, req.Text)
	unlock()

	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.analyzer.Results != nil {
		rec := state.Record()
		rec.SessionID = req.SessionID
		// The decision is already made; a failed log write does not undo it.
		if err := s.analyzer.Results.Save(r.Context(), rec); err != nil {
			log.Printf("server: save result for %s: %v", req.SessionID, err)
		}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		SessionID: req.SessionID,
		State:     state,
		Dominant:  state.EmotionScores.Dominant(),
		Summary:   state.Summary(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	sessions, err := s.db.GetRecentSessions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.db.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.db.EndSession(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	entries, err := s.db.Memory(sessionID).Entries(queryInt(r, "limit", memory.Window))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"count":      len(entries),
		"entries":    entries,
	})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
