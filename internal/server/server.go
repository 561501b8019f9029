package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/recommend"
	"github.com/lazypower/retention/internal/results"
	"github.com/lazypower/retention/internal/store"
)

// Analyzer is what the server needs to run the decision pipeline.
type Analyzer struct {
	Classifier  classifier.Classifier
	Recommender *recommend.Engine // nil uses the default thresholds
	Results     results.Sink      // nil disables the result log
	Timeout     time.Duration     // per-request classification budget; zero means none
}

// Server is the retention HTTP API server.
type Server struct {
	db       *store.DB
	analyzer Analyzer
	locks    sessionLocks
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a new Server with the given database, version string, and pipeline dependencies.
func New(db *store.DB, version string, a Analyzer) *Server {
	if a.Classifier == nil {
		a.Classifier = classifier.NewLexicon()
	}
	if a.Recommender == nil {
		a.Recommender = recommend.Default()
	}
	s := &Server{
		db:       db,
		analyzer: a,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Post("/sessions/{sessionID}/end", s.handleEndSession)
		r.Get("/sessions/{sessionID}/memory", s.handleGetMemory)
		r.Get("/sessions/{sessionID}/context", s.handleGetContext)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"uptime":     time.Since(s.started).Seconds(),
		"db":         dbOK,
		"db_path":    s.db.Path,
		"thresholds": s.analyzer.Recommender.Thresholds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionLocks serializes pipeline runs per session. A session's memory
// must not be read and appended by two runs at once.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

// lock waits for the session's slot or for ctx to end, whichever is first.
func (l *sessionLocks) lock(ctx context.Context, sessionID string) (unlock func(), err error) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]chan struct{})
	}
	ch, ok := l.m[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.m[sessionID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
