package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gogpu/gg"

	"stroke-quiz/tools/logger"
)

const (
	DefaultMaxSessions = 256
	DefaultIdleTTL     = 30 * time.Minute
)

// ServerOptions bounds the session store. Zero fields take the defaults.
type ServerOptions struct {
	MaxSessions int           // creating one more evicts the least recently used
	IdleTTL     time.Duration // sessions unused this long are dropped by Sweep
}

// Server exposes the Anthropic proxy and quiz sessions over HTTP.
type Server struct {
	proxy   http.Handler
	newQuiz func(id string) (*Quiz, error)
	log     *logger.Logger
	opts    ServerOptions
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	quiz     *Quiz
	lastUsed time.Time
}

// NewServer creates a server. newQuiz builds the quiz for a fresh session.
func NewServer(proxy http.Handler, newQuiz func(id string) (*Quiz, error), opts ServerOptions, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	return &Server{
		proxy:    proxy,
		newQuiz:  newQuiz,
		log:      log.WithPrefix("http"),
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Run sweeps idle sessions until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(max(s.opts.IdleTTL/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep drops sessions idle for longer than IdleTTL and returns how many
// were dropped.
func (s *Server) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.opts.IdleTTL)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		s.log.Info("Dropped %d idle session(s), %d left", n, len(s.sessions))
	}
	return n
}

// evictOldest drops the least recently used session. Caller holds mu.
func (s *Server) evictOldest() {
	var oldest string
	var at time.Time
	for id, sess := range s.sessions {
		if oldest == "" || sess.lastUsed.Before(at) {
			oldest, at = id, sess.lastUsed
		}
	}
	if oldest != "" {
		delete(s.sessions, oldest)
		s.log.Info("Session limit %d reached, evicted %s", s.opts.MaxSessions, oldest)
	}
}

// RegisterRoutes registers the server's routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/anthropic", s.proxy)
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.withQuiz(s.getSession))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/pointer", s.withQuiz(s.pointer))
	mux.HandleFunc("POST /api/sessions/{id}/redraw", s.withQuiz(s.redraw))
	mux.HandleFunc("POST /api/sessions/{id}/advance", s.withQuiz(s.advance))
	mux.HandleFunc("POST /api/sessions/{id}/next", s.withQuiz(s.next))
	mux.HandleFunc("POST /api/sessions/{id}/check", s.withQuiz(s.check))
	mux.HandleFunc("GET /api/sessions/{id}/surface.png", s.withQuiz(s.surface))
}

// Handler returns the routes wrapped in access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.accessLog(mux)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	id, err := newSessionID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	q, err := s.newQuiz(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to create quiz: %w", err))
		return
	}

	s.mu.Lock()
	for len(s.sessions) >= s.opts.MaxSessions {
		s.evictOldest()
	}
	s.sessions[id] = &session{quiz: q, lastUsed: s.now()}
	s.mu.Unlock()

	s.log.Info("Session %s started (%s)", id, q.Current().Character)
	writeJSON(w, http.StatusCreated, q.State())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// withQuiz resolves the {id} path value to a session.
func (s *Server) withQuiz(h func(http.ResponseWriter, *http.Request, *Quiz)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		s.mu.Lock()
		sess, ok := s.sessions[id]
		if ok {
			sess.lastUsed = s.now()
		}
		s.mu.Unlock()
		if !ok {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("session %s not found", id))
			return
		}
		h(w, r, sess.quiz)
	}
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request, q *Quiz) {
	writeJSON(w, http.StatusOK, q.State())
}

type pointerEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (s *Server) pointer(w http.ResponseWriter, r *http.Request, q *Quiz) {
	var ev pointerEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&ev); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid pointer event: %w", err))
		return
	}

	switch ev.Type {
	case "down":
		q.PointerDown(gg.Pt(ev.X, ev.Y))
	case "move":
		q.PointerMove(gg.Pt(ev.X, ev.Y))
	case "up":
		q.PointerUp()
	case "leave":
		q.PointerLeave()
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown pointer event type %q", ev.Type))
		return
	}
	writeJSON(w, http.StatusOK, q.State())
}

func (s *Server) redraw(w http.ResponseWriter, _ *http.Request, q *Quiz) {
	q.Redraw()
	writeJSON(w, http.StatusOK, q.State())
}

func (s *Server) advance(w http.ResponseWriter, _ *http.Request, q *Quiz) {
	q.Advance()
	writeJSON(w, http.StatusOK, q.State())
}

func (s *Server) next(w http.ResponseWriter, _ *http.Request, q *Quiz) {
	q.Next()
	writeJSON(w, http.StatusOK, q.State())
}

func (s *Server) check(w http.ResponseWriter, r *http.Request, q *Quiz) {
	res, err := q.Check(r.Context())
	switch {
	case errors.Is(err, ErrNoGrader):
		s.writeError(w, http.StatusNotImplemented, err)
	case err != nil:
		s.writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) surface(w http.ResponseWriter, _ *http.Request, q *Quiz) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := q.Canvas().EncodePNG(w); err != nil {
		s.log.Error("Encoding surface for %s: %v", q.ID(), err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error("%v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Request(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func newSessionID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
