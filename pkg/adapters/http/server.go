// Package http exposes reading sessions and the history journal as a JSON
// API, with per-session Server-Sent Events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/amutnick/Runecast/pkg/history"
	"github.com/amutnick/Runecast/pkg/observability"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/amutnick/Runecast/pkg/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// DefaultMaxSessions caps concurrently open sessions.
const DefaultMaxSessions = 256

const maxBodyBytes = 64 << 10

// ErrTooManySessions is returned when the session table is full.
var ErrTooManySessions = errors.New("too many open sessions")

// Config wires the server to the application.
type Config struct {
	Catalog     *catalog.Catalog
	Interpreter ports.Interpreter
	History     *history.Service

	// Hooks observe every session the server opens (metrics, logging).
	Hooks domain.LifecycleHooks

	// MachineOptions are applied to every new session.
	MachineOptions []session.Option

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	Logger      *slog.Logger
	Version     string
	MaxSessions int
}

// Server serves the Runecast API.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	streams *StreamManager

	mu       sync.RWMutex
	sessions map[string]*session.Machine
}

// NewServer validates cfg and builds a Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.History == nil {
		return nil, errors.New("history service is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		streams:  NewStreamManager(cfg.Logger),
		sessions: make(map[string]*session.Machine),
	}, nil
}

// NewHandler is a shortcut for NewServer followed by Handler.
func NewHandler(cfg Config) (http.Handler, error) {
	s, err := NewServer(cfg)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/runes", s.listRunes)
		r.Get("/spreads", s.listSpreads)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.openSession)
		r.Route("/{handle}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)
			r.Get("/events", s.subscribeEvents)
			r.Post("/mode", s.chooseMode)
			r.Post("/spread", s.chooseSpread)
			r.Post("/runes", s.pickRune)
			r.Post("/orientation", s.confirmOrientation)
			r.Delete("/orientation", s.cancelOrientation)
			r.Post("/retry", s.retry)
			r.Post("/commit", s.commit)
			r.Post("/discard", s.discard)
			r.Post("/reset", s.reset)
		})
	})

	r.Route("/readings", func(r chi.Router) {
		r.Get("/", s.listReadings)
		r.Get("/export", s.exportReadings)
		r.Post("/prune", s.prune)
		r.Get("/{id}", s.getReading)
		r.Delete("/{id}", s.deleteReading)
	})

	r.Get("/stats", s.getStats)
	r.Post("/analysis", s.analyze)
	r.Get("/settings/retention", s.getRetention)
	r.Put("/settings/retention", s.setRetention)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Sessions --

// SessionResponse describes one open session.
type SessionResponse struct {
	Handle    string          `json:"handle"`
	Session   *domain.Session `json:"session"`
	Available []string        `json:"available"`
	Screen    view.Screen     `json:"screen"`
}

func (s *Server) newMachine(handle string) *session.Machine {
	streamHooks := domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			s.publish(handle, e)
		},
		OnCompletionDone: func(_ context.Context, e *domain.CompletionEvent) {
			s.publish(handle, e)
		},
	}
	opts := append([]session.Option{
		session.WithLogger(s.logger),
		session.WithRecorder(s.cfg.History),
	}, s.cfg.MachineOptions...)
	opts = append(opts, session.WithLifecycleHooks(observability.Combine(s.cfg.Hooks, streamHooks)))
	return session.New(s.cfg.Catalog, s.cfg.Interpreter, opts...)
}

func (s *Server) publish(handle string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("SSE: failed to encode event", "handle", handle, "err", err)
		return
	}
	s.streams.Broadcast(handle, string(data))
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	handle := uuid.NewString()

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, ErrTooManySessions)
		return
	}
	m := s.newMachine(handle)
	s.sessions[handle] = m
	s.mu.Unlock()

	s.logger.Debug("Session opened", "handle", handle)
	s.writeSession(w, r, http.StatusCreated, handle, m)
}

func (s *Server) machine(w http.ResponseWriter, r *http.Request) (string, *session.Machine, bool) {
	handle := chi.URLParam(r, "handle")
	s.mu.RLock()
	m, ok := s.sessions[handle]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", handle))
	}
	return handle, m, ok
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	handle, m, ok := s.machine(w, r)
	if !ok {
		return
	}
	s.writeSession(w, r, http.StatusOK, handle, m)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	handle, m, ok := s.machine(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, handle)
	s.mu.Unlock()
	m.Reset(r.Context())
	s.streams.Close(handle)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, handle string, m *session.Machine) {
	tab, err := view.ParseTab(r.URL.Query().Get("tab"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	count, err := s.cfg.History.Count(r.Context())
	if err != nil {
		s.fail(w, "count history", err)
		return
	}

	snap := m.Snapshot()
	available := m.Available()
	names := make([]string, len(available))
	for i, rn := range available {
		names[i] = rn.Name
	}
	writeJSON(w, status, SessionResponse{
		Handle:    handle,
		Session:   snap,
		Available: names,
		Screen:    view.Route(snap, tab, count),
	})
}

// sessionAction runs fn against the session and answers with its new state.
func (s *Server) sessionAction(fn func(ctx context.Context, m *session.Machine, body map[string]string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, m, ok := s.machine(w, r)
		if !ok {
			return
		}
		body := map[string]string{}
		if r.ContentLength != 0 {
			if err := decode(w, r, &body); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		if err := fn(r.Context(), m, body); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeSession(w, r, http.StatusOK, handle, m)
	}
}

func (s *Server) chooseMode(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, body map[string]string) error {
		mode, err := domain.ParseMode(body["mode"])
		if err != nil {
			return err
		}
		return m.ChooseMode(ctx, mode)
	})(w, r)
}

func (s *Server) chooseSpread(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, body map[string]string) error {
		return m.ChooseSpreadByName(ctx, body["spread"])
	})(w, r)
}

func (s *Server) pickRune(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, body map[string]string) error {
		rn, err := s.cfg.Catalog.Resolve(body["rune"])
		if err != nil {
			return err
		}
		return m.PickRune(ctx, rn.Name)
	})(w, r)
}

func (s *Server) confirmOrientation(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, body map[string]string) error {
		o, err := domain.ParseOrientation(body["orientation"])
		if err != nil {
			return fmt.Errorf("%w: %v", errBadInput, err)
		}
		return m.ConfirmOrientation(ctx, o)
	})(w, r)
}

func (s *Server) cancelOrientation(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(_ context.Context, m *session.Machine, _ map[string]string) error {
		return m.CancelOrientation()
	})(w, r)
}

func (s *Server) retry(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, _ map[string]string) error {
		return m.Retry(ctx)
	})(w, r)
}

func (s *Server) discard(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, _ map[string]string) error {
		return m.Discard(ctx)
	})(w, r)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(func(ctx context.Context, m *session.Machine, _ map[string]string) error {
		m.Reset(ctx)
		return nil
	})(w, r)
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	_, m, ok := s.machine(w, r)
	if !ok {
		return
	}
	record, err := m.Commit(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// subscribeEvents streams the session's transition and completion events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	handle, _, ok := s.machine(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(handle)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "handle", handle)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Catalog --

func (s *Server) listRunes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Catalog.Runes())
}

func (s *Server) listSpreads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Catalog.Spreads())
}

// -- History --

func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	records, err := s.cfg.History.List(r.Context())
	if err != nil {
		s.fail(w, "list readings", err)
		return
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", limit))
			return
		}
		if n < len(records) {
			records = records[:n]
		}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getReading(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, rec)
	default:
		s.writeDocument(w, format, "Runecast Reading", export.Markdown(rec))
	}
}

func (s *Server) exportReadings(w http.ResponseWriter, r *http.Request) {
	records, err := s.cfg.History.List(r.Context())
	if err != nil {
		s.fail(w, "export readings", err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "markdown"
	}
	w.Header().Set("Content-Disposition", `attachment; filename="runecast-journal.`+extension(format)+`"`)
	s.writeDocument(w, format, export.JournalTitle, export.HistoryMarkdown(records))
}

func extension(format string) string {
	if format == "html" {
		return "html"
	}
	return "md"
}

func (s *Server) writeDocument(w http.ResponseWriter, format, title, markdown string) {
	switch format {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(markdown))
	case "html":
		doc, err := export.HTMLDocument(title, markdown)
		if err != nil {
			s.fail(w, "render html", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
	}
}

func (s *Server) deleteReading(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.History.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pruneRequest struct {
	RetentionDays *int `json:"retention_days,omitempty"`
}

type pruneResponse struct {
	Removed       int `json:"removed"`
	RetentionDays int `json:"retention_days"`
}

func (s *Server) prune(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	days := s.cfg.History.Retention()
	if req.RetentionDays != nil {
		days = *req.RetentionDays
	}
	removed, err := s.cfg.History.Prune(r.Context(), days)
	if err != nil {
		s.fail(w, "prune readings", err)
		return
	}
	writeJSON(w, http.StatusOK, pruneResponse{Removed: removed, RetentionDays: days})
}

type retentionBody struct {
	Days int `json:"days"`
}

func (s *Server) getRetention(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, retentionBody{Days: s.cfg.History.Retention()})
}

func (s *Server) setRetention(w http.ResponseWriter, r *http.Request) {
	var body retentionBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.cfg.History.SetRetention(body.Days)
	writeJSON(w, http.StatusOK, retentionBody{Days: s.cfg.History.Retention()})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cfg.History.Stats(r.Context())
	if err != nil {
		s.fail(w, "compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.cfg.History.Analyze(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// -- Meta --

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	open := len(s.sessions)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"app":       "runecast-http",
		"version":   strings.TrimSpace(s.cfg.Version),
		"sessions":  open,
		"retention": s.cfg.History.Retention(),
	})
}

// -- Helpers --

var errBadInput = errors.New("bad input")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeDomainError maps sentinel errors onto status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRuneNotFound),
		errors.Is(err, domain.ErrSpreadNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNoPendingOrientation):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrUnknownMode), errors.Is(err, errBadInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrInsufficientHistory):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.fail(w, "request failed", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, err)
}
