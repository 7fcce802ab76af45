// Package server exposes a running scan session over a local HTTP API.
//
// Routes:
//
//	POST   /commands  apply {"type":"START_SCAN"} or {"type":"STOP_SCAN"}
//	GET    /contacts  list stored contacts
//	DELETE /contacts  clear stored contacts and stop scanning
//	GET    /status    scanning state and contact count
//	GET    /metrics   Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nao1215/contactscan/internal/command"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/store"
)

// maxCommandSize bounds the body of POST /commands.
const maxCommandSize = 4 << 10

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Server serves the control API for one scan session.
type Server struct {
	bus      *command.Bus
	contacts *store.Contacts
	metrics  *metrics.Metrics
	target   string
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTarget names the watched page in GET /status.
func WithTarget(target string) Option {
	return func(s *Server) {
		s.target = target
	}
}

// New creates a Server.
func New(bus *command.Bus, contacts *store.Contacts, opts ...Option) *Server {
	s := &Server{
		bus:      bus,
		contacts: contacts,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with every route mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/commands", s.postCommand)
	r.Get("/contacts", s.listContacts)
	r.Delete("/contacts", s.clearContacts)
	r.Get("/status", s.status)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}
	s.logger.Info("control API listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Target   string `json:"target,omitempty"`
	State    string `json:"state"`
	Scanning bool   `json:"scanning"`
	Contacts int    `json:"contacts"`
}

type errResponse struct {
	Error string `json:"error"`
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCommandSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "failed to read body"})
		return
	}

	resp, err := s.bus.Dispatch(r.Context(), raw)
	switch {
	case errors.Is(err, command.ErrMalformed), errors.Is(err, command.ErrUnknownCommand):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error()})
	case err != nil:
		s.logger.Error("command failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.contacts.Load(r.Context())
	if err != nil {
		s.logger.Error("list contacts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) clearContacts(w http.ResponseWriter, r *http.Request) {
	if err := s.bus.Clear(r.Context()); err != nil {
		s.logger.Error("clear contacts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.contacts.Load(r.Context())
	if err != nil {
		s.logger.Error("status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error"})
		return
	}
	state := "idle"
	if s.bus.Active() {
		state = "active"
	}
	scanning, err := s.bus.Scanning(r.Context())
	if err != nil {
		s.logger.Warn("failed to read scanning flag", "error", err)
		scanning = s.bus.Active()
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Target:   s.target,
		State:    state,
		Scanning: scanning,
		Contacts: len(contacts),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}
