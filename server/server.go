// Package server is the HTTP transport of the eye dancer. Command paths
// (/move/90, /spell/...) fall through to the command router; everything
// under /api is JSON for inspecting and tuning the running system.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lautenbacher.net/eyedancer/config"
	"lautenbacher.net/eyedancer/controller"
	"lautenbacher.net/eyedancer/platform"
	"lautenbacher.net/eyedancer/store"
	"lautenbacher.net/eyedancer/util"
)

// bootsListed is how many runs /api/boots reports.
const bootsListed = 20

type Controller interface {
	Snapshot(ctx context.Context) (controller.Status, error)
	SetTarget(deg int)
}

// Outputs is the recorded state of the platform.
type Outputs interface {
	Snapshot() platform.Snapshot
	History() []util.Event
}

type Journal interface {
	Boots(limit int) ([]store.Boot, error)
	GestureTable() []string
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Controller controller.Status `json:"controller"`
	Outputs    platform.Snapshot `json:"outputs"`
}

type Server struct {
	ctrl       Controller
	commands   http.Handler
	outputs    Outputs
	journal    Journal
	configFile string
	srv        *http.Server
}

func New(ctrl Controller, commands http.Handler, outputs Outputs, journal Journal, configFile string) *Server {
	return &Server{
		ctrl:       ctrl,
		commands:   commands,
		outputs:    outputs,
		journal:    journal,
		configFile: configFile,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/boots", s.handleBoots)
		r.Get("/gestures", s.handleGestures)
		r.Post("/target/{deg}", s.handleTarget)
		r.Handle("/config", config.ConfigHandler(s.configFile))
	})
	r.Handle("/metrics", promhttp.Handler())

	// anything else is a command path
	r.NotFound(s.commands.ServeHTTP)
	return r
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("HTTP server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Controller: st, Outputs: s.outputs.Snapshot()})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.outputs.History())
}

func (s *Server) handleBoots(w http.ResponseWriter, _ *http.Request) {
	boots, err := s.journal.Boots(bootsListed)
	if err != nil {
		slog.Error("Failed to read boot journal", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read boot journal")
		return
	}
	writeJSON(w, http.StatusOK, boots)
}

func (s *Server) handleGestures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.journal.GestureTable())
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	deg, err := strconv.Atoi(chi.URLParam(r, "deg"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "angle must be an integer")
		return
	}
	s.ctrl.SetTarget(deg)
	writeJSON(w, http.StatusAccepted, map[string]int{"target": deg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
