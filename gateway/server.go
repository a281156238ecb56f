// Package gateway terminates run requests from the dashboard, opens one
// streaming connection per run against the upstream agent service, and
// re-emits the translated protocol events over Server-Sent-Events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/consolehq/agui-gateway/observe"
	"github.com/consolehq/agui-gateway/reconstruct"
	"github.com/consolehq/agui-gateway/runlog"
)

type Config struct {
	Addr        string
	UpstreamURL string
	AppName     string

	// Optional collaborators; the gateway works with all of them nil.
	RunLog runlog.Store
	Sink   observe.Sink
	Debug  *observe.RingSink

	HTTPClient *http.Client
}

type Server struct {
	cfg      Config
	upstream *UpstreamClient
	sink     observe.Sink
	mux      *http.ServeMux
	http     *http.Server
	once     sync.Once
}

func NewServer(cfg Config) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:8910"
	}
	s := &Server{
		cfg:  cfg,
		mux:  http.NewServeMux(),
		sink: observe.NewMultiSink(cfg.Sink, cfg.Debug),
	}
	if strings.TrimSpace(cfg.UpstreamURL) != "" {
		var opts []UpstreamOption
		if cfg.HTTPClient != nil {
			opts = append(opts, WithHTTPClient(cfg.HTTPClient))
		}
		client, err := NewUpstreamClient(cfg.UpstreamURL, opts...)
		if err != nil {
			log.Printf("gateway: invalid upstream URL %q: %v", cfg.UpstreamURL, err)
		} else {
			s.upstream = client
		}
	}
	s.registerRoutes()
	s.http = &http.Server{Addr: cfg.Addr, Handler: s.mux}
	return s
}

func (s *Server) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.mux
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server is nil")
	}
	errCh := make(chan error, 1)
	go func() {
		err := s.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Printf("gateway: shutdown error: %v", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var outErr error
	s.once.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		outErr = s.http.Shutdown(shutdownCtx)
	})
	return outErr
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/v1/agui/run", s.handleRun)
	s.mux.HandleFunc("/api/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/api/v1/runs/", s.handleRunSubresources)
	s.mux.HandleFunc("/api/v1/debug/events", s.handleDebugEvents)
	s.mux.HandleFunc("/api/v1/config", s.handleConfig)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
		return
	}
	if s.cfg.RunLog == nil {
		writeJSON(w, http.StatusOK, []runlog.RunSummary{})
		return
	}
	query := runlog.ListQuery{
		Limit:  parseInt(r.URL.Query().Get("limit"), 100),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
	}
	runs, err := s.cfg.RunLog.ListRuns(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	if runs == nil {
		runs = []runlog.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunSubresources serves /api/v1/runs/{runId}/events and
// /api/v1/runs/{runId}/session.
func (s *Server) handleRunSubresources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	if s.cfg.RunLog == nil {
		writeError(w, http.StatusNotFound, CodeBadRequest, "run log is not configured")
		return
	}
	runID := parts[0]
	query := runlog.ListQuery{
		Limit:  parseInt(r.URL.Query().Get("limit"), 0),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
	}
	events, err := s.cfg.RunLog.EventsByRun(r.Context(), runID, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	switch parts[1] {
	case "events":
		writeJSON(w, http.StatusOK, events)
	case "session":
		writeJSON(w, http.StatusOK, reconstruct.RestoreSession(events))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleDebugEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
		return
	}
	events := s.cfg.Debug.Snapshot()
	if events == nil {
		events = []observe.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upstreamConfigured": s.upstream != nil,
		"runLogEnabled":      s.cfg.RunLog != nil,
		"appName":            s.cfg.AppName,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}
