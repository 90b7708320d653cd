// ABOUTME: tusk HTTP server exposing the live board as an HTML dashboard, a JSON API, and an SSE stream.
// ABOUTME: Routes run control to the ingest loop and reads run history from the SQLite store behind one chi router.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxChartBytes bounds the size of a posted chart payload.
const DefaultMaxChartBytes = 4 << 20

// RunController starts, stops and resets status polling. *ingest.Loop
// satisfies it.
type RunController interface {
	Start() error
	Stop() error
	Reset() error
}

// RunHistory is the subset of the store the server reads and writes.
type RunHistory interface {
	ListRuns(limit int) ([]store.RunSummary, error)
	GetRun(runID string) (store.RunRecord, error)
	SaveChart(c store.ChartRecord) error
	ListCharts(runID string) ([]store.ChartRecord, error)
}

// ServerConfig holds the configuration for the web server.
type ServerConfig struct {
	Addr          string        // listen address (default: "127.0.0.1:2389")
	Board         *board.Board  // required
	Control       RunController // nil disables run control
	History       RunHistory    // nil disables history routes
	MaxChartBytes int64         // default: DefaultMaxChartBytes
	Heartbeat     time.Duration // SSE keepalive interval (default: 15s)
}

// Server is the tusk HTTP server.
type Server struct {
	board     *board.Board
	control   RunController
	history   RunHistory
	templates *TemplateEngine
	router    chi.Router
	addr      string
	maxChart  int64
	heartbeat time.Duration
	srv       *http.Server
}

// NewServer creates a Server with the given configuration and sets up routing.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Board == nil {
		return nil, errors.New("server config: board must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:2389"
	}
	if cfg.MaxChartBytes <= 0 {
		cfg.MaxChartBytes = DefaultMaxChartBytes
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		board:     cfg.Board,
		control:   cfg.Control,
		history:   cfg.History,
		templates: tmpl,
		addr:      cfg.Addr,
		maxChart:  cfg.MaxChartBytes,
		heartbeat: cfg.Heartbeat,
	}
	s.router = s.buildRouter()
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured address with
// appropriate timeouts to prevent resource exhaustion from slow clients.
// The SSE stream is long-lived, so there is no write timeout.
func (s *Server) ListenAndServe() error {
	log.Printf("component=web action=listen addr=%s", s.addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(webRequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleDashboard)
	r.Get("/health", s.handleHealth)
	r.Get("/runs", s.handleRunsPage)
	r.Get("/runs/{runID}", s.handleRunPage)
	r.Handle("/metrics", promhttp.Handler())

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		log.Printf("component=web action=static_fs_failed err=%v", err)
	} else {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Get("/agents", s.handleAgents)
		r.Get("/agents/{agentID}", s.handleAgent)
		r.Get("/chart", s.handleChart)
		r.Post("/chart", s.handleChartPost)
		r.Delete("/chart", s.handleChartDelete)
		r.Post("/run/start", s.handleRunControl("start", func(c RunController) error { return c.Start() }))
		r.Post("/run/stop", s.handleRunControl("stop", func(c RunController) error { return c.Stop() }))
		r.Post("/reset", s.handleRunControl("reset", func(c RunController) error { return c.Reset() }))
		r.Get("/events", s.handleEvents)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{runID}", s.handleRun)
	})

	return r
}

// handleDashboard renders the live dashboard from the current view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Dashboard", View: s.board.View()}
	if err := s.templates.Render(w, "dashboard.html", data); err != nil {
		log.Printf("component=web action=render_failed page=dashboard err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.View())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Agents())
}

// handleAgent returns one slot. Any known alias of the agent is accepted.
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := roster.Resolve(chi.URLParam(r, "agentID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown agent")
		return
	}
	slot, ok := s.board.View().Agent(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown agent")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	cv, ok := s.board.Chart()
	if !ok {
		writeError(w, http.StatusNotFound, "no chart loaded")
		return
	}
	writeJSON(w, http.StatusOK, cv)
}

// handleChartPost normalizes the request body as a chart payload. The
// family comes from the family query parameter or, when absent, from the
// payload itself. A payload that yields no records is still accepted and
// reported as unsupported.
func (s *Server) handleChartPost(w http.ResponseWriter, r *http.Request) {
	var family chart.Family
	if raw := r.URL.Query().Get("family"); raw != "" {
		f, ok := chart.ParseFamily(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown chart family %q", raw))
			return
		}
		family = f
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxChart)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "chart payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read chart payload")
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "empty chart payload")
		return
	}

	cv := s.board.SetChart(payload, family)
	log.Printf("component=web action=chart_loaded chart=%s family=%s records=%d unsupported=%t",
		cv.ID, cv.Family, len(cv.Records), cv.Unsupported)
	s.recordChart(cv, payload)
	writeJSON(w, http.StatusOK, cv)
}

func (s *Server) handleChartDelete(w http.ResponseWriter, r *http.Request) {
	s.board.ClearChart()
	w.WriteHeader(http.StatusNoContent)
}

// recordChart saves a chart to history; failures are logged only.
func (s *Server) recordChart(cv board.ChartView, payload []byte) {
	if s.history == nil {
		return
	}
	rec, err := store.ChartFromView(cv, s.board.View().RunID, payload)
	if err == nil {
		err = s.history.SaveChart(rec)
	}
	if err != nil {
		log.Printf("component=web action=save_chart_failed chart=%s err=%v", cv.ID, err)
	}
}

// handleRunControl wraps a control call. Control requests are queued for the
// loop, so success means accepted rather than applied.
func (s *Server) handleRunControl(name string, call func(RunController) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.control == nil {
			writeError(w, http.StatusServiceUnavailable, "run control disabled")
			return
		}
		if err := call(s.control); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ingest.ErrLoopClosed) {
				status = http.StatusServiceUnavailable
			}
			log.Printf("component=web action=%s_failed err=%v", name, err)
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "action": name})
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.history.ListRuns(limit)
	if err != nil {
		log.Printf("component=web action=list_runs_failed err=%v", err)
		writeError(w, http.StatusInternalServerError, "list runs")
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runResponse struct {
	store.RunRecord
	Charts []store.ChartRecord `json:"charts"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}
	run, charts, status, err := s.loadRun(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	if charts == nil {
		charts = []store.ChartRecord{}
	}
	writeJSON(w, http.StatusOK, runResponse{RunRecord: run, Charts: charts})
}

func (s *Server) handleRunsPage(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Runs"}
	if s.history != nil {
		runs, err := s.history.ListRuns(100)
		if err != nil {
			log.Printf("component=web action=list_runs_failed err=%v", err)
		}
		data.Runs = runs
	}
	if err := s.templates.Render(w, "runs.html", data); err != nil {
		log.Printf("component=web action=render_failed page=runs err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "run history disabled", http.StatusServiceUnavailable)
		return
	}
	run, charts, status, err := s.loadRun(chi.URLParam(r, "runID"))
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	data := PageData{Title: "Run " + run.RunID, Run: &run, Charts: charts}
	if err := s.templates.Render(w, "run.html", data); err != nil {
		log.Printf("component=web action=render_failed page=run err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// loadRun fetches a run and its charts, mapping errors to HTTP statuses.
func (s *Server) loadRun(runID string) (store.RunRecord, []store.ChartRecord, int, error) {
	run, err := s.history.GetRun(runID)
	if errors.Is(err, store.ErrNotFound) {
		return store.RunRecord{}, nil, http.StatusNotFound, errors.New("run not found")
	}
	if err != nil {
		log.Printf("component=web action=get_run_failed run=%s err=%v", runID, err)
		return store.RunRecord{}, nil, http.StatusInternalServerError, errors.New("load run")
	}
	charts, err := s.history.ListCharts(runID)
	if err != nil {
		log.Printf("component=web action=list_charts_failed run=%s err=%v", runID, err)
		return store.RunRecord{}, nil, http.StatusInternalServerError, errors.New("load charts")
	}
	return run, charts, http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
