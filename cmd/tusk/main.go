// ABOUTME: CLI entrypoint for tusk with stream, tui, and web dashboard modes plus offline subcommands.
// ABOUTME: Wires the status source, board, history, journal and signal handling together.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
	"github.com/2389-research/tusk/tui"
	"github.com/2389-research/tusk/web"

	tea "github.com/charmbracelet/bubbletea"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	loadDotEnvAuto()

	args := os.Args[1:]
	if code, ok := runSubcommand(args, os.Stdout, os.Stderr); ok {
		os.Exit(code)
	}

	cfg, err := parseFlags(args, os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if cfg.showVersion {
		fmt.Printf("tusk %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// session is everything a dashboard mode needs, built once from the config.
type session struct {
	cfg      config
	source   ingest.Source
	board    *board.Board
	sink     ingest.Sink
	history  *store.History
	journal  *store.Journal
	dataDir  string
	recorder recorder
}

// openSession resolves the source and data dir and opens the optional
// history and journal. History failures degrade to no history.
func openSession(cfg config, stderr io.Writer) (*session, error) {
	src, err := cfg.source()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, source: src}
	s.board = board.New(board.WithRosterOptions(roster.WithVerbose(cfg.verbose)))
	s.sink = s.board

	dataDir, err := resolveDataDir(cfg.dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "warning: could not resolve data dir: %v\n", err)
	} else {
		s.dataDir = dataDir
	}

	if s.dataDir != "" && !cfg.noHistory {
		h, err := store.OpenSqlite(filepath.Join(s.dataDir, historyFile))
		if err != nil {
			fmt.Fprintf(stderr, "warning: run history disabled: %v\n", err)
		} else {
			s.history = h
		}
	}

	if cfg.journal {
		if s.dataDir == "" {
			return nil, errors.New("journal requires a data dir")
		}
		j, err := store.OpenJournal(filepath.Join(s.dataDir, journalFile))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.journal = j
		s.sink = newJournalSink(s.board, j)
	}

	s.recorder = recorder{history: s.history, board: s.board}
	return s, nil
}

// Close releases the history and journal.
func (s *session) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			log.Printf("component=cli action=close_journal err=%v", err)
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Printf("component=cli action=close_history err=%v", err)
		}
	}
}

// appConfig builds the terminal model config for the session.
func (s *session) appConfig() tui.AppConfig {
	return tui.AppConfig{
		Source:    s.source,
		Interval:  s.cfg.interval,
		Timeout:   s.cfg.timeout,
		Sink:      s.sink,
		AutoStart: s.cfg.autostart,
		OnSettle:  s.recorder.saveRun,
		OnChart:   s.recorder.saveChart,
	}
}

// webHistory returns the history as a web.RunHistory, or nil when history
// is disabled.
func (s *session) webHistory() web.RunHistory {
	if s.history == nil {
		return nil
	}
	return s.history
}

// recorder persists settled runs and loaded charts, tagging charts with the
// board's current run. A nil history turns every call into a no-op.
type recorder struct {
	history *store.History
	board   *board.Board
}

func (r recorder) saveRun(v board.View) {
	if r.history == nil {
		return
	}
	rec, err := store.RunFromView(v)
	if err == nil {
		err = r.history.SaveRun(rec)
	}
	if err != nil {
		log.Printf("component=cli action=save_run_failed run=%s err=%v", v.RunID, err)
		return
	}
	log.Printf("component=cli action=save_run run=%s failures=%d", rec.RunID, rec.Failures)
}

func (r recorder) saveChart(cv board.ChartView, payload []byte) {
	if r.history == nil {
		return
	}
	var runID string
	if r.board != nil {
		runID = r.board.View().RunID
	}
	rec, err := store.ChartFromView(cv, runID, payload)
	if err == nil {
		err = r.history.SaveChart(rec)
	}
	if err != nil {
		log.Printf("component=cli action=save_chart_failed chart=%s err=%v", cv.ID, err)
	}
}

// run dispatches to the selected mode and returns an exit code.
func run(cfg config) int {
	s, err := openSession(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.mode() {
	case "web":
		return runWeb(ctx, s)
	case "tui":
		return runTUI(ctx, s)
	default:
		return runStream(ctx, s)
	}
}

// runWeb polls on an ingest.Loop and serves the dashboard until ctx ends.
func runWeb(ctx context.Context, s *session) int {
	loop := ingest.NewLoop(s.source, s.sink,
		ingest.WithInterval(s.cfg.interval),
		ingest.WithTimeout(s.cfg.timeout),
		ingest.WithOnSettle(func() {
			s.recorder.saveRun(s.board.EndRun())
		}),
	)

	srv, err := web.NewServer(web.ServerConfig{
		Addr:    s.cfg.addr,
		Board:   s.board,
		Control: loop,
		History: s.webHistory(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	fmt.Fprintf(os.Stderr, "tusk dashboard listening on %s\n", s.cfg.addr)
	if s.cfg.autostart {
		if err := loop.Start(); err != nil {
			log.Printf("component=cli action=autostart_failed err=%v", err)
		}
	}

	code := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("component=cli action=shutdown err=%v", err)
	}
	cancelLoop()
	<-loopDone
	return code
}

// runTUI runs the full-screen dashboard.
func runTUI(ctx context.Context, s *session) int {
	closeLog := redirectLog(s.dataDir)
	defer closeLog()

	m := tui.NewAppModel(ctx, s.board, s.appConfig())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// runStream runs the inline status view and reports whether any agent
// errored through the exit code.
func runStream(ctx context.Context, s *session) int {
	closeLog := redirectLog(s.dataDir)
	defer closeLog()

	var opts []tui.StreamOption
	if s.cfg.autoStop {
		opts = append(opts, tui.WithAutoStop())
	}
	m := tui.NewStreamModel(ctx, s.board, s.appConfig(), opts...)
	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if s.board.View().Counts()[roster.StatusError] > 0 {
		return 1
	}
	return 0
}

// redirectLog sends the standard logger to a file in the data dir so log
// lines do not corrupt the terminal UI. Without a data dir logging is
// discarded.
func redirectLog(dataDir string) func() {
	if dataDir == "" {
		log.SetOutput(io.Discard)
		return func() {}
	}
	f, err := tea.LogToFile(filepath.Join(dataDir, logFile), "tusk")
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}
	return func() { _ = f.Close() }
}
