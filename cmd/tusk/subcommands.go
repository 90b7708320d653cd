// ABOUTME: Offline subcommands: chart normalizes a payload file, replay rebuilds state from a journal, runs lists history.
// ABOUTME: Each subcommand parses its own flag set and writes plain tables through lipgloss/table.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/insight"
	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
	"github.com/charmbracelet/lipgloss/table"
)

const timeFormat = "2006-01-02 15:04:05"

// runSubcommand runs args as a subcommand when args[0] names one. It
// reports false when args is not a subcommand invocation.
func runSubcommand(args []string, stdout, stderr io.Writer) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	var code int
	switch args[0] {
	case "chart":
		code = runChart(args[1:], stdout, stderr)
	case "replay":
		code = runReplay(args[1:], stdout, stderr)
	case "runs":
		code = runRuns(args[1:], stdout, stderr)
	default:
		return 0, false
	}
	return code, true
}

// subcommandFlags builds a flag set whose usage line names the subcommand.
func subcommandFlags(name, usage string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("tusk "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tusk %s %s\n\n", name, usage)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
	}
	return fs
}

// parseExit maps a flag parse error to an exit code.
func parseExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

// runChart normalizes a chart payload file and prints its records and
// insight. An unsupported payload exits 1.
func runChart(args []string, stdout, stderr io.Writer) int {
	fs := subcommandFlags("chart", "[-family bar|line|area|pie|scatter|table] <file>", stderr)
	familyFlag := fs.String("family", "", "Chart family (default: detect from the payload)")
	if err := fs.Parse(args); err != nil {
		return parseExit(err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	payload, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	family, ok := chart.ParseFamily(*familyFlag)
	switch {
	case *familyFlag != "" && !ok:
		fmt.Fprintf(stderr, "error: unknown chart family %q\n", *familyFlag)
		return 2
	case *familyFlag == "":
		if family, ok = chart.DetectFamily(payload); !ok {
			fmt.Fprintln(stderr, "error: could not detect a chart family; pass -family")
			return 1
		}
	}

	cv := board.BuildChart(payload, family)
	fmt.Fprintf(stdout, "family: %s\n", cv.Family)
	if cv.Unsupported {
		fmt.Fprintln(stdout, cv.Message)
		return 1
	}
	fmt.Fprintln(stdout, recordsTable(cv.Records))
	for _, line := range cv.Insight {
		fmt.Fprintf(stdout, "- %s\n", line)
	}
	return 0
}

// recordsTable renders normalized records of any kind.
func recordsTable(records []chart.Record) string {
	t := table.New()
	if tr, ok := chart.Table(records); ok {
		t.Headers(tr.Columns...)
		for _, row := range tr.Rows {
			cells := make([]string, len(tr.Columns))
			for i, col := range tr.Columns {
				cells[i] = cell(row[col])
			}
			t.Row(cells...)
		}
		return t.Render()
	}
	if pts := chart.Points(records); len(pts) > 0 {
		t.Headers("x", "y")
		for _, p := range pts {
			t.Row(insight.FormatNumber(p.X), insight.FormatNumber(p.Y))
		}
		return t.Render()
	}
	t.Headers("label", "value")
	for _, c := range chart.Categorical(records) {
		t.Row(c.Label, insight.FormatNumber(c.Value))
	}
	return t.Render()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return insight.FormatNumber(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// runReplay rebuilds the roster from a journal and prints the final slots.
func runReplay(args []string, stdout, stderr io.Writer) int {
	fs := subcommandFlags("replay", "[-run id] [-repair] <journal>", stderr)
	runID := fs.String("run", "", "Only replay batches from this run")
	repair := fs.Bool("repair", false, "Drop truncated or malformed lines before replaying")
	if err := fs.Parse(args); err != nil {
		return parseExit(err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	path := fs.Arg(0)

	if *repair {
		kept, err := store.RepairJournal(path)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "repaired journal: %d batches kept\n", kept)
	}

	batches, err := store.ReplayJournal(path)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	r, tally := store.Rebuild(batches, *runID)
	fmt.Fprintln(stdout, slotsTable(r.Snapshot()))
	fmt.Fprintf(stdout, "batches=%d accepted=%d duplicate=%d rejected=%d unresolved=%d\n",
		len(batches), tally.Accepted, tally.Duplicate, tally.Rejected, tally.Unresolved)
	return 0
}

func slotsTable(slots []roster.AgentSlot) string {
	t := table.New().Headers("agent", "status", "progress", "message")
	for _, s := range slots {
		t.Row(s.DisplayName, s.Status.String(), strconv.Itoa(s.Progress)+"%", s.Message)
	}
	return t.Render()
}

// runRuns lists the most recent recorded runs.
func runRuns(args []string, stdout, stderr io.Writer) int {
	fs := subcommandFlags("runs", "[-limit n] [-data-dir dir]", stderr)
	limit := fs.Int("limit", 20, "Maximum runs to list")
	dataDir := fs.String("data-dir", "", "Data directory (default: $XDG_DATA_HOME/tusk)")
	if err := fs.Parse(args); err != nil {
		return parseExit(err)
	}

	dir, err := resolveDataDir(*dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	h, err := store.OpenSqlite(filepath.Join(dir, historyFile))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer h.Close()

	runs, err := h.ListRuns(*limit)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return 0
	}

	t := table.New().Headers("run", "started", "duration", "complete", "errored", "failures")
	for _, r := range runs {
		t.Row(
			r.RunID,
			r.StartedAt.Local().Format(timeFormat),
			r.SettledAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			fmt.Sprintf("%d/%d", r.Complete, roster.Size()),
			strconv.Itoa(r.Errored),
			strconv.Itoa(r.Failures),
		)
	}
	fmt.Fprintln(stdout, t.Render())
	return 0
}
