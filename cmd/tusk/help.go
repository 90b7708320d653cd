// ABOUTME: Help display for the tusk CLI with grouped flags, subcommands, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for reporting which variables are set.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/2389-research/tusk/roster"
)

// printHelp writes the usage message to w.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "tusk %s - live dashboard for a %d-agent analysis pipeline\n", ver, roster.Size())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tusk [flags]                        Stream status lines (default)")
	fmt.Fprintln(w, "  tusk -tui [flags]                   Interactive terminal dashboard")
	fmt.Fprintln(w, "  tusk -web [-addr host:port] [flags]  HTML dashboard with live updates")
	fmt.Fprintln(w, "  tusk chart [-family f] <file>       Normalize a chart payload and print its insight")
	fmt.Fprintln(w, "  tusk replay [-run id] <journal>     Rebuild agent state from a batch journal")
	fmt.Fprintln(w, "  tusk runs [-limit n]                List recorded runs")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Source Flags:")
	fmt.Fprintln(w, "  -status-url <url>     Status endpoint to poll")
	fmt.Fprintln(w, "  -status-file <path>   Status JSON file to poll instead of a URL")
	fmt.Fprintln(w, "  -interval <dur>       Poll interval (default: 1s)")
	fmt.Fprintln(w, "  -timeout <dur>        Per-fetch timeout (default: 10s)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Mode Flags:")
	fmt.Fprintln(w, "  -tui                  Interactive terminal dashboard")
	fmt.Fprintln(w, "  -stream               Inline status lines")
	fmt.Fprintln(w, "  -web                  HTML dashboard")
	fmt.Fprintln(w, "  -addr <addr>          Listen address for -web (default: 127.0.0.1:2389)")
	fmt.Fprintln(w, "  -autostart            Begin polling immediately in -tui and -web")
	fmt.Fprintln(w, "  -auto-stop            Stop streaming once every agent has finished")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "State Flags:")
	fmt.Fprintln(w, "  -config <file>        YAML config file")
	fmt.Fprintln(w, "  -data-dir <dir>       History and journal directory (default: $XDG_DATA_HOME/tusk)")
	fmt.Fprintln(w, "  -journal              Append admitted batches to journal.jsonl")
	fmt.Fprintln(w, "  -no-history           Do not record settled runs")
	fmt.Fprintln(w, "  -verbose              Log every roster decision")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  tusk -status-url http://localhost:8000/api/status")
	fmt.Fprintln(w, "  tusk -tui -autostart -status-file ./status.json")
	fmt.Fprintln(w, "  tusk -web -addr :8080 -journal")
	fmt.Fprintln(w, "  tusk chart -family bar ./revenue.json")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  %-20s %s\n", envStatusURL, envStatus(envStatusURL))
	fmt.Fprintf(w, "  %-20s %s\n", envPollInterval, envStatus(envPollInterval))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Flags override the environment, which overrides the config file.")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
