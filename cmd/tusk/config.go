// ABOUTME: CLI configuration for tusk: flags, an optional YAML config file, and environment overrides.
// ABOUTME: Precedence from lowest to highest is defaults, config file, environment, explicitly set flags.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/2389-research/tusk/ingest"
	"gopkg.in/yaml.v3"
)

const (
	envStatusURL    = "TUSK_STATUS_URL"
	envPollInterval = "TUSK_POLL_INTERVAL"

	defaultAddr = "127.0.0.1:2389"
)

// config holds all CLI configuration for the dashboard modes.
type config struct {
	statusURL   string
	statusFile  string
	interval    time.Duration
	timeout     time.Duration
	configFile  string
	dataDir     string
	addr        string
	tuiMode     bool
	streamMode  bool
	webMode     bool
	autostart   bool
	autoStop    bool
	verbose     bool
	journal     bool
	noHistory   bool
	showVersion bool
}

// fileConfig is the YAML config file shape. Durations are Go duration
// strings such as "500ms" or "2s".
type fileConfig struct {
	StatusURL  string `yaml:"status_url"`
	StatusFile string `yaml:"status_file"`
	Interval   string `yaml:"interval"`
	Timeout    string `yaml:"timeout"`
	DataDir    string `yaml:"data_dir"`
	Addr       string `yaml:"addr"`
	Mode       string `yaml:"mode"`
	Autostart  *bool  `yaml:"autostart"`
	AutoStop   *bool  `yaml:"auto_stop"`
	Verbose    *bool  `yaml:"verbose"`
	Journal    *bool  `yaml:"journal"`
	History    *bool  `yaml:"history"`
}

// parseFlags parses args (without the program name) into a config, layering
// the config file and environment underneath any flag the user set.
func parseFlags(args []string, getenv func(string) string, stderr io.Writer) (config, error) {
	var cfg config

	fs := flag.NewFlagSet("tusk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.statusURL, "status-url", "", "Status endpoint to poll (env: "+envStatusURL+")")
	fs.StringVar(&cfg.statusFile, "status-file", "", "Status JSON file to poll instead of a URL")
	fs.DurationVar(&cfg.interval, "interval", ingest.DefaultInterval, "Poll interval (env: "+envPollInterval+")")
	fs.DurationVar(&cfg.timeout, "timeout", ingest.DefaultTimeout, "Per-fetch timeout")
	fs.StringVar(&cfg.configFile, "config", "", "YAML config file")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for history and journal (default: $XDG_DATA_HOME/tusk)")
	fs.StringVar(&cfg.addr, "addr", defaultAddr, "Listen address for -web")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Run the interactive terminal dashboard")
	fs.BoolVar(&cfg.streamMode, "stream", false, "Stream status lines inline (default mode)")
	fs.BoolVar(&cfg.webMode, "web", false, "Serve the HTML dashboard")
	fs.BoolVar(&cfg.autostart, "autostart", false, "Begin polling immediately in -tui and -web")
	fs.BoolVar(&cfg.autoStop, "auto-stop", false, "In stream mode, stop once every agent has finished")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Log every roster decision")
	fs.BoolVar(&cfg.journal, "journal", false, "Append admitted batches to a JSONL journal in the data dir")
	fs.BoolVar(&cfg.noHistory, "no-history", false, "Do not record settled runs in SQLite")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() > 0 {
		return config{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if cfg.configFile != "" {
		fc, err := loadConfigFile(cfg.configFile)
		if err != nil {
			return config{}, err
		}
		if err := cfg.applyFile(fc, set); err != nil {
			return config{}, fmt.Errorf("config file %s: %w", cfg.configFile, err)
		}
	}
	if err := cfg.applyEnv(getenv, set); err != nil {
		return config{}, err
	}

	if cfg.interval <= 0 {
		return config{}, fmt.Errorf("interval must be positive, got %s", cfg.interval)
	}
	if cfg.timeout <= 0 {
		return config{}, fmt.Errorf("timeout must be positive, got %s", cfg.timeout)
	}
	return cfg, nil
}

// loadConfigFile reads and decodes a YAML config file. Unknown keys are
// rejected so typos surface instead of being ignored.
func loadConfigFile(path string) (fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("decode config file: %w", err)
	}
	return fc, nil
}

func (c *config) applyFile(fc fileConfig, set map[string]bool) error {
	setString(&c.statusURL, fc.StatusURL, set["status-url"])
	setString(&c.statusFile, fc.StatusFile, set["status-file"])
	setString(&c.dataDir, fc.DataDir, set["data-dir"])
	setString(&c.addr, fc.Addr, set["addr"])
	if err := setDuration(&c.interval, fc.Interval, set["interval"]); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if err := setDuration(&c.timeout, fc.Timeout, set["timeout"]); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	setBool(&c.autostart, fc.Autostart, set["autostart"])
	setBool(&c.autoStop, fc.AutoStop, set["auto-stop"])
	setBool(&c.verbose, fc.Verbose, set["verbose"])
	setBool(&c.journal, fc.Journal, set["journal"])
	if fc.History != nil && !set["no-history"] {
		c.noHistory = !*fc.History
	}

	if fc.Mode != "" && !set["tui"] && !set["stream"] && !set["web"] {
		switch strings.ToLower(fc.Mode) {
		case "tui":
			c.tuiMode = true
		case "stream":
			c.streamMode = true
		case "web":
			c.webMode = true
		default:
			return fmt.Errorf("unknown mode %q (want tui, stream or web)", fc.Mode)
		}
	}
	return nil
}

func (c *config) applyEnv(getenv func(string) string, set map[string]bool) error {
	setString(&c.statusURL, getenv(envStatusURL), set["status-url"])
	if err := setDuration(&c.interval, getenv(envPollInterval), set["interval"]); err != nil {
		return fmt.Errorf("%s: %w", envPollInterval, err)
	}
	return nil
}

func setString(dst *string, v string, flagSet bool) {
	if flagSet || v == "" {
		return
	}
	*dst = v
}

func setBool(dst *bool, v *bool, flagSet bool) {
	if flagSet || v == nil {
		return
	}
	*dst = *v
}

func setDuration(dst *time.Duration, v string, flagSet bool) error {
	if flagSet || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*dst = d
	return nil
}

// mode names the presentation the config selects. Web wins over tui, and
// stream is the default.
func (c config) mode() string {
	switch {
	case c.webMode:
		return "web"
	case c.tuiMode:
		return "tui"
	default:
		return "stream"
	}
}

// source builds the status source. A URL takes precedence over a file.
func (c config) source() (ingest.Source, error) {
	switch {
	case c.statusURL != "":
		return ingest.NewHTTPSource(c.statusURL, c.timeout), nil
	case c.statusFile != "":
		return ingest.FileSource{Path: c.statusFile}, nil
	default:
		return nil, fmt.Errorf("no status source: set -status-url, -status-file or %s", envStatusURL)
	}
}
