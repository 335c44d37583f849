// Package config loads the crawler's runtime settings from the environment.
// CRAWLER_ENV_FILE names an optional .env, .json or .yaml file whose values
// fill in whatever the process environment leaves unset.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/amp-labs/statecrawler/envutil"
	"github.com/amp-labs/statecrawler/logger"
)

// Environment variables read by Load.
const (
	EnvStateFile   = "CRAWLER_STATE_FILE"
	EnvConcurrency = "CRAWLER_CONCURRENCY"
	EnvBaseURL     = "CRAWLER_BASE_URL"
	EnvPattern     = "CRAWLER_PATTERN"
	EnvFull        = "CRAWLER_FULL"
	EnvDebug       = "CRAWLER_DEBUG"
	EnvEnvFile     = "CRAWLER_ENV_FILE"
	EnvWorkDir     = "CRAWLER_WORK_DIR"
	EnvTimeout     = "CRAWLER_HTTP_TIMEOUT"
	EnvInsecure    = "CRAWLER_INSECURE_TLS"
	EnvReportDir   = "CRAWLER_REPORT_DIR"
)

const (
	DefaultStateFile   = ".statecrawler-state"
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
)

var (
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
	ErrInvalidTimeout     = errors.New("timeout must be positive")
)

// Settings are the crawler's runtime settings. Command-line flags override
// them field by field.
type Settings struct {
	// StateFile is where the last state is persisted between runs.
	StateFile string
	// Concurrency bounds how many declarations verify at once.
	Concurrency int
	// BaseURL enables the HTTP binding when set.
	BaseURL *url.URL
	// Pattern filters the states verified by full name.
	Pattern string
	// Full exercises every transition, not only every state.
	Full bool
	// Debug prints a marker for every step.
	Debug bool
	// WorkDir is the working directory of exec actions.
	WorkDir string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// InsecureTLS skips certificate verification.
	InsecureTLS bool
	// ReportDir, when set, receives one JSON report per declaration.
	ReportDir string
	// EnvFile is the file the settings were completed from, if any.
	EnvFile string
}

// Load reads the settings, applying CRAWLER_ENV_FILE first.
func Load(ctx context.Context) (*Settings, error) {
	envFile := envutil.String(ctx, EnvEnvFile, envutil.Default("")).ValueOrElse("")
	if envFile != "" {
		applied, err := envutil.ApplyEnvFile(envFile)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", EnvEnvFile, err)
		}

		logger.Get(ctx).Debug("Applied environment file", "path", envFile, "keys", applied)
	}

	concurrency, err := envutil.Int(ctx, EnvConcurrency,
		envutil.Default(DefaultConcurrency),
		envutil.Validate(func(n int) error {
			if n < 1 {
				return fmt.Errorf("%w: %d", ErrInvalidConcurrency, n)
			}

			return nil
		})).Value()
	if err != nil {
		return nil, err
	}

	timeout, err := envutil.Duration(ctx, EnvTimeout,
		envutil.Default(DefaultTimeout),
		envutil.Validate(func(d time.Duration) error {
			if d <= 0 {
				return fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
			}

			return nil
		})).Value()
	if err != nil {
		return nil, err
	}

	baseURL, err := envutil.URL(ctx, EnvBaseURL, envutil.Default[*url.URL](nil)).Value()
	if err != nil {
		return nil, err
	}

	pattern, err := envutil.String(ctx, EnvPattern,
		envutil.Default(""),
		envutil.Validate(func(p string) error {
			_, err := regexp.Compile(p)

			return err
		})).Value()
	if err != nil {
		return nil, err
	}

	full, err := envutil.Bool(ctx, EnvFull, envutil.Default(false)).Value()
	if err != nil {
		return nil, err
	}

	debug, err := envutil.Bool(ctx, EnvDebug, envutil.Default(false)).Value()
	if err != nil {
		return nil, err
	}

	insecure, err := envutil.Bool(ctx, EnvInsecure, envutil.Default(false)).Value()
	if err != nil {
		return nil, err
	}

	return &Settings{
		StateFile:   envutil.String(ctx, EnvStateFile, envutil.Default(DefaultStateFile)).ValueOrElse(DefaultStateFile),
		Concurrency: concurrency,
		BaseURL:     baseURL,
		Pattern:     pattern,
		Full:        full,
		Debug:       debug,
		WorkDir:     envutil.String(ctx, EnvWorkDir, envutil.Default("")).ValueOrElse(""),
		Timeout:     timeout,
		InsecureTLS: insecure,
		ReportDir:   envutil.String(ctx, EnvReportDir, envutil.Default("")).ValueOrElse(""),
		EnvFile:     envFile,
	}, nil
}

// LogValue implements slog.LogValuer.
func (s *Settings) LogValue() slog.Value {
	baseURL := ""
	if s.BaseURL != nil {
		baseURL = s.BaseURL.Redacted()
	}

	return slog.GroupValue(
		slog.String("state_file", s.StateFile),
		slog.Int("concurrency", s.Concurrency),
		slog.String("base_url", baseURL),
		slog.String("pattern", s.Pattern),
		slog.Bool("full", s.Full),
		slog.Bool("debug", s.Debug),
		slog.String("work_dir", s.WorkDir),
		slog.Duration("timeout", s.Timeout),
		slog.Bool("insecure_tls", s.InsecureTLS),
		slog.String("report_dir", s.ReportDir),
	)
}
