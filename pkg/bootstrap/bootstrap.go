// Package bootstrap wires configuration, logging and error reporting for
// every command. Nothing here is a process-wide singleton: callers receive
// a *Service and pass it down explicitly.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// Config holds standard configuration for all commands.
type Config struct {
	StravaClientID     string
	StravaClientSecret string
	DataDir            string
	OAuthListenAddr    string
	SentryDSN          string
	RateLimit          int
	RateInterval       time.Duration
}

// Service holds initialized dependencies.
type Service struct {
	Config *Config
	Logger *slog.Logger

	sentryEnabled bool
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	dataDir := os.Getenv("STRAVANATOR_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	listenAddr := os.Getenv("STRAVANATOR_OAUTH_ADDR")
	if listenAddr == "" {
		listenAddr = "localhost:5000"
	}

	// Strava allows 100 non-download requests per 15 minute window.
	rateLimit := 100
	if v, err := strconv.Atoi(os.Getenv("STRAVANATOR_RATE_LIMIT")); err == nil && v > 0 {
		rateLimit = v
	}
	rateInterval := 15 * time.Minute
	if v, err := strconv.Atoi(os.Getenv("STRAVANATOR_RATE_INTERVAL_MINUTES")); err == nil && v > 0 {
		rateInterval = time.Duration(v) * time.Minute
	}

	return &Config{
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		DataDir:            dataDir,
		OAuthListenAddr:    listenAddr,
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		RateLimit:          rateLimit,
		RateInterval:       rateInterval,
	}
}

// NewLogger creates a configured logger instance. LOG_FORMAT=json selects
// the JSON handler; the default text handler suits interactive runs.
func NewLogger(serviceName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler).With("service", serviceName)
}

// NewService initializes all standard dependencies for one run.
func NewService(serviceName string) (*Service, error) {
	cfg := LoadConfig()
	logger := NewLogger(serviceName).With("run_id", uuid.NewString())

	svc := &Service{Config: cfg, Logger: logger}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:        cfg.SentryDSN,
			ServerName: serviceName,
		})
		if err != nil {
			return nil, fmt.Errorf("sentry init: %w", err)
		}
		svc.sentryEnabled = true
		logger.Info("Sentry initialized")
	} else {
		logger.Debug("Sentry DSN not configured - error tracking disabled")
	}

	return svc, nil
}

// CaptureError reports an error to Sentry when configured. Always safe to
// call; a nil error is ignored.
func (s *Service) CaptureError(err error) {
	if err == nil || !s.sentryEnabled {
		return
	}
	sentry.CaptureException(err)
}

// Close flushes any buffered error reports.
func (s *Service) Close() {
	if s.sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}
