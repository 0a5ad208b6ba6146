package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hopguard/hopguard/internal/config"
	"github.com/hopguard/hopguard/internal/fetch"
	"github.com/hopguard/hopguard/internal/httpclient"
)

// setupLogger creates a configured zap logger. Flags take precedence over
// the config file.
func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	lvl := cfg.Logging.Level
	if logLevel != "" {
		lvl = logLevel
	}
	level := zapcore.InfoLevel
	switch lvl {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	out := cfg.Logging.File
	if logFile != "" {
		out = logFile
	}
	if out != "" {
		zcfg.OutputPaths = []string{out}
	}

	return zcfg.Build()
}

// configPaths returns the list of config file paths to search.
func configPaths() []string {
	if cfgFile != "" {
		return []string{cfgFile}
	}
	homeDir, _ := os.UserHomeDir()
	return []string{
		"/etc/hopguard/config.toml",
		filepath.Join(homeDir, ".config", "hopguard", "config.toml"),
	}
}

// loadConfig loads configuration from the first available config file.
func loadConfig() (*config.Config, error) {
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		}
	}
	return config.DefaultConfig(), nil
}

// newFetcher builds a redirect-safe fetcher from config.
func newFetcher(cfg *config.Config, allowPrivate bool, log *zap.Logger) *fetch.Fetcher {
	return fetch.New(nil, fetch.Config{
		Client: httpclient.Config{
			UserAgent: cfg.Outbound.UserAgent,
		},
		MaxRedirects: cfg.Outbound.MaxRedirects,
		AllowPrivate: allowPrivate,
		Timeout:      cfg.Outbound.Timeout(),
	}, log)
}

// startMetrics serves Prometheus metrics when a listen address is set,
// either via flag or config.
func startMetrics(cfg *config.Config, log *zap.Logger) {
	addr := cfg.Metrics.ListenAddr
	if metricsListen != "" {
		addr = metricsListen
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
}
