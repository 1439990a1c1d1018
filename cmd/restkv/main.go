package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"restkv/internal/config"
	"restkv/internal/httpapi"
	"restkv/internal/kv"
	"restkv/internal/logging"
	boltstore "restkv/internal/store/bolt"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dbPath := flag.String("db", "", "database file (overrides config)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	readOnly := flag.Bool("read-only", false, "open the database read-only")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	flag.Parse()

	// Load config (TOML file with defaults)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// CLI flags override config file values
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *readOnly {
		cfg.Store.ReadOnly = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.For("main")

	cfg.Store.Path = config.ExpandHome(cfg.Store.Path)
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0700); err != nil {
		fatal(logger, "creating data dir", err)
	}

	st, err := boltstore.OpenWithOptions(cfg.Store.Path, boltstore.Options{
		ReadOnly:      cfg.Store.ReadOnly,
		NoSync:        cfg.Store.NoSync,
		FlushInterval: cfg.Store.FlushInterval.Duration,
		Timeout:       cfg.Store.OpenTimeout.Duration,
	})
	if err != nil {
		fatal(logger, "opening store", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing store", "err", err)
		}
	}()
	if cfg.Store.NoSync {
		logger.Warn("no_sync enabled: a power loss between flushes can corrupt the database",
			"flush_interval", cfg.Store.FlushInterval.String())
	}
	if err := st.EnsureBuckets(kv.TokenBucket, kv.ValueBucket); err != nil {
		_ = st.Close()
		fatal(logger, "preparing buckets", err)
	}

	svc := kv.New(st, kv.Options{
		MaxAttempts:   cfg.Tokens.MaxAttempts,
		FailOpen:      cfg.Tokens.FailOpen,
		SubstringKeys: cfg.Keys.SubstringMatch,
	})
	if cfg.Tokens.FailOpen {
		logger.Info("token checks fail open: a storage outage makes every token look valid")
	}

	srv := httpapi.NewServer(cfg.Server.Listen, svc, httpapi.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		NewTokenRate: cfg.Server.NewTokenRate,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start(ctx) }()

	logger.Info("serving", "addr", cfg.Server.Listen, "db", cfg.Store.Path, "read_only", cfg.Store.ReadOnly)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			cancel()
			srv.Stop()
			_ = st.Close()
			fatal(logger, "http server stopped", err)
		}
	}

	cancel()
	srv.Stop()
	logger.Info("stopped", "stats", svc.Stats.Stats().String(), "fallback_checks", svc.Tokens.FallbackCount())
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
