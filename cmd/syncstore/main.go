/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command syncstore is a small demo harness for the syncstore library.
// It wires an order store to one of the persistence backends, applies a
// few mutations, and shows the synchronized state surviving restarts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suparena/syncstore"
	"github.com/suparena/syncstore/logging"
	"github.com/suparena/syncstore/persist"
	"github.com/suparena/syncstore/persist/ddb"
	"github.com/suparena/syncstore/persist/jsonfile"
	"github.com/suparena/syncstore/persist/pebbledb"
	"github.com/suparena/syncstore/storagemodels"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "syncstore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "syncstore.yaml", "Path to YAML config file")
	dataDir := flag.String("data-dir", "", "Data directory (overrides config)")
	backend := flag.String("backend", "", "Persistence backend: json, pebble or dynamodb (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	metricsAddr := flag.String("metrics", "", "Address to serve Prometheus metrics on, e.g. :9090 (overrides config)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *versionFlag || *vFlag {
		info := syncstore.GetVersionInfo()
		fmt.Printf("syncstore version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		return nil
	}

	// .env carries AWS credentials for the DynamoDB backend; absence is
	// fine for the local backends.
	_ = godotenv.Load()

	explicitConfig := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicitConfig = true
		}
	})
	cfg, err := loadConfig(*configPath, explicitConfig)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger := initLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	log := logging.NewSlog(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	promReg := prometheus.NewRegistry()
	strategy, err := buildStrategy(cfg, log, promReg)
	if err != nil {
		return err
	}

	metrics := syncstore.NewMetrics("orders")
	metrics.MustRegister(promReg)

	orders := syncstore.NewSyncedStore(
		syncstore.NewIdentifiedStore[*storagemodels.Order](),
		strategy,
		syncstore.WithLogger[*storagemodels.Order](log),
		syncstore.WithMetrics[*storagemodels.Order](metrics),
		syncstore.WithSaveErrorHook[*storagemodels.Order](func(err error) {
			slog.Warn("order save failed", "err", err)
		}),
	)

	registry := syncstore.NewRegistry()
	if err := syncstore.RegisterSynced(registry, orders); err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Error("registry close", "err", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, promReg)
	}

	if err := orders.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize orders: %w", err)
	}
	slog.Info("orders loaded", "count", orders.Len(), "backend", cfg.Backend)

	// Demo mutations: one new order per run, and the oldest open order
	// advances a state. Both changes persist through the synchronizer.
	order := storagemodels.NewOrder(uuid.NewString(), 99.50)
	if err := orders.Add(order); err != nil {
		return fmt.Errorf("add order: %w", err)
	}
	for _, o := range orders.Snapshot() {
		if o.Status == "open" && o != order {
			o.SetStatus("shipped")
			break
		}
	}

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := orders.Flush(flushCtx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	for _, o := range orders.Snapshot() {
		slog.Info("order", "id", o.ID, "number", o.Number, "status", o.Status, "total", o.Total)
	}
	return nil
}

// buildStrategy picks the persistence backend from the config. The
// synchronizer owns the strategy and closes it on shutdown.
func buildStrategy(cfg Config, log logging.Logger, promReg *prometheus.Registry) (persist.Strategy[*storagemodels.Order], error) {
	switch cfg.Backend {
	case "json":
		return jsonfile.New[*storagemodels.Order](
			filepath.Join(cfg.DataDir, "orders.json"),
			jsonfile.WithLogger[*storagemodels.Order](log),
		)

	case "pebble":
		s, err := pebbledb.Open[*storagemodels.Order](
			filepath.Join(cfg.DataDir, "syncstore.pebble"), "orders",
			pebbledb.WithLogger[*storagemodels.Order](log),
		)
		if err != nil {
			return nil, err
		}
		promReg.MustRegister(pebbledb.NewCollector(s.DB()))
		return s, nil

	case "dynamodb":
		if cfg.DynamoDB.TableName == "" {
			return nil, fmt.Errorf("dynamodb backend requires a table name")
		}
		return ddb.New[*storagemodels.Order](
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			cfg.DynamoDB.Region,
			cfg.DynamoDB.TableName,
			"orders",
			ddb.WithLogger[*storagemodels.Order](log),
		)

	default:
		return nil, fmt.Errorf("unknown backend %q (want json, pebble or dynamodb)", cfg.Backend)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server", "err", err)
	}
}

func initLogger(level string) *slog.Logger {
	ll := &slog.LevelVar{}
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		ll.Set(slog.LevelInfo)
	}
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}
