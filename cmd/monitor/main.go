package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/arbwatch/config"
	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/adapters/notify"
	"github.com/alejandrodnm/arbwatch/internal/adapters/opinion"
	"github.com/alejandrodnm/arbwatch/internal/adapters/polymarket"
	"github.com/alejandrodnm/arbwatch/internal/adapters/storage"
	"github.com/alejandrodnm/arbwatch/internal/metrics"
	"github.com/alejandrodnm/arbwatch/internal/monitor"
	"github.com/alejandrodnm/arbwatch/internal/ports"
	"github.com/alejandrodnm/arbwatch/internal/registry"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	jsonPath := flag.String("json", "", "token mapping file (overrides config)")
	interval := flag.Int("interval", 0, "seconds between cycles (overrides config)")
	deltaCents := flag.Float64("delta-cents", 0, "minimum edge in cents below 1.00 (overrides config)")
	cooldown := flag.Int("cooldown", 0, "seconds between repeat alerts for the same opportunity (overrides config)")
	once := flag.Bool("once", false, "run one cycle and exit")
	workers := flag.Int("workers", 0, "order book fetch workers per venue (overrides config)")
	opQPS := flag.Float64("op-qps", 0, "Opinion request budget in qps (overrides config)")
	pmQPS := flag.Float64("pm-qps", 0, "Polymarket CLOB request budget in qps (overrides config)")
	pmBatch := flag.Bool("pm-batch", true, "fetch Polymarket books in batches")
	minDeploy := flag.Float64("min-deploy-usd", 0, "minimum deployable notional in USD (overrides config)")
	maxDays := flag.Float64("max-days", 0, "maximum days to market resolution (overrides config)")
	history := flag.Duration("history", 0, "print journaled alerts from the last duration and exit (e.g. 24h)")
	table := flag.Bool("table", false, "print alerts as a full table (default: compact 1-line)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	// Precedencia: flags > env > archivo > defaults.
	if *jsonPath != "" {
		cfg.Registry.MappingsFile = *jsonPath
	}
	if *interval > 0 {
		cfg.Monitor.IntervalSeconds = *interval
	}
	if *deltaCents > 0 {
		cfg.Monitor.DeltaCents = *deltaCents
	}
	if *cooldown > 0 {
		cfg.Monitor.CooldownSeconds = *cooldown
	}
	if *workers > 0 {
		cfg.Monitor.Workers = *workers
	}
	if *opQPS > 0 {
		cfg.API.OpinionQPS = *opQPS
	}
	if *pmQPS > 0 {
		cfg.API.PolymarketQPS = *pmQPS
	}
	if *minDeploy > 0 {
		cfg.Monitor.MinDeployUSD = *minDeploy
	}
	if *maxDays > 0 {
		cfg.Monitor.MaxDaysToExpiry = *maxDays
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "pm-batch" {
			cfg.API.Batch = pmBatch
		}
	})
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history > 0 {
		if err := printHistory(ctx, cfg.StorageDSN(), *history); err != nil {
			slog.Error("history listing failed", "err", err)
			os.Exit(1)
		}
		return
	}

	store, err := registry.Load(cfg.Registry.MappingsFile)
	if err != nil {
		slog.Error("failed to load token mappings", "err", err, "path", cfg.Registry.MappingsFile)
		os.Exit(1)
	}

	opClient, err := opinion.NewClient(opinion.Config{
		BaseURL: cfg.API.OpinionBase,
		APIKeys: cfg.API.OpinionAPIKeys,
		Limiter: fetch.LimiterForQPS(cfg.API.OpinionQPS),
		Workers: cfg.Monitor.Workers,
	})
	if err != nil {
		slog.Error("failed to build Opinion client", "err", err)
		os.Exit(1)
	}
	pmClient := polymarket.NewClient(polymarket.Config{
		CLOBBase:     cfg.API.CLOBBase,
		GammaBase:    cfg.API.GammaBase,
		Limiter:      fetch.LimiterForQPS(cfg.API.PolymarketQPS),
		GammaLimiter: fetch.LimiterForQPS(cfg.API.GammaQPS),
		Batch:        cfg.BatchEnabled(),
		Workers:      cfg.Monitor.Workers,
	})

	notifiers := []ports.Notifier{notify.NewConsole(cfg.Notify.ConsoleTable || *table)}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			slog.Warn("telegram notifier disabled", "err", err)
		} else {
			notifiers = append(notifiers, tg)
			slog.Info("telegram notifier enabled")
		}
	}

	var journal ports.Storage
	if dsn := cfg.StorageDSN(); dsn != "" {
		st, err := storage.NewSQLiteStorage(dsn)
		if err != nil {
			slog.Error("failed to open alert journal", "err", err, "dsn", dsn)
			os.Exit(1)
		}
		defer st.Close()
		journal = st
	} else {
		slog.Info("alert journal disabled: empty dsn")
	}

	metrics.Serve(ctx, cfg.Metrics.Addr)

	mon := monitor.New(monitor.Config{
		Interval:        cfg.PollInterval(),
		DeltaCents:      cfg.Monitor.DeltaCents,
		Cooldown:        cfg.CooldownWindow(),
		MinDeployUSD:    cfg.Monitor.MinDeployUSD,
		MaxDaysToExpiry: cfg.Monitor.MaxDaysToExpiry,
		Once:            *once,
	}, store.All(), monitor.Deps{
		Opinion:    opClient,
		Polymarket: pmClient,
		Expiry:     pmClient,
		Notifiers:  notifiers,
		Storage:    journal,
	})
	if mon.Pairs() == 0 {
		slog.Error("no resolved pairs to monitor (run the registry command first)",
			"path", cfg.Registry.MappingsFile)
		os.Exit(1)
	}

	slog.Info("arbwatch starting",
		"config", *configPath,
		"mappings", cfg.Registry.MappingsFile,
		"pairs", mon.Pairs(),
		"interval", cfg.PollInterval(),
		"pm_batch", cfg.BatchEnabled(),
		"once", *once,
	)

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("monitor exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("arbwatch stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
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
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
