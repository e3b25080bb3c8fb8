package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/arbwatch/config"
	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/adapters/opinion"
	"github.com/alejandrodnm/arbwatch/internal/adapters/polymarket"
	"github.com/alejandrodnm/arbwatch/internal/domain"
	"github.com/alejandrodnm/arbwatch/internal/registry"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	outPath := flag.String("out", "", "token mapping file to write (overrides config)")
	workers := flag.Int("workers", 0, "parallel pair resolutions (overrides config)")
	opInterval := flag.Duration("opinion-interval", 0, "minimum spacing between Opinion requests (overrides config)")
	gammaInterval := flag.Duration("gamma-interval", 0, "minimum spacing between Gamma requests (overrides config)")
	retries := flag.Int("retries", 0, "retries per venue call (overrides config)")
	backoff := flag.Duration("backoff", 0, "base retry backoff (overrides config)")
	refresh := flag.Bool("refresh", false, "re-resolve every pair ignoring the cache")
	keepExpired := flag.Bool("keep-expired", false, "keep mappings whose market already resolved")
	expiryGrace := flag.Float64("expiry-grace-hours", 0, "hours an expired mapping survives pruning (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	// Precedencia: flags > env > archivo > defaults.
	if *outPath != "" {
		cfg.Registry.MappingsFile = *outPath
	}
	if *workers > 0 {
		cfg.Registry.Workers = *workers
	}
	if *opInterval > 0 {
		cfg.Registry.OpinionIntervalMS = int(opInterval.Milliseconds())
	}
	if *gammaInterval > 0 {
		cfg.Registry.GammaIntervalMS = int(gammaInterval.Milliseconds())
	}
	if *retries > 0 {
		cfg.Registry.Retries = *retries
	}
	if *backoff > 0 {
		cfg.Registry.BackoffMS = int(backoff.Milliseconds())
	}
	if *expiryGrace > 0 {
		cfg.Registry.ExpiryGraceHours = *expiryGrace
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	pairs := cfg.Pairs()
	if len(pairs) == 0 {
		slog.Error("no pairs configured", "config", *configPath)
		os.Exit(1)
	}

	store, err := registry.Open(cfg.Registry.MappingsFile)
	if err != nil {
		slog.Error("failed to open mapping store", "err", err, "path", cfg.Registry.MappingsFile)
		os.Exit(1)
	}

	policy := fetch.Policy{
		Retries: cfg.Registry.Retries,
		Backoff: cfg.RegistryBackoff(),
	}
	opClient, err := opinion.NewClient(opinion.Config{
		BaseURL: cfg.API.OpinionBase,
		APIKeys: cfg.API.OpinionAPIKeys,
		Limiter: fetch.LimiterForInterval(cfg.OpinionInterval()),
		Policy:  policy,
	})
	if err != nil {
		slog.Error("failed to build Opinion client", "err", err)
		os.Exit(1)
	}
	pmClient := polymarket.NewClient(polymarket.Config{
		CLOBBase:     cfg.API.CLOBBase,
		GammaBase:    cfg.API.GammaBase,
		Limiter:      fetch.LimiterForQPS(cfg.API.PolymarketQPS),
		GammaLimiter: fetch.LimiterForInterval(cfg.GammaInterval()),
		Policy:       policy,
	})

	slog.Info("registry build starting",
		"pairs", len(pairs),
		"out", cfg.Registry.MappingsFile,
		"workers", cfg.Registry.Workers,
		"refresh", *refresh,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	resolver := registry.NewResolver(store, opClient, pmClient, cfg.Registry.Workers)
	summary := resolver.BuildAll(ctx, pairs, *refresh)

	var pruned []string
	if !*keepExpired {
		pruned = store.Prune(time.Now().UTC(), cfg.ExpiryGrace())
		for _, name := range pruned {
			slog.Info("pruned expired mapping", "pair", name)
		}
	}

	if err := store.Save(); err != nil {
		slog.Error("failed to save mapping store", "err", err, "path", cfg.Registry.MappingsFile)
		os.Exit(1)
	}

	printSummary(store, pairs, summary, pruned)
	slog.Info("registry build complete",
		"resolved", summary.Resolved,
		"cached", summary.Cached,
		"stale_kept", summary.KeptStale,
		"failed", summary.Failed,
		"pruned", len(pruned),
		"stored", store.Len(),
	)

	if summary.Failed > 0 && summary.Resolved+summary.Cached+summary.KeptStale == 0 {
		os.Exit(1)
	}
}

// printSummary imprime el estado final de cada par configurado.
func printSummary(store *registry.Store, pairs []domain.MarketPair, sum registry.BuildSummary, pruned []string) {
	prunedSet := make(map[string]bool, len(pruned))
	for _, name := range pruned {
		prunedSet[name] = true
	}

	fmt.Printf("\nresolved %d/%d pairs (%d fresh, %d cached, %d stale kept, %d failed, %d pruned)\n",
		sum.Resolved+sum.Cached+sum.KeptStale, sum.Pairs,
		sum.Resolved, sum.Cached, sum.KeptStale, sum.Failed, len(pruned))

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Pair", "Type", "Status", "Outcomes", "End date")
	for _, p := range pairs {
		status, outcomes, end := "unresolved", "-", "-"
		if prunedSet[p.Name] {
			status = "expired"
		} else if m, ok := store.Get(p.Fingerprint()); ok {
			status = "resolved"
			outcomes = fmt.Sprintf("%d", len(m.Outcomes))
			if !m.EndDate.IsZero() {
				end = m.EndDate.UTC().Format("2006-01-02")
			}
		}
		table.Append(p.Name, string(p.Type), status, outcomes, end)
	}
	table.Render()
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
