package monitor

// monitor.go — el ciclo de detección.
//
// Cada ciclo filtra los pares activos, trae los order books de ambos
// venues en paralelo y evalúa los hedges en secuencia. Un par que falla se
// salta sin frenar el ciclo; un notificador o el journal que fallan se
// loguean y el monitor sigue. La cadencia es interval menos lo que tardó
// el ciclo, con piso en cero.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
	"github.com/alejandrodnm/arbwatch/internal/metrics"
	"github.com/alejandrodnm/arbwatch/internal/ports"
)

// Config son los parámetros de detección del monitor.
type Config struct {
	// Interval es la cadencia objetivo entre inicios de ciclo.
	Interval time.Duration
	// DeltaCents es el edge mínimo por debajo de 1.00, en centavos.
	DeltaCents float64
	// Cooldown es la ventana de supresión por (par, assignment).
	Cooldown time.Duration
	// MinDeployUSD es el notional mínimo de la pata más fina.
	MinDeployUSD float64
	// MaxDaysToExpiry descarta mercados que resuelven demasiado lejos.
	MaxDaysToExpiry float64
	// Once ejecuta un solo ciclo y termina.
	Once bool
}

// Deps son los colaboradores del monitor. Expiry y Storage pueden ser nil.
type Deps struct {
	Opinion    ports.BookProvider
	Polymarket ports.BookProvider
	Expiry     ports.ExpiryProvider
	Notifiers  []ports.Notifier
	Storage    ports.Storage
}

// Monitor evalúa en cada ciclo todos los pares resueltos y emite alertas
// por las oportunidades que pasan los umbrales y el cooldown.
type Monitor struct {
	cfg      Config
	mappings []domain.TokenMapping
	deps     Deps
	tracker  *Tracker
	cycle    int
}

// New construye el monitor sobre un set inmutable de mappings. Los pares
// no resueltos se descartan de entrada.
func New(cfg Config, mappings []domain.TokenMapping, deps Deps) *Monitor {
	usable := make([]domain.TokenMapping, 0, len(mappings))
	for _, m := range mappings {
		if !m.Resolved() {
			slog.Warn("ignoring unresolved mapping", "pair", m.PairName)
			continue
		}
		usable = append(usable, m)
	}
	return &Monitor{
		cfg:      cfg,
		mappings: usable,
		deps:     deps,
		tracker:  NewTracker(cfg.Cooldown),
	}
}

// Pairs devuelve cuántos pares quedaron bajo monitoreo.
func (m *Monitor) Pairs() int {
	return len(m.mappings)
}

// Run ejecuta ciclos hasta que el contexto se cancele, o uno solo en modo
// once. El tiempo de ciclo se descuenta de la espera para mantener la
// cadencia configurada.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor started",
		"pairs", len(m.mappings),
		"interval", m.cfg.Interval,
		"delta_cents", m.cfg.DeltaCents,
		"cooldown", m.cfg.Cooldown,
	)

	for {
		started := time.Now()
		m.runCycle(ctx, started)

		if m.cfg.Once {
			return nil
		}
		wait := m.cfg.Interval - time.Since(started)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context, now time.Time) {
	m.cycle++
	stats := domain.CycleStats{StartedAt: now, Pairs: len(m.mappings)}

	active := m.activeMappings(ctx, now)
	stats.Skipped = len(m.mappings) - len(active)

	fetchStart := time.Now()
	books := m.fetchBooks(ctx, active)
	stats.FetchElapsed = time.Since(fetchStart)

	evalStart := time.Now()
	evalCfg := domain.EvalConfig{
		DeltaCents:      m.cfg.DeltaCents,
		MinDeployUSD:    m.cfg.MinDeployUSD,
		MaxDaysToExpiry: m.cfg.MaxDaysToExpiry,
	}

	var alerts []domain.Opportunity
	for _, mp := range active {
		h, err := domain.BestHedge(mp, books, m.cfg.Interval, now)
		if err != nil {
			stats.Skipped++
			slog.Debug("pair skipped", "pair", mp.PairName, "err", err)
			continue
		}
		stats.Evaluated++
		if h.EdgeCents > stats.BestEdgeCents {
			stats.BestEdgeCents = h.EdgeCents
		}
		if !h.Qualifies(evalCfg) {
			continue
		}

		opp := domain.NewOpportunity(h, now)
		if !m.tracker.Admit(opp, now) {
			stats.Suppressed++
			slog.Debug("alert suppressed by cooldown", "pair", opp.PairName, "assignment", opp.Assignment)
			continue
		}
		slog.Info("hedge alert",
			"pair", opp.PairName,
			"assignment", opp.Assignment,
			"sum_cost", opp.SumCost,
			"edge_cents", opp.EdgeCents,
			"deploy_usd", opp.DeployableUSD,
		)
		alerts = append(alerts, opp)
	}
	m.tracker.Sweep(now)
	stats.EvalElapsed = time.Since(evalStart)
	stats.Alerts = len(alerts)

	if len(alerts) > 0 {
		m.notify(ctx, alerts)
	}
	m.journal(ctx, alerts, stats)
	m.observe(stats)

	slog.Info("cycle complete",
		"cycle", m.cycle,
		"evaluated", stats.Evaluated,
		"skipped", stats.Skipped,
		"alerts", stats.Alerts,
		"suppressed", stats.Suppressed,
		"best_edge_cents", stats.BestEdgeCents,
		"fetch_ms", stats.FetchElapsed.Milliseconds(),
		"eval_ms", stats.EvalElapsed.Milliseconds(),
	)
}

// activeMappings filtra los pares que este ciclo no debe evaluar: los ya
// expirados y los que resuelven más allá de MaxDaysToExpiry. Un par sin
// fecha conocida se monitorea igual; si hay ExpiryProvider se intenta
// completarla antes de decidir.
func (m *Monitor) activeMappings(ctx context.Context, now time.Time) []domain.TokenMapping {
	out := make([]domain.TokenMapping, 0, len(m.mappings))
	for _, mp := range m.mappings {
		if mp.EndDate.IsZero() && m.deps.Expiry != nil {
			end, err := m.deps.Expiry.EventEndDate(ctx, mp.PolymarketURL)
			if err != nil {
				slog.Debug("event end date lookup failed", "pair", mp.PairName, "err", err)
			} else {
				mp.EndDate = end
			}
		}

		if !mp.EndDate.IsZero() && mp.EndDate.Before(now) {
			slog.Debug("pair expired", "pair", mp.PairName, "end_date", mp.EndDate)
			continue
		}
		if m.cfg.MaxDaysToExpiry > 0 {
			if days := mp.DaysToExpiry(now); days > m.cfg.MaxDaysToExpiry {
				slog.Debug("pair beyond expiry window", "pair", mp.PairName, "days", days)
				continue
			}
		}
		out = append(out, mp)
	}
	return out
}

// fetchBooks trae los snapshots de ambos venues en paralelo. Un venue que
// falla deja sus tokens sin snapshot; los pares afectados se saltan en la
// evaluación.
func (m *Monitor) fetchBooks(ctx context.Context, active []domain.TokenMapping) *domain.BookSet {
	opTokens := tokenUniverse(active, domain.VenueOpinion)
	pmTokens := tokenUniverse(active, domain.VenuePolymarket)

	books := domain.NewBookSet()
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	fetchVenue := func(v domain.Venue, p ports.BookProvider, tokens []string) {
		defer wg.Done()
		if p == nil || len(tokens) == 0 {
			return
		}
		snaps, err := p.FetchOrderBooks(ctx, tokens)
		if err != nil {
			metrics.FetchErrors.WithLabelValues(string(v)).Inc()
			slog.Warn("order book fetch incomplete",
				"venue", v,
				"tokens", len(tokens),
				"got", len(snaps),
				"err", err,
			)
		}
		mu.Lock()
		for _, s := range snaps {
			books.Add(s)
		}
		mu.Unlock()
	}

	wg.Add(2)
	go fetchVenue(domain.VenueOpinion, m.deps.Opinion, opTokens)
	go fetchVenue(domain.VenuePolymarket, m.deps.Polymarket, pmTokens)
	wg.Wait()
	return books
}

// tokenUniverse junta los token ids únicos de un venue en todos los pares activos.
func tokenUniverse(mappings []domain.TokenMapping, v domain.Venue) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range mappings {
		for _, tid := range m.TokenIDs(v) {
			if _, dup := seen[tid]; dup || tid == "" {
				continue
			}
			seen[tid] = struct{}{}
			out = append(out, tid)
		}
	}
	return out
}

func (m *Monitor) notify(ctx context.Context, alerts []domain.Opportunity) {
	for _, n := range m.deps.Notifiers {
		if err := n.Notify(ctx, alerts); err != nil {
			slog.Warn("notifier failed", "err", err)
		}
	}
}

func (m *Monitor) journal(ctx context.Context, alerts []domain.Opportunity, stats domain.CycleStats) {
	if m.deps.Storage == nil {
		return
	}
	if len(alerts) > 0 {
		if err := m.deps.Storage.SaveAlerts(ctx, alerts); err != nil {
			slog.Warn("saving alerts failed", "err", err)
		}
	}
	if err := m.deps.Storage.SaveCycle(ctx, stats); err != nil {
		slog.Warn("saving cycle stats failed", "err", err)
	}
}

func (m *Monitor) observe(stats domain.CycleStats) {
	metrics.Cycles.Inc()
	metrics.CycleSeconds.Observe(time.Since(stats.StartedAt).Seconds())
	metrics.PairsEvaluated.Set(float64(stats.Evaluated))
	metrics.PairsSkipped.Set(float64(stats.Skipped))
	metrics.BestEdgeCents.Set(stats.BestEdgeCents)
	metrics.Alerts.Add(float64(stats.Alerts))
	metrics.Suppressed.Add(float64(stats.Suppressed))
}
