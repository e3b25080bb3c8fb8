package registry

// resolver.go — resolución de pares a token mappings.
//
// Resolve es idempotente: con un mapping cacheado y sin refresh no toca la
// red. Una resolución que falla nunca borra el mapping anterior; si el
// fallo fue transitorio (reintentos agotados) se devuelve el mapping
// previo marcado como stale, si fue permanente el par queda sin resolver
// hasta la próxima ejecución.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/domain"
	"github.com/alejandrodnm/arbwatch/internal/ports"
)

const defaultResolveWorkers = 4

// Resolver construye y cachea los TokenMapping de los pares configurados.
type Resolver struct {
	store      *Store
	opinion    ports.MarketProvider
	polymarket ports.MarketProvider
	workers    int
}

// NewResolver crea un resolver sobre un store y los dos proveedores de
// mercado. workers limita cuántos pares se resuelven en paralelo.
func NewResolver(store *Store, opinion, polymarket ports.MarketProvider, workers int) *Resolver {
	if workers <= 0 {
		workers = defaultResolveWorkers
	}
	return &Resolver{
		store:      store,
		opinion:    opinion,
		polymarket: polymarket,
		workers:    workers,
	}
}

// Resolve devuelve el mapping de un par. Con refresh=false y cache hit no
// hace ninguna llamada de red; con refresh=true siempre vuelve a consultar
// ambos venues. El mapping devuelto con Stale=true es el último bueno
// conocido tras un fallo transitorio.
func (r *Resolver) Resolve(ctx context.Context, pair domain.MarketPair, refresh bool) (domain.TokenMapping, error) {
	if err := pair.Validate(); err != nil {
		return domain.TokenMapping{}, err
	}
	fp := pair.Fingerprint()

	if !refresh {
		if m, ok := r.store.Get(fp); ok {
			return m, nil
		}
	}

	op, err := r.opinion.FetchMarket(ctx, pair.OpinionURL, pair.Type)
	if err != nil {
		return r.resolveFailed(fp, pair, domain.VenueOpinion, err)
	}
	pm, err := r.polymarket.FetchMarket(ctx, pair.PolymarketURL, pair.Type)
	if err != nil {
		return r.resolveFailed(fp, pair, domain.VenuePolymarket, err)
	}

	outcomes, err := MatchOutcomes(pair.Type, op, pm)
	if err != nil {
		return domain.TokenMapping{}, fmt.Errorf("pair %q: %w", pair.Name, err)
	}

	endDate := pm.EndDate
	if endDate.IsZero() {
		endDate = op.EndDate
	}

	m := domain.TokenMapping{
		SchemaVersion: domain.MappingSchemaVersion,
		PairName:      pair.Name,
		Type:          pair.Type,
		OpinionURL:    pair.OpinionURL,
		PolymarketURL: pair.PolymarketURL,
		Fingerprint:   fp,
		ResolvedAt:    time.Now().UTC(),
		EndDate:       endDate,
		Outcomes:      outcomes,
	}
	r.store.Put(m)
	return m, nil
}

// resolveFailed decide qué hacer con un fallo de fetch: si fue transitorio
// y hay un mapping previo, se conserva ese marcado como stale. El mapping
// persistido no se toca en ningún caso.
func (r *Resolver) resolveFailed(fp string, pair domain.MarketPair, v domain.Venue, err error) (domain.TokenMapping, error) {
	if errors.Is(err, fetch.ErrRetriesExhausted) {
		if prev, ok := r.store.Get(fp); ok {
			slog.Warn("keeping previous mapping after transient failure",
				"pair", pair.Name,
				"venue", v,
				"err", err,
			)
			prev.Stale = true
			return prev, nil
		}
	}
	return domain.TokenMapping{}, fmt.Errorf("pair %q: fetch %s market: %w", pair.Name, v, err)
}

// BuildSummary resume una pasada de BuildAll.
type BuildSummary struct {
	Pairs     int
	Cached    int
	Resolved  int
	KeptStale int
	Failed    int
}

// BuildAll resuelve todos los pares con un worker pool y devuelve el
// resumen. Un par que falla se loguea y no frena al resto; el llamador
// decide cuándo persistir el store.
func (r *Resolver) BuildAll(ctx context.Context, pairs []domain.MarketPair, refresh bool) BuildSummary {
	summary := BuildSummary{Pairs: len(pairs)}
	if len(pairs) == 0 {
		return summary
	}

	workers := r.workers
	if workers > len(pairs) {
		workers = len(pairs)
	}

	type result struct {
		pair    domain.MarketPair
		mapping domain.TokenMapping
		cached  bool
		err     error
	}

	workCh := make(chan domain.MarketPair, len(pairs))
	resultCh := make(chan result, len(pairs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range workCh {
				_, cached := r.store.Get(pair.Fingerprint())
				m, err := r.Resolve(ctx, pair, refresh)
				resultCh <- result{
					pair:    pair,
					mapping: m,
					cached:  cached && !refresh,
					err:     err,
				}
			}
		}()
	}

	for _, pair := range pairs {
		workCh <- pair
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		switch {
		case res.err != nil:
			summary.Failed++
			slog.Warn("pair left unresolved", "pair", res.pair.Name, "err", res.err)
		case res.mapping.Stale:
			summary.KeptStale++
		case res.cached:
			summary.Cached++
		default:
			summary.Resolved++
			slog.Info("pair resolved",
				"pair", res.pair.Name,
				"type", res.pair.Type,
				"outcomes", len(res.mapping.Outcomes),
			)
		}
	}
	return summary
}
