package polymarket

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/domain"
)

const (
	marketsSlugPath = "/markets/slug/"
	eventsSlugPath  = "/events/slug/"
)

// FetchMarket resuelve una URL pública de Polymarket a un MarketDescriptor.
// Binarios via /markets/slug, categóricos via /events/slug con un outcome
// por sub-mercado.
func (c *Client) FetchMarket(ctx context.Context, rawURL string, typ domain.PairType) (domain.MarketDescriptor, error) {
	slug, err := SlugFromURL(rawURL)
	if err != nil {
		return domain.MarketDescriptor{}, err
	}

	switch typ {
	case domain.PairBinary:
		return c.fetchBinaryMarket(ctx, slug)
	case domain.PairCategorical:
		ev, err := c.fetchEventBySlug(ctx, slug)
		if err != nil {
			return domain.MarketDescriptor{}, err
		}
		return mapGammaEvent(ev), nil
	default:
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket: unsupported pair type %q: %w", typ, domain.ErrBadPairConfig)
	}
}

// fetchBinaryMarket intenta /markets/slug con el slug y su variante sin
// sufijo numérico; si ninguno existe cae al primer mercado del evento.
func (c *Client) fetchBinaryMarket(ctx context.Context, slug string) (domain.MarketDescriptor, error) {
	candidates := []string{slug}
	if alt := altSlug(slug); alt != "" {
		candidates = append(candidates, alt)
	}

	for _, s := range candidates {
		var gm gammaMarket
		err := c.fetch.GetJSON(ctx, c.gammaLimiter, c.gammaBase+marketsSlugPath+s, &gm)
		if err != nil {
			if fetch.IsNotFound(err) {
				continue
			}
			return domain.MarketDescriptor{}, fmt.Errorf("polymarket: fetch market %q: %w", s, err)
		}
		if desc, ok := mapGammaBinary(gm); ok {
			return desc, nil
		}
	}

	ev, err := c.fetchEventBySlug(ctx, slug)
	if err != nil {
		return domain.MarketDescriptor{}, err
	}
	if len(ev.Markets) == 0 {
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket: event %q has no markets", slug)
	}
	desc, ok := mapGammaBinary(ev.Markets[0])
	if !ok {
		return domain.MarketDescriptor{}, fmt.Errorf("polymarket: market %q has no binary outcomes", slug)
	}
	if desc.EndDate.IsZero() {
		desc.EndDate = parseEndDate(ev.EndDate)
	}
	return desc, nil
}

func (c *Client) fetchEventBySlug(ctx context.Context, slug string) (gammaEvent, error) {
	candidates := []string{slug}
	if alt := altSlug(slug); alt != "" {
		candidates = append(candidates, alt)
	}

	var lastErr error
	for _, s := range candidates {
		var ev gammaEvent
		err := c.fetch.GetJSON(ctx, c.gammaLimiter, c.gammaBase+eventsSlugPath+s, &ev)
		if err != nil {
			lastErr = err
			if fetch.IsNotFound(err) {
				continue
			}
			return gammaEvent{}, fmt.Errorf("polymarket: fetch event %q: %w", s, err)
		}
		return ev, nil
	}
	return gammaEvent{}, fmt.Errorf("polymarket: event %q not found: %w", slug, lastErr)
}

// EventEndDate devuelve el endDate del evento detrás de una URL pública.
// Se cachea con TTL: el monitor solo lo necesita cuando un mapping viejo
// no trae fecha, y un endDate no cambia de un ciclo a otro.
func (c *Client) EventEndDate(ctx context.Context, rawURL string) (time.Time, error) {
	slug, err := SlugFromURL(rawURL)
	if err != nil {
		return time.Time{}, err
	}

	c.metaMu.RLock()
	meta, ok := c.eventMeta[slug]
	c.metaMu.RUnlock()
	if ok && time.Since(meta.fetchedAt) < eventMetaTTL {
		return meta.endDate, nil
	}

	ev, err := c.fetchEventBySlug(ctx, slug)
	if err != nil {
		return time.Time{}, err
	}

	end := parseEndDate(ev.EndDate)
	c.metaMu.Lock()
	c.eventMeta[slug] = eventMeta{fetchedAt: time.Now(), endDate: end}
	c.metaMu.Unlock()
	return end, nil
}
