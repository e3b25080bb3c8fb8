package opinion

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// FetchMarket resuelve una URL pública de Opinion a un MarketDescriptor.
func (c *Client) FetchMarket(ctx context.Context, rawURL string, typ domain.PairType) (domain.MarketDescriptor, error) {
	id, err := marketIDFromURL(rawURL)
	if err != nil {
		return domain.MarketDescriptor{}, err
	}

	switch typ {
	case domain.PairBinary:
		return c.fetchBinary(ctx, id)
	case domain.PairCategorical:
		return c.fetchCategorical(ctx, id)
	default:
		return domain.MarketDescriptor{}, fmt.Errorf("opinion: unsupported pair type %q: %w", typ, domain.ErrBadPairConfig)
	}
}

// fetchBinary intenta el endpoint binario dedicado y cae al genérico.
// Algunos mercados antiguos solo responden en /market/{id}.
func (c *Client) fetchBinary(ctx context.Context, id int64) (domain.MarketDescriptor, error) {
	urls := []string{
		fmt.Sprintf("%s/market/binary/%d", c.base, id),
		fmt.Sprintf("%s/market/%d", c.base, id),
	}

	var lastErr error
	for _, u := range urls {
		var raw marketRaw
		if err := c.getEnvelope(ctx, u, &raw); err != nil {
			lastErr = err
			continue
		}
		if raw.YesTokenID == "" || raw.NoTokenID == "" {
			lastErr = fmt.Errorf("opinion: market %d has no tradable tokens", id)
			continue
		}
		return mapBinaryMarket(raw), nil
	}
	return domain.MarketDescriptor{}, fmt.Errorf("opinion: fetch binary market %d: %w", id, lastErr)
}

func (c *Client) fetchCategorical(ctx context.Context, id int64) (domain.MarketDescriptor, error) {
	u := fmt.Sprintf("%s/market/categorical/%d", c.base, id)

	var raw marketRaw
	if err := c.getEnvelope(ctx, u, &raw); err != nil {
		return domain.MarketDescriptor{}, fmt.Errorf("opinion: fetch categorical market %d: %w", id, err)
	}
	if len(raw.ChildMarkets) == 0 {
		return domain.MarketDescriptor{}, fmt.Errorf("opinion: categorical market %d has no child markets", id)
	}
	return mapCategoricalMarket(raw), nil
}
