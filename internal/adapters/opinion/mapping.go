package opinion

import (
	"sort"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// mapBinaryMarket convierte un mercado binario a domain.MarketDescriptor.
// Los outcomes canónicos de Opinion son siempre Yes y No.
func mapBinaryMarket(raw marketRaw) domain.MarketDescriptor {
	return domain.MarketDescriptor{
		Venue:    domain.VenueOpinion,
		MarketID: raw.MarketID.String(),
		Title:    raw.MarketTitle,
		Outcomes: []domain.OutcomeToken{
			{Label: "Yes", TokenID: raw.YesTokenID},
			{Label: "No", TokenID: raw.NoTokenID},
		},
	}
}

// mapCategoricalMarket convierte un mercado categórico con childMarkets.
// Cada candidato aporta su token afirmativo (yesTokenId).
func mapCategoricalMarket(raw marketRaw) domain.MarketDescriptor {
	desc := domain.MarketDescriptor{
		Venue:    domain.VenueOpinion,
		MarketID: raw.MarketID.String(),
		Title:    raw.MarketTitle,
		Outcomes: make([]domain.OutcomeToken, 0, len(raw.ChildMarkets)),
	}
	for _, c := range raw.ChildMarkets {
		desc.Outcomes = append(desc.Outcomes, domain.OutcomeToken{
			Label:   c.MarketTitle,
			TokenID: c.YesTokenID,
		})
	}
	return desc
}

// mapOrderBook convierte un bookRaw al snapshot de dominio con el mejor
// bid/ask. Niveles con precio o size no positivos se descartan.
func mapOrderBook(tokenID string, raw bookRaw, now time.Time) domain.Snapshot {
	snap := domain.Snapshot{
		Venue:     domain.VenueOpinion,
		TokenID:   tokenID,
		FetchedAt: now,
	}

	bids := cleanLevels(raw.Bids)
	if len(bids) > 0 {
		sort.Slice(bids, func(i, j int) bool { return bids[i].price > bids[j].price })
		snap.BestBid = bids[0].price
	}

	asks := cleanLevels(raw.Asks)
	if len(asks) > 0 {
		sort.Slice(asks, func(i, j int) bool { return asks[i].price < asks[j].price })
		snap.BestAsk = asks[0].price
		snap.AskSize = asks[0].size
	}

	return snap
}

type level struct {
	price float64
	size  float64
}

func cleanLevels(raw []levelRaw) []level {
	out := make([]level, 0, len(raw))
	for _, l := range raw {
		p, s := float64(l.Price), float64(l.Size)
		if p <= 0 || s <= 0 {
			continue
		}
		out = append(out, level{price: p, size: s})
	}
	return out
}
