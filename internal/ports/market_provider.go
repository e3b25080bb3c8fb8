package ports

import (
	"context"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// MarketProvider obtiene la descripción de un mercado en un venue concreto.
type MarketProvider interface {
	// FetchMarket resuelve la URL pública de un mercado y devuelve sus
	// outcomes con los token ids negociables. El tipo indica si se espera
	// un mercado binario (Yes/No) o uno categórico con varios candidatos.
	FetchMarket(ctx context.Context, rawURL string, typ domain.PairType) (domain.MarketDescriptor, error)
}
