package ports

import (
	"context"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// BookProvider obtiene snapshots de orderbook para un conjunto de tokens.
type BookProvider interface {
	// FetchOrderBooks devuelve el mejor bid/ask por token_id. Un token sin
	// orderbook simplemente no aparece en el mapa; el caller decide qué
	// pares quedan inutilizables por ello.
	FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.Snapshot, error)
}
