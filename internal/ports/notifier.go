package ports

import (
	"context"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// Notifier presenta las oportunidades detectadas al usuario.
type Notifier interface {
	// Notify entrega las oportunidades de un ciclo ya filtradas por
	// cooldown. Un fallo de entrega no debe tumbar el monitor.
	Notify(ctx context.Context, opportunities []domain.Opportunity) error
}
