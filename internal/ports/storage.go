package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// Storage persiste las alertas emitidas por el monitor.
type Storage interface {
	// SaveAlerts registra las oportunidades que pasaron todos los filtros.
	SaveAlerts(ctx context.Context, opportunities []domain.Opportunity) error

	// SaveCycle registra el resumen de un ciclo de escaneo.
	SaveCycle(ctx context.Context, stats domain.CycleStats) error

	// GetHistory devuelve las alertas registradas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.Opportunity, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
