package ports

import (
	"context"
	"time"
)

// ExpiryProvider resuelve la fecha de resolución de un mercado cuando el
// mapping persistido no la trae. Cero con error nil significa que el venue
// tampoco la conoce.
type ExpiryProvider interface {
	EventEndDate(ctx context.Context, marketURL string) (time.Time, error)
}
