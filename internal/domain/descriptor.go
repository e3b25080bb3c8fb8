package domain

import "time"

// OutcomeToken es un outcome anunciado por un venue con su token negociable.
type OutcomeToken struct {
	Label   string
	TokenID string
}

// MarketDescriptor es la descripción de un mercado tal como la devuelve un venue.
// Es el input del matcher; no se persiste.
type MarketDescriptor struct {
	Venue    Venue
	MarketID string
	Title    string
	EndDate  time.Time
	Outcomes []OutcomeToken
}

// CycleStats resume un ciclo del monitor para logs, métricas y el journal.
type CycleStats struct {
	StartedAt     time.Time
	Pairs         int
	Evaluated     int
	Skipped       int
	Alerts        int
	Suppressed    int
	BestEdgeCents float64
	FetchElapsed  time.Duration
	EvalElapsed   time.Duration
}
