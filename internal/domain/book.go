package domain

import "time"

// Venue identifica una de las dos plataformas de predicción.
type Venue string

const (
	VenueOpinion    Venue = "opinion"
	VenuePolymarket Venue = "polymarket"
)

// Snapshot es el tope del libro de órdenes de un token en un instante.
// Se produce en cada ciclo de polling y se descarta tras evaluar; nunca se persiste.
type Snapshot struct {
	Venue     Venue
	TokenID   string
	BestBid   float64
	BestAsk   float64
	AskSize   float64
	FetchedAt time.Time
}

// HasAsk devuelve true si el snapshot tiene lado ask con tamaño.
func (s Snapshot) HasAsk() bool {
	return s.BestAsk > 0 && s.AskSize > 0
}

// OlderThan devuelve true si el snapshot es más viejo que maxAge respecto a now.
func (s Snapshot) OlderThan(maxAge time.Duration, now time.Time) bool {
	if s.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(s.FetchedAt) > maxAge
}

// BookSet agrupa los snapshots de un ciclo por venue y token.
type BookSet struct {
	byVenue map[Venue]map[string]Snapshot
}

// NewBookSet crea un BookSet vacío.
func NewBookSet() *BookSet {
	return &BookSet{byVenue: make(map[Venue]map[string]Snapshot)}
}

// Add registra un snapshot, reemplazando cualquier anterior del mismo token.
func (b *BookSet) Add(s Snapshot) {
	m, ok := b.byVenue[s.Venue]
	if !ok {
		m = make(map[string]Snapshot)
		b.byVenue[s.Venue] = m
	}
	m[s.TokenID] = s
}

// Lookup devuelve el snapshot de un token en un venue, si existe.
func (b *BookSet) Lookup(v Venue, tokenID string) (Snapshot, bool) {
	s, ok := b.byVenue[v][tokenID]
	return s, ok
}

// Len devuelve el número total de snapshots registrados.
func (b *BookSet) Len() int {
	n := 0
	for _, m := range b.byVenue {
		n += len(m)
	}
	return n
}
