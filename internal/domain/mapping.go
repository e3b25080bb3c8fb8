package domain

import (
	"time"
)

// OutcomeMapping une un outcome lógico con su token en cada venue.
// Para binarios el token es el lado correspondiente (Yes o No); para
// categóricos es el token afirmativo del candidato en cada venue.
type OutcomeMapping struct {
	Label             string `json:"label"`
	OpinionTokenID    string `json:"opinion_token_id"`
	PolymarketTokenID string `json:"polymarket_token_id"`
}

// Complete devuelve true si el outcome tiene token en ambos venues.
func (o OutcomeMapping) Complete() bool {
	return o.OpinionTokenID != "" && o.PolymarketTokenID != ""
}

// MappingSchemaVersion invalida mappings cacheados cuando cambia el formato.
const MappingSchemaVersion = 3

// TokenMapping es el resultado persistido de resolver un MarketPair.
// Lo escribe únicamente el matcher; el monitor lo consume en modo lectura.
type TokenMapping struct {
	SchemaVersion int              `json:"schema_version"`
	PairName      string           `json:"name"`
	Type          PairType         `json:"type"`
	OpinionURL    string           `json:"opinion_url"`
	PolymarketURL string           `json:"polymarket_url"`
	Fingerprint   string           `json:"fingerprint"`
	ResolvedAt    time.Time        `json:"resolved_at"`
	EndDate       time.Time        `json:"end_date,omitzero"`
	Outcomes      []OutcomeMapping `json:"outcomes"`

	// Stale se marca cuando la resolución falló de forma transitoria y se
	// conservó el último mapping bueno. No se persiste.
	Stale bool `json:"-"`
}

// Resolved devuelve true si el mapping cumple el invariante de completitud:
// 2 outcomes para binary, al menos 2 para categorical, y cada outcome con
// token en ambos venues. Un mapping no resuelto queda fuera del monitoreo.
func (m TokenMapping) Resolved() bool {
	switch m.Type {
	case PairBinary:
		if len(m.Outcomes) != 2 {
			return false
		}
	case PairCategorical:
		if len(m.Outcomes) < 2 {
			return false
		}
	default:
		return false
	}
	for _, o := range m.Outcomes {
		if !o.Complete() {
			return false
		}
	}
	return true
}

// TokenIDs devuelve los token ids del mapping para un venue, en orden de outcome.
func (m TokenMapping) TokenIDs(v Venue) []string {
	ids := make([]string, 0, len(m.Outcomes))
	for _, o := range m.Outcomes {
		switch v {
		case VenueOpinion:
			ids = append(ids, o.OpinionTokenID)
		case VenuePolymarket:
			ids = append(ids, o.PolymarketTokenID)
		}
	}
	return ids
}

// DaysToExpiry devuelve los días hasta la resolución del mercado.
// Devuelve -1 si la fecha de resolución es desconocida.
func (m TokenMapping) DaysToExpiry(now time.Time) float64 {
	if m.EndDate.IsZero() {
		return -1
	}
	d := m.EndDate.Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}
