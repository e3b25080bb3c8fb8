package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- CLOB API ---

// orderBookRequest es el body de un item del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es un orderbook devuelto por /book o /books.
// El batch identifica cada book por asset_id; el orden no está garantizado.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	TokenID string         `json:"token_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// tokenID devuelve el identificador del book, venga como venga.
func (r orderBookResponse) tokenID() string {
	if r.TokenID != "" {
		return r.TokenID
	}
	return r.AssetID
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// --- Gamma API ---

// gammaMarket es un mercado de Gamma. outcomes y clobTokenIds llegan como
// strings JSON-encoded ("[\"Yes\", \"No\"]"), se decodifican en mapping.go.
type gammaMarket struct {
	ID             string          `json:"id"`
	Question       string          `json:"question"`
	Slug           string          `json:"slug"`
	GroupItemTitle string          `json:"groupItemTitle"`
	EndDate        string          `json:"endDate"`
	Outcomes       json.RawMessage `json:"outcomes"`
	ClobTokenIDs   json.RawMessage `json:"clobTokenIds"`
}

// gammaEvent agrupa los sub-mercados de un evento (categóricos).
type gammaEvent struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Slug    string        `json:"slug"`
	EndDate string        `json:"endDate"`
	Markets []gammaMarket `json:"markets"`
}
