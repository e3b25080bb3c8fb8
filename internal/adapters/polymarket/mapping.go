package polymarket

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// parseStringList decodifica un campo que puede venir como lista JSON o
// como string JSON-encoded conteniendo la lista.
func parseStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &list); err == nil {
			return list
		}
	}
	return nil
}

// parseEndDate intenta los formatos de fecha que Gamma usa en producción.
func parseEndDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// mapGammaBinary convierte un mercado binario de Gamma a descriptor.
// Conserva los labels tal cual los publica el venue; alinear Yes/No entre
// venues es trabajo del matcher, no del adapter.
func mapGammaBinary(gm gammaMarket) (domain.MarketDescriptor, bool) {
	outcomes := parseStringList(gm.Outcomes)
	clobIDs := parseStringList(gm.ClobTokenIDs)
	if len(outcomes) != 2 || len(clobIDs) != 2 {
		return domain.MarketDescriptor{}, false
	}

	desc := domain.MarketDescriptor{
		Venue:    domain.VenuePolymarket,
		MarketID: gm.ID,
		Title:    gm.Question,
		EndDate:  parseEndDate(gm.EndDate),
		Outcomes: []domain.OutcomeToken{
			{Label: outcomes[0], TokenID: clobIDs[0]},
			{Label: outcomes[1], TokenID: clobIDs[1]},
		},
	}
	return desc, true
}

// yesTokenID devuelve el token afirmativo de un sub-mercado binario.
// Gamma a veces publica los outcomes como ["No","Yes"]; en ese caso el
// token Yes es el segundo.
func yesTokenID(gm gammaMarket) (string, bool) {
	outcomes := parseStringList(gm.Outcomes)
	clobIDs := parseStringList(gm.ClobTokenIDs)
	if len(outcomes) != 2 || len(clobIDs) != 2 {
		return "", false
	}
	o0 := strings.ToLower(strings.TrimSpace(outcomes[0]))
	o1 := strings.ToLower(strings.TrimSpace(outcomes[1]))
	if o0 == "no" && o1 == "yes" {
		return clobIDs[1], true
	}
	return clobIDs[0], true
}

var (
	placeholderRe = regexp.MustCompile(`(?i)^(game|movie|team|option|candidate|player|item)\s+[a-z]$`)
	quotedRe      = regexp.MustCompile(`'([^']+)'`)
)

// isPlaceholderCandidate filtra sub-mercados de relleno (Game C, Option B...)
// que solo meten ruido en el matching.
func isPlaceholderCandidate(label string) bool {
	label = strings.TrimSpace(label)
	if placeholderRe.MatchString(label) {
		return true
	}
	return strings.Contains(strings.ToLower(label), "another game")
}

// candidateLabel extrae el texto de candidato de un sub-mercado: primero
// groupItemTitle (lo que el usuario ve en el frontend), si no el texto
// entre comillas simples de la pregunta, si no la pregunta entera.
func candidateLabel(gm gammaMarket) string {
	if s := strings.TrimSpace(gm.GroupItemTitle); s != "" {
		return s
	}
	if m := quotedRe.FindStringSubmatch(gm.Question); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(gm.Question)
}

// mapGammaEvent convierte un evento categórico en un descriptor con un
// outcome por candidato. La fecha del descriptor es la más tardía entre
// los sub-mercados porque el hedge completo vive hasta que resuelve el último.
func mapGammaEvent(ev gammaEvent) domain.MarketDescriptor {
	desc := domain.MarketDescriptor{
		Venue:    domain.VenuePolymarket,
		MarketID: ev.ID,
		Title:    ev.Title,
		EndDate:  parseEndDate(ev.EndDate),
		Outcomes: make([]domain.OutcomeToken, 0, len(ev.Markets)),
	}

	for _, gm := range ev.Markets {
		label := candidateLabel(gm)
		if isPlaceholderCandidate(label) {
			continue
		}
		token, ok := yesTokenID(gm)
		if !ok || token == "" {
			continue
		}
		desc.Outcomes = append(desc.Outcomes, domain.OutcomeToken{Label: label, TokenID: token})

		if end := parseEndDate(gm.EndDate); !end.IsZero() && end.After(desc.EndDate) {
			desc.EndDate = end
		}
	}
	return desc
}

// mapOrderBook convierte un orderbook raw al snapshot top-of-book.
func mapOrderBook(tokenID string, raw orderBookResponse, now time.Time) domain.Snapshot {
	snap := domain.Snapshot{
		Venue:     domain.VenuePolymarket,
		TokenID:   tokenID,
		FetchedAt: now,
	}

	bids := mapBookEntries(raw.Bids, false)
	if len(bids) > 0 {
		snap.BestBid = bids[0].Price
	}
	asks := mapBookEntries(raw.Asks, true)
	if len(asks) > 0 {
		snap.BestAsk = asks[0].Price
		snap.AskSize = asks[0].Size
	}
	return snap
}

type bookEntry struct {
	Price float64
	Size  float64
}

// mapBookEntries convierte entries raw y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []bookEntry {
	entries := make([]bookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, bookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
