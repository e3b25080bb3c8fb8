package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alejandrodnm/arbwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Gamma publica outcomes y clobTokenIds como strings JSON-encoded.
const binaryGammaJSON = `{
  "id": "501234",
  "question": "Fed cuts rates in December?",
  "slug": "fed-cuts-rates-december",
  "endDate": "2025-12-10T12:00:00Z",
  "outcomes": "[\"Yes\", \"No\"]",
  "clobTokenIds": "[\"pm-yes-1\", \"pm-no-1\"]"
}`

const categoricalEventJSON = `{
  "id": "9001",
  "title": "Champions League Winner",
  "slug": "champions-league-winner",
  "endDate": "2026-05-30T20:00:00Z",
  "markets": [
    {
      "id": "9101",
      "question": "Will Real Madrid win the Champions League?",
      "groupItemTitle": "Real Madrid",
      "endDate": "2026-05-30T20:00:00Z",
      "outcomes": "[\"Yes\", \"No\"]",
      "clobTokenIds": "[\"pm-rm-yes\", \"pm-rm-no\"]"
    },
    {
      "id": "9102",
      "question": "Will Arsenal win the Champions League?",
      "groupItemTitle": "Arsenal",
      "endDate": "2026-06-01T20:00:00Z",
      "outcomes": "[\"No\", \"Yes\"]",
      "clobTokenIds": "[\"pm-ar-no\", \"pm-ar-yes\"]"
    },
    {
      "id": "9103",
      "question": "Will Team B win the Champions League?",
      "groupItemTitle": "Team B",
      "outcomes": "[\"Yes\", \"No\"]",
      "clobTokenIds": "[\"pm-x\", \"pm-y\"]"
    }
  ]
}`

func TestFetchMarket_BinaryBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/slug/fed-cuts-rates-december", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(binaryGammaJSON))
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	desc, err := client.FetchMarket(context.Background(),
		"https://polymarket.com/event/fed-cuts-rates-december", domain.PairBinary)

	require.NoError(t, err)
	assert.Equal(t, domain.VenuePolymarket, desc.Venue)
	assert.Equal(t, "501234", desc.MarketID)
	require.Len(t, desc.Outcomes, 2)
	assert.Equal(t, "Yes", desc.Outcomes[0].Label)
	assert.Equal(t, "pm-yes-1", desc.Outcomes[0].TokenID)
	assert.Equal(t, "2025-12-10", desc.EndDate.Format("2006-01-02"))
}

func TestFetchMarket_BinaryAltSlugFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/markets/slug/fed-cuts-rates-december-123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "/markets/slug/fed-cuts-rates-december", r.URL.Path)
		w.Write([]byte(binaryGammaJSON))
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	desc, err := client.FetchMarket(context.Background(),
		"https://polymarket.com/event/fed-cuts-rates-december-123", domain.PairBinary)

	require.NoError(t, err)
	assert.Equal(t, "pm-yes-1", desc.Outcomes[0].TokenID)
}

func TestFetchMarket_BinaryEventFallback(t *testing.T) {
	eventJSON := `{
	  "id": "700",
	  "title": "Fed December",
	  "endDate": "2025-12-10T12:00:00Z",
	  "markets": [` + binaryGammaJSON + `]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/events/slug/fed-december" {
			w.Write([]byte(eventJSON))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	desc, err := client.FetchMarket(context.Background(),
		"https://polymarket.com/event/fed-december", domain.PairBinary)

	require.NoError(t, err)
	assert.Equal(t, "pm-no-1", desc.Outcomes[1].TokenID)
}

func TestFetchMarket_CategoricalEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/slug/champions-league-winner", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(categoricalEventJSON))
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	desc, err := client.FetchMarket(context.Background(),
		"https://polymarket.com/event/champions-league-winner", domain.PairCategorical)

	require.NoError(t, err)
	// Team B es placeholder y se filtra
	require.Len(t, desc.Outcomes, 2)
	assert.Equal(t, "Real Madrid", desc.Outcomes[0].Label)
	assert.Equal(t, "pm-rm-yes", desc.Outcomes[0].TokenID)
	// outcomes ["No","Yes"] → el token Yes es el segundo
	assert.Equal(t, "Arsenal", desc.Outcomes[1].Label)
	assert.Equal(t, "pm-ar-yes", desc.Outcomes[1].TokenID)
	// endDate del descriptor = el más tardío de los sub-mercados
	assert.Equal(t, "2026-06-01", desc.EndDate.Format("2006-01-02"))
}

func TestEventEndDate_CachesWithTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "1", "title": "x", "endDate": "2026-01-15T00:00:00Z", "markets": []}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	url := "https://polymarket.com/event/some-event"

	end1, err := client.EventEndDate(context.Background(), url)
	require.NoError(t, err)
	end2, err := client.EventEndDate(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, end1, end2)
	assert.Equal(t, "2026-01-15", end1.Format("2006-01-02"))
	assert.Equal(t, int32(1), calls.Load(), "la segunda llamada debe salir de cache")
}
