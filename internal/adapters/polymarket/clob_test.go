package polymarket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/adapters/polymarket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, batch bool) *polymarket.Client {
	return polymarket.NewClient(polymarket.Config{
		CLOBBase:  srv.URL,
		GammaBase: srv.URL,
		Batch:     batch,
		Policy:    fetch.Policy{Retries: 1, Backoff: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	})
}

func TestFetchOrderBooks_BatchMapsByIdentity(t *testing.T) {
	// Respuesta desordenada y parcial: tok-b primero, tok-c omitido
	booksJSON := `[
	  {"asset_id": "tok-b", "bids": [{"price": "0.30", "size": "40"}], "asks": [{"price": "0.33", "size": "60"}]},
	  {"asset_id": "tok-a", "bids": [{"price": "0.70", "size": "10"}], "asks": [{"price": "0.72", "size": "25"}]}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)

		var body []map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body, 3)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(booksJSON))
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	books, err := client.FetchOrderBooks(context.Background(), []string{"tok-a", "tok-b", "tok-c"})

	require.NoError(t, err)
	require.Len(t, books, 3)

	a := books["tok-a"]
	assert.InDelta(t, 0.72, a.BestAsk, 0.001)
	assert.InDelta(t, 25.0, a.AskSize, 0.001)

	b := books["tok-b"]
	assert.InDelta(t, 0.33, b.BestAsk, 0.001)

	// tok-c no vino en la respuesta → snapshot vacío (sin orderbook)
	c, ok := books["tok-c"]
	require.True(t, ok)
	assert.False(t, c.HasAsk())
	assert.False(t, c.FetchedAt.IsZero())
}

func TestFetchOrderBooks_SplitsLargeBatches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	client := newTestClient(srv, true)

	// 250 token_ids → 2 requests (batch de 200 + batch de 50)
	tokenIDs := make([]string, 250)
	for i := range tokenIDs {
		tokenIDs[i] = fmt.Sprintf("tok-%03d", i)
	}

	_, err := client.FetchOrderBooks(context.Background(), tokenIDs)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "debe hacer 2 requests batch para 250 tokens")
}

func TestFetchOrderBooks_SingleMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/book", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Query().Get("token_id") {
		case "tok-1":
			w.Write([]byte(`{"asset_id": "tok-1", "bids": [], "asks": [{"price": "0.55", "size": "30"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`No orderbook exists for the requested token id`))
		}
	}))
	defer srv.Close()

	client := newTestClient(srv, false)
	books, err := client.FetchOrderBooks(context.Background(), []string{"tok-1", "tok-dead"})

	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.InDelta(t, 0.55, books["tok-1"].BestAsk, 0.001)
	assert.False(t, books["tok-dead"].HasAsk(), "404 de no-orderbook es un book vacío, no un fallo")
}

func TestFetchOrderBooks_FailedBatchOmitsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv, true)
	books, err := client.FetchOrderBooks(context.Background(), []string{"tok-1", "tok-2"})

	assert.Error(t, err, "si todos los batches fallan el fetch del venue falla")
	assert.Empty(t, books)
}
