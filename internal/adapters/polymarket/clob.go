package polymarket

// clob.go — fetch de orderbooks del CLOB.
//
// En modo batch se lanza un goroutine por batch de POST /books; el rate
// limiter compartido controla el ritmo sin semáforo explícito. Los books
// de la respuesta se mapean por asset_id, nunca por posición: el CLOB
// puede reordenar u omitir tokens sin orderbook.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/domain"
)

const (
	bookPath  = "/book"
	booksPath = "/books"
)

// FetchOrderBooks obtiene snapshots para los token_ids dados. Un token que
// el CLOB devuelve sin orderbook produce un snapshot vacío (sin asks); un
// batch que falla terminalmente deja sus tokens fuera del resultado y los
// pares que dependan de ellos se saltan este ciclo.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.Snapshot, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.Snapshot{}, nil
	}
	if c.batch {
		return c.fetchBatched(ctx, tokenIDs)
	}
	return c.fetchSingles(ctx, tokenIDs)
}

func (c *Client) fetchBatched(ctx context.Context, tokenIDs []string) (map[string]domain.Snapshot, error) {
	batches := splitBatches(tokenIDs, batchSize)

	type batchResult struct {
		books map[string]domain.Snapshot
		err   error
		idx   int
	}

	resultCh := make(chan batchResult, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		i, batch := i, batch
		wg.Add(1)
		go func() {
			defer wg.Done()
			books, err := c.fetchBooksBatch(ctx, batch)
			resultCh <- batchResult{books: books, err: err, idx: i}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	result := make(map[string]domain.Snapshot, len(tokenIDs))
	failed := 0
	for r := range resultCh {
		if r.err != nil {
			failed++
			slog.Warn("polymarket /books batch failed",
				"batch", r.idx,
				"err", r.err,
			)
			continue
		}
		for k, v := range r.books {
			result[k] = v
		}
	}

	if failed == len(batches) && len(batches) > 0 {
		return result, fmt.Errorf("polymarket: all %d /books batches failed", failed)
	}

	slog.Debug("order books fetched", "tokens", len(tokenIDs), "books", len(result))
	return result, ctx.Err()
}

// splitBatches divide tokenIDs en slices de tamaño máximo size.
func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = batchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := i + size
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}

// fetchBooksBatch hace un POST /books para un batch de token_ids.
// Los tokens sin book en la respuesta se rellenan con un snapshot vacío:
// para el CLOB "no está" significa "no hay orderbook", no un fallo.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.Snapshot, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	if err := c.fetch.PostJSON(ctx, c.clobLimiter, c.clobBase+booksPath, body, &resp); err != nil {
		return nil, fmt.Errorf("POST /books: %w", err)
	}

	now := time.Now().UTC()
	books := make(map[string]domain.Snapshot, len(tokenIDs))
	for _, r := range resp {
		tid := r.tokenID()
		if tid == "" {
			continue
		}
		books[tid] = mapOrderBook(tid, r, now)
	}
	for _, tid := range tokenIDs {
		if _, ok := books[tid]; !ok {
			books[tid] = domain.Snapshot{Venue: domain.VenuePolymarket, TokenID: tid, FetchedAt: now}
		}
	}
	return books, nil
}

// fetchSingles usa GET /book por token con un worker pool.
func (c *Client) fetchSingles(ctx context.Context, tokenIDs []string) (map[string]domain.Snapshot, error) {
	workers := c.workers
	if workers > len(tokenIDs) {
		workers = len(tokenIDs)
	}

	workCh := make(chan string, len(tokenIDs))
	resultCh := make(chan domain.Snapshot, len(tokenIDs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tid := range workCh {
				snap, err := c.fetchBookSingle(ctx, tid)
				if err != nil {
					slog.Warn("polymarket /book fetch failed",
						"token_id", tid,
						"err", err,
					)
					continue
				}
				resultCh <- snap
			}
		}()
	}

	for _, tid := range tokenIDs {
		workCh <- tid
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	books := make(map[string]domain.Snapshot, len(tokenIDs))
	for snap := range resultCh {
		books[snap.TokenID] = snap
	}
	return books, ctx.Err()
}

func (c *Client) fetchBookSingle(ctx context.Context, tokenID string) (domain.Snapshot, error) {
	u := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, url.QueryEscape(tokenID))

	var resp orderBookResponse
	err := c.fetch.GetJSON(ctx, c.clobLimiter, u, &resp)
	if err != nil {
		// Un 404 de "no orderbook" es un mercado sin liquidez, no un fallo.
		if fetch.IsNotFound(err) && strings.Contains(err.Error(), "No orderbook exists") {
			return domain.Snapshot{Venue: domain.VenuePolymarket, TokenID: tokenID, FetchedAt: time.Now().UTC()}, nil
		}
		return domain.Snapshot{}, err
	}
	return mapOrderBook(tokenID, resp, time.Now().UTC()), nil
}
