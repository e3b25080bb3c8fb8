package opinion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// FetchOrderBooks trae el mejor bid/ask de cada token. El endpoint es por
// token, así que se reparte en un worker pool; el rate limiter compartido
// mantiene el presupuesto del venue aunque suba la concurrencia. Un token
// que falla se loguea y se omite del resultado, no tumba el ciclo.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.Snapshot, error) {
	books := make(map[string]domain.Snapshot, len(tokenIDs))
	if len(tokenIDs) == 0 {
		return books, nil
	}

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
				snap, err := c.fetchOrderBook(ctx, tid)
				if err != nil {
					slog.Warn("opinion orderbook fetch failed",
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

	for snap := range resultCh {
		books[snap.TokenID] = snap
	}

	if err := ctx.Err(); err != nil {
		return books, err
	}
	return books, nil
}

func (c *Client) fetchOrderBook(ctx context.Context, tokenID string) (domain.Snapshot, error) {
	u := fmt.Sprintf("%s/token/orderbook?token_id=%s", c.base, url.QueryEscape(tokenID))

	var raw bookRaw
	if err := c.getEnvelope(ctx, u, &raw); err != nil {
		return domain.Snapshot{}, err
	}
	return mapOrderBook(tokenID, raw, time.Now().UTC()), nil
}
