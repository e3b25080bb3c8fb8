package opinion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/domain"
)

const (
	defaultBaseURL = "https://openapi.opinion.trade/openapi"
	defaultWorkers = 16
)

// Config configura el client de Opinion.
type Config struct {
	// BaseURL vacío usa el openapi de producción.
	BaseURL string
	// APIKeys se rotan round-robin entre requests. Obligatorio al menos una.
	APIKeys []string
	// Limiter es el token bucket compartido del venue.
	Limiter *rate.Limiter
	// Workers acota la concurrencia de FetchOrderBooks.
	Workers int
	// Policy controla los reintentos HTTP.
	Policy fetch.Policy
}

// Client habla con el openapi de Opinion. El endpoint de orderbook es por
// token, así que los fetches de un ciclo se reparten en un worker pool que
// comparte el rate limiter del venue.
type Client struct {
	fetch   *fetch.Client
	limiter *rate.Limiter
	base    string
	keys    []string
	keyIdx  atomic.Uint64
	workers int
}

// NewClient crea un Client de Opinion. Falla si no hay API keys.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, errors.New("opinion: no API keys configured")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = fetch.LimiterForQPS(0)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	c := &Client{
		limiter: limiter,
		base:    base,
		keys:    cfg.APIKeys,
		workers: workers,
	}
	c.fetch = fetch.NewClient(cfg.Policy, fetch.WithPrepare(c.auth))
	return c, nil
}

// auth firma cada request con la siguiente key de la rotación.
func (c *Client) auth(req *http.Request) {
	i := c.keyIdx.Add(1) - 1
	req.Header.Set("apikey", c.keys[i%uint64(len(c.keys))])
}

// getEnvelope hace un GET y desenvuelve el sobre del openapi.
func (c *Client) getEnvelope(ctx context.Context, url string, out any) error {
	var env envelope
	if err := c.fetch.GetJSON(ctx, c.limiter, url, &env); err != nil {
		return err
	}
	if code := env.errCode(); code != 0 {
		return &APIError{Code: code, Msg: env.Msg}
	}
	payload := env.payload()
	if payload == nil {
		return fmt.Errorf("opinion: empty result in response")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("opinion: decode result: %w", err)
	}
	return nil
}

// APIError es un error a nivel de API (sobre con code/errno distinto de 0).
// Se trata como permanente: reintentar no lo va a arreglar.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("opinion: API error code %d", e.Code)
	}
	return fmt.Sprintf("opinion: API error code %d: %s", e.Code, e.Msg)
}

// marketIDFromURL extrae el market id numérico de una URL pública de
// Opinion (app.opinion.trade/detail?topicId=123).
func marketIDFromURL(rawURL string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("opinion: parse url %q: %w", rawURL, domain.ErrBadPairConfig)
	}
	q := u.Query()
	for _, key := range []string{"topicId", "marketId", "id"} {
		if v := q.Get(key); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err == nil {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("opinion: no market id in url %q: %w", rawURL, domain.ErrBadPairConfig)
}
