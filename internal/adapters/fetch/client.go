package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetries  = 3
	defaultBackoff  = 500 * time.Millisecond
	defaultMaxDelay = 8 * time.Second
)

// Policy controla los reintentos ante errores transitorios.
type Policy struct {
	// Retries es el número de reintentos tras el primer intento.
	Retries int
	// Backoff es la espera base; se duplica en cada intento.
	Backoff time.Duration
	// MaxDelay acota la espera incluso con muchos reintentos.
	MaxDelay time.Duration
}

// DefaultPolicy devuelve la política de reintentos por defecto.
func DefaultPolicy() Policy {
	return Policy{Retries: defaultRetries, Backoff: defaultBackoff, MaxDelay: defaultMaxDelay}
}

func (p Policy) withDefaults() Policy {
	if p.Retries <= 0 {
		p.Retries = defaultRetries
	}
	if p.Backoff <= 0 {
		p.Backoff = defaultBackoff
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Client es un HTTP client JSON con rate limiting y retries. Cada venue
// construye el suyo y aporta el limiter por endpoint en cada llamada.
type Client struct {
	http    *http.Client
	policy  Policy
	prepare func(*http.Request)
	rng     *rand.Rand
}

// Option configura un Client.
type Option func(*Client)

// WithPrepare registra un hook que se ejecuta sobre cada request antes de
// enviarla. Útil para headers de autenticación que rotan por llamada.
func WithPrepare(fn func(*http.Request)) Option {
	return func(c *Client) { c.prepare = fn }
}

// WithTimeout cambia el timeout por request del transporte.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient crea un Client con la política dada.
func NewClient(policy Policy, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		policy: policy.withDefaults(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON hace un GET con rate limiting y retries, decodificando en out.
func (c *Client) GetJSON(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.prepare != nil {
			c.prepare(req)
		}
		return c.http.Do(req)
	}, out)
}

// PostJSON hace un POST JSON con rate limiting y retries.
func (c *Client) PostJSON(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.prepare != nil {
			c.prepare(req)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial y jitter.
// Reintenta timeouts, 429 y 5xx; los 4xx restantes y los payloads
// malformados se devuelven de inmediato como errores permanentes.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.policy.Retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
		}

		if out == nil {
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.policy.Retries+1, lastErr)
}

// sleep espera base*2^attempt más jitter, acotado por MaxDelay y el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.policy.Backoff
	if wait > c.policy.MaxDelay {
		wait = c.policy.MaxDelay
	}
	if jitter := wait / 4; jitter > 0 {
		wait += time.Duration(c.rng.Int63n(int64(jitter)))
	}
	if wait > c.policy.MaxDelay {
		wait = c.policy.MaxDelay
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
