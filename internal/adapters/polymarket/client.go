package polymarket

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/arbwatch/internal/adapters/fetch"
	"github.com/alejandrodnm/arbwatch/internal/domain"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"
	defaultWorkers   = 16

	// batchSize es el máximo de token_ids por POST /books.
	batchSize = 200

	// eventMetaTTL acota cuánto vivimos del endDate cacheado de un evento.
	eventMetaTTL = 24 * time.Hour
)

// Config configura el client de Polymarket.
type Config struct {
	// CLOBBase y GammaBase vacíos usan los URLs de producción.
	CLOBBase  string
	GammaBase string
	// Limiter es el token bucket del CLOB (orderbooks).
	Limiter *rate.Limiter
	// GammaLimiter limita las llamadas de metadata, que son más escasas.
	GammaLimiter *rate.Limiter
	// Batch activa POST /books; apagado usa GET /book por token.
	Batch bool
	// Workers acota la concurrencia en modo por token.
	Workers int
	// Policy controla los reintentos HTTP.
	Policy fetch.Policy
}

// Client habla con el CLOB (orderbooks) y con Gamma (metadata de mercados
// y eventos). No necesita credenciales, ambos APIs son públicos.
type Client struct {
	fetch        *fetch.Client
	clobBase     string
	gammaBase    string
	clobLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	batch        bool
	workers      int

	metaMu    sync.RWMutex
	eventMeta map[string]eventMeta
}

type eventMeta struct {
	fetchedAt time.Time
	endDate   time.Time
}

// NewClient crea un Client con los base URLs dados.
func NewClient(cfg Config) *Client {
	clobBase := cfg.CLOBBase
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	gammaBase := cfg.GammaBase
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	clobLimiter := cfg.Limiter
	if clobLimiter == nil {
		clobLimiter = fetch.LimiterForQPS(0)
	}
	gammaLimiter := cfg.GammaLimiter
	if gammaLimiter == nil {
		gammaLimiter = fetch.LimiterForQPS(0)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &Client{
		fetch:        fetch.NewClient(cfg.Policy),
		clobBase:     clobBase,
		gammaBase:    gammaBase,
		clobLimiter:  clobLimiter,
		gammaLimiter: gammaLimiter,
		batch:        cfg.Batch,
		workers:      workers,
		eventMeta:    make(map[string]eventMeta),
	}
}

// SlugFromURL extrae el slug de una URL pública de Polymarket
// (polymarket.com/event/fed-decision-in-december).
func SlugFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("polymarket: parse url %q: %w", rawURL, domain.ErrBadPairConfig)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	slug := parts[len(parts)-1]
	if slug == "" {
		return "", fmt.Errorf("polymarket: no slug in url %q: %w", rawURL, domain.ErrBadPairConfig)
	}
	return slug, nil
}

// altSlug recorta el sufijo numérico de un slug (fed-decision-123 →
// fed-decision). Gamma a veces indexa el evento sin el sufijo.
func altSlug(slug string) string {
	i := strings.LastIndex(slug, "-")
	if i <= 0 {
		return ""
	}
	suffix := slug[i+1:]
	if suffix == "" {
		return ""
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return slug[:i]
}
