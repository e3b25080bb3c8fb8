package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// Config es la configuración completa del monitor y del registry.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Registry RegistryConfig `yaml:"registry"`
	API      APIConfig      `yaml:"api"`
	Notify   NotifyConfig   `yaml:"notify"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// MonitorConfig controla la detección de oportunidades.
type MonitorConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	DeltaCents      float64 `yaml:"delta_cents"`
	CooldownSeconds int     `yaml:"cooldown_seconds"`
	MinDeployUSD    float64 `yaml:"min_deploy_usd"`
	MaxDaysToExpiry float64 `yaml:"max_days_to_expiry"`
	Workers         int     `yaml:"workers"`
}

// RegistryConfig controla la resolución de pares a token mappings.
type RegistryConfig struct {
	MappingsFile      string       `yaml:"mappings_file"`
	Workers           int          `yaml:"workers"`
	OpinionIntervalMS int          `yaml:"opinion_interval_ms"`
	GammaIntervalMS   int          `yaml:"gamma_interval_ms"`
	Retries           int          `yaml:"retries"`
	BackoffMS         int          `yaml:"backoff_ms"`
	ExpiryGraceHours  float64      `yaml:"expiry_grace_hours"`
	Pairs             []PairConfig `yaml:"pairs"`
}

// PairConfig es la definición YAML de un par de mercados equivalentes.
type PairConfig struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	OpinionURL    string `yaml:"opinion_url"`
	PolymarketURL string `yaml:"polymarket_url"`
}

// APIConfig contiene los endpoints y presupuestos de rate de ambos venues.
type APIConfig struct {
	OpinionBase    string   `yaml:"opinion_base"`
	OpinionAPIKeys []string `yaml:"opinion_api_keys"`
	OpinionQPS     float64  `yaml:"opinion_qps"`
	CLOBBase       string   `yaml:"clob_base"`
	GammaBase      string   `yaml:"gamma_base"`
	PolymarketQPS  float64  `yaml:"polymarket_qps"`
	GammaQPS       float64  `yaml:"gamma_qps"`
	Batch          *bool    `yaml:"batch"` // nil = habilitado
}

// NotifyConfig controla las salidas de alertas.
type NotifyConfig struct {
	ConsoleTable   bool   `yaml:"console_table"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// StorageConfig controla dónde se persiste el journal.
type StorageConfig struct {
	// DSN es la ruta al archivo SQLite, o ":memory:". Un string vacío
	// explícito deshabilita el journal; omitido usa el default.
	DSN *string `yaml:"dsn"`
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un archivo de config inexistente no es fatal: los flags y el entorno pueden
// cubrir todo lo necesario.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Warn("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval devuelve la cadencia del monitor como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// CooldownWindow devuelve la ventana de supresión de alertas repetidas.
func (c *Config) CooldownWindow() time.Duration {
	return time.Duration(c.Monitor.CooldownSeconds) * time.Second
}

// ExpiryGrace devuelve cuánto se conserva un mapping tras expirar su mercado.
func (c *Config) ExpiryGrace() time.Duration {
	return time.Duration(c.Registry.ExpiryGraceHours * float64(time.Hour))
}

// OpinionInterval devuelve el espaciado mínimo entre requests a Opinion
// durante la resolución.
func (c *Config) OpinionInterval() time.Duration {
	return time.Duration(c.Registry.OpinionIntervalMS) * time.Millisecond
}

// GammaInterval devuelve el espaciado mínimo entre requests a Gamma
// durante la resolución.
func (c *Config) GammaInterval() time.Duration {
	return time.Duration(c.Registry.GammaIntervalMS) * time.Millisecond
}

// RegistryBackoff devuelve la espera base entre reintentos de resolución.
func (c *Config) RegistryBackoff() time.Duration {
	return time.Duration(c.Registry.BackoffMS) * time.Millisecond
}

// StorageDSN devuelve el DSN efectivo del journal; vacío significa
// journal deshabilitado.
func (c *Config) StorageDSN() string {
	if c.Storage.DSN == nil {
		return "arbwatch.db"
	}
	return *c.Storage.DSN
}

// BatchEnabled indica si el fetch de Polymarket usa el endpoint /books.
func (c *Config) BatchEnabled() bool {
	if c.API.Batch == nil {
		return true
	}
	return *c.API.Batch
}

// Pairs convierte las definiciones YAML a pares de dominio, sin validarlas:
// los pares inválidos se descartan individualmente durante la resolución.
func (c *Config) Pairs() []domain.MarketPair {
	out := make([]domain.MarketPair, 0, len(c.Registry.Pairs))
	for _, p := range c.Registry.Pairs {
		out = append(out, domain.MarketPair{
			Name:          p.Name,
			Type:          domain.PairType(p.Type),
			OpinionURL:    p.OpinionURL,
			PolymarketURL: p.PolymarketURL,
		})
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes. Los secretos (API keys, token del bot) normalmente llegan por acá.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPINION_API_KEYS"); v != "" {
		cfg.API.OpinionAPIKeys = cfg.API.OpinionAPIKeys[:0]
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.API.OpinionAPIKeys = append(cfg.API.OpinionAPIKeys, k)
			}
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 3
	}
	if cfg.Monitor.DeltaCents <= 0 {
		cfg.Monitor.DeltaCents = 1.8
	}
	if cfg.Monitor.CooldownSeconds <= 0 {
		cfg.Monitor.CooldownSeconds = 120
	}
	if cfg.Monitor.MinDeployUSD <= 0 {
		cfg.Monitor.MinDeployUSD = 20
	}
	if cfg.Monitor.MaxDaysToExpiry <= 0 {
		cfg.Monitor.MaxDaysToExpiry = 60
	}
	if cfg.Monitor.Workers <= 0 {
		cfg.Monitor.Workers = 32
	}
	if cfg.Registry.MappingsFile == "" {
		cfg.Registry.MappingsFile = "token_registry.json"
	}
	if cfg.Registry.Workers <= 0 {
		cfg.Registry.Workers = 8
	}
	if cfg.Registry.OpinionIntervalMS <= 0 {
		cfg.Registry.OpinionIntervalMS = 100
	}
	if cfg.Registry.GammaIntervalMS <= 0 {
		cfg.Registry.GammaIntervalMS = 500
	}
	if cfg.Registry.Retries <= 0 {
		cfg.Registry.Retries = 3
	}
	if cfg.Registry.BackoffMS <= 0 {
		cfg.Registry.BackoffMS = 600
	}
	if cfg.Registry.ExpiryGraceHours <= 0 {
		cfg.Registry.ExpiryGraceHours = 12
	}
	if cfg.API.OpinionBase == "" {
		cfg.API.OpinionBase = "https://openapi.opinion.trade/openapi"
	}
	if cfg.API.OpinionQPS <= 0 {
		cfg.API.OpinionQPS = 10
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.PolymarketQPS <= 0 {
		cfg.API.PolymarketQPS = 7
	}
	if cfg.API.GammaQPS <= 0 {
		cfg.API.GammaQPS = 2
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
