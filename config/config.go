package config

import (
	"context"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/fapac/materiais-bff/models"
)

// Config holds runtime configuration for the materials server.
type Config struct {
	Port string `env:"PORT,default=3000"`

	AirtableToken  string `env:"AIRTABLE_API_TOKEN"`
	AirtableBaseID string `env:"AIRTABLE_BASE_ID"`
	AirtableTable  string `env:"AIRTABLE_TABLE_NAME"`
	AirtableAPIURL string `env:"AIRTABLE_API_URL,default=https://api.airtable.com/v0"`

	APSClientID     string `env:"APS_CLIENT_ID"`
	APSClientSecret string `env:"APS_CLIENT_SECRET"`
	APSCallbackURL  string `env:"APS_CALLBACK_URL"`
	APSBaseURL      string `env:"APS_BASE_URL,default=https://developer.api.autodesk.com"`

	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	AllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS,default=*"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	StaticDir          string        `env:"STATIC_DIR,default=public"`
	ModelsDir          string        `env:"MODELS_DIR,default=public/models"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT,default=30s"`
}

// Load reads .env when present and returns a Config populated from the
// process environment.
func Load(ctx context.Context) (Config, error) {
	_ = godotenv.Load()
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith populates a Config from l and checks the Airtable settings.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing Airtable variable at once.
func (c Config) Validate() error {
	var missing []string
	if c.AirtableToken == "" {
		missing = append(missing, "AIRTABLE_API_TOKEN")
	}
	if c.AirtableBaseID == "" {
		missing = append(missing, "AIRTABLE_BASE_ID")
	}
	if c.AirtableTable == "" {
		missing = append(missing, "AIRTABLE_TABLE_NAME")
	}
	if len(missing) > 0 {
		return &models.ConfigurationError{Missing: missing}
	}
	return nil
}

func (c Config) Airtable() models.AirtableConfig {
	return models.AirtableConfig{
		APIURL: c.AirtableAPIURL,
		Token:  c.AirtableToken,
		BaseID: c.AirtableBaseID,
		Table:  c.AirtableTable,
	}
}

// APSEnabled reports whether the APS client credentials are configured.
func (c Config) APSEnabled() bool {
	return c.APSClientID != "" && c.APSClientSecret != ""
}

// SecureCookies reports whether session cookies need the Secure flag, which
// holds when the APS callback is served over https.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(strings.ToLower(c.APSCallbackURL), "https://")
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}
