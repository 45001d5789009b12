package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Solana  SolanaConfig
	Fees    FeesConfig
	Webhook WebhookConfig
	Poller  PollerConfig
	CORS    CORSConfig

	Storefronts StorefrontsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOLSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"SOLSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOLSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOLSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type SolanaConfig struct {
	RPCURL   string `envconfig:"SOLSHOP_SOLANA_RPC_URL" required:"true"`
	Cluster  string `envconfig:"SOLSHOP_SOLANA_CLUSTER" default:"mainnet-beta"`
	USDCMint string `envconfig:"SOLSHOP_USDC_MINT" default:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`
}

// FeesConfig controls platform fee routing. Routing is enabled only when
// both a treasury address and a positive bps rate are configured; this is
// resolved once at startup and never mutated afterward.
type FeesConfig struct {
	TreasuryAddress string `envconfig:"SOLSHOP_TREASURY_ADDRESS"`
	PlatformFeeBps  int64  `envconfig:"SOLSHOP_PLATFORM_FEE_BPS" default:"0"`
}

func (f FeesConfig) Enabled() bool {
	return strings.TrimSpace(f.TreasuryAddress) != "" && f.PlatformFeeBps > 0
}

func (f FeesConfig) validate() error {
	if f.PlatformFeeBps < 0 || f.PlatformFeeBps >= 10000 {
		return fmt.Errorf("SOLSHOP_PLATFORM_FEE_BPS must be in [0, 10000), got %d", f.PlatformFeeBps)
	}
	return nil
}

type WebhookConfig struct {
	// Secret signs inbound Helius batches. Empty disables verification,
	// which is acceptable only for local development.
	Secret string `envconfig:"SOLSHOP_WEBHOOK_SECRET"`
}

type PollerConfig struct {
	Interval    time.Duration `envconfig:"SOLSHOP_POLLER_INTERVAL" default:"3s"`
	MaxAttempts int           `envconfig:"SOLSHOP_POLLER_MAX_ATTEMPTS" default:"100"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SOLSHOP_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type StorefrontsConfig struct {
	SeedFile string `envconfig:"SOLSHOP_STOREFRONT_SEED_FILE"`
}
