package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/xavierca1/aqar-matcher/internal/infra/database"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" envDefault:"false"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	StorePath   string `env:"STORE_PATH" envDefault:"data/clients.json"`
	DatabaseURL string `env:"DATABASE_URL"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	ListingsAPIURL  string        `env:"LISTINGS_API_URL"`
	ListingsAPIKey  string        `env:"LISTINGS_API_KEY"`
	ListingsTimeout time.Duration `env:"LISTINGS_TIMEOUT" envDefault:"10s"`

	FanoutDelay      time.Duration `env:"FANOUT_DELAY" envDefault:"300ms"`
	FanoutMinResults int           `env:"FANOUT_MIN_RESULTS" envDefault:"5"`
	FanoutVariations bool          `env:"FANOUT_VARIATIONS" envDefault:"true"`
	FanoutMaxQueries int           `env:"FANOUT_MAX_QUERIES" envDefault:"20"`

	MatchThreshold int           `env:"MATCH_THRESHOLD" envDefault:"70"`
	MatchRateLimit time.Duration `env:"MATCH_RATE_LIMIT" envDefault:"1h"`

	DispatchDelay      time.Duration `env:"DISPATCH_DELAY" envDefault:"5s"`
	DispatchStaleAfter time.Duration `env:"DISPATCH_STALE_AFTER" envDefault:"10m"`

	WhatsAppAccessToken string `env:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppPhoneID     string `env:"WHATSAPP_PHONE_ID"`
	WhatsAppBaseURL     string `env:"WHATSAPP_BASE_URL"`

	OffersWebhookToken string `env:"OFFERS_WEBHOOK_TOKEN"`

	MailHost   string `env:"MAIL_HOST"`
	MailPort   int    `env:"MAIL_PORT" envDefault:"587"`
	MailUser   string `env:"MAIL_USER"`
	MailPass   string `env:"MAIL_PASS"`
	MailFrom   string `env:"MAIL_FROM"`
	AlertEmail string `env:"ALERT_EMAIL"`

	CleanupCron     string `env:"CLEANUP_CRON" envDefault:"0 3 * * *"`
	CleanupIdleDays int    `env:"CLEANUP_IDLE_DAYS" envDefault:"30"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("configuração inválida: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "file":
	case database.DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL é obrigatório com STORE_DRIVER=postgres")
		}
	case database.DriverSQLite:
	default:
		return fmt.Errorf("STORE_DRIVER inválido: %q (file|postgres|sqlite)", c.StoreDriver)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 100 {
		return fmt.Errorf("MATCH_THRESHOLD fora de 0..100: %d", c.MatchThreshold)
	}
	return nil
}

func (c Config) CleanupIdle() time.Duration {
	return time.Duration(c.CleanupIdleDays) * 24 * time.Hour
}
