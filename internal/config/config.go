// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
//
// Required secrets (reader/LLM/email API keys, queue token, webhook secret)
// are deliberately NOT validated here: each component fails fast with a
// descriptive error at first use, so the service can boot with a partial
// configuration in development.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Reader  ReaderConfig  `mapstructure:"reader"`
	LLM     LLMConfig     `mapstructure:"llm"`
	PDF     PDFConfig     `mapstructure:"pdf"`
	Email   EmailConfig   `mapstructure:"email"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	GeoHeader     string `mapstructure:"geo_header"`
	EstimatedTime string `mapstructure:"estimated_time"`
}

// ReaderConfig configures the third-party reader API used for scraping.
type ReaderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LLMConfig configures the chat-completions endpoint and tier models.
type LLMConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	QuickModel        string  `mapstructure:"quick_model"`
	ProfessionalModel string  `mapstructure:"professional_model"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
}

// PDFConfig governs the headless rendering of reports.
type PDFConfig struct {
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
}

// EmailConfig configures the transactional email provider.
type EmailConfig struct {
	APIKey string `mapstructure:"api_key"`
	From   string `mapstructure:"from"`
}

// QueueConfig selects and configures the job delivery mechanism.
//
// Mode "qstash" publishes to the external queue service; mode "memory"
// runs jobs on the embedded worker pool and is only suitable for local
// development (no redelivery, no durability).
type QueueConfig struct {
	Mode            string `mapstructure:"mode"`
	Token           string `mapstructure:"token"`
	BaseURL         string `mapstructure:"base_url"`
	CallbackBaseURL string `mapstructure:"callback_base_url"`
	Retries         int    `mapstructure:"retries"`
	DelaySeconds    int    `mapstructure:"delay_seconds"`
	SigningKey      string `mapstructure:"signing_key"`
	NextSigningKey  string `mapstructure:"next_signing_key"`
	Depth           int    `mapstructure:"depth"`
}

// WebhookConfig holds the payment provider shared secret.
type WebhookConfig struct {
	PaddleSecret string `mapstructure:"paddle_secret"`
}

// LedgerConfig selects the completion ledger backend.
type LedgerConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// ArchiveConfig controls optional archiving of generated reports.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for completion event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// WorkerConfig governs the embedded worker pool used in memory mode.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONVERTFIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.geo_header", "X-Geo-Country")
	v.SetDefault("server.estimated_time", "2-3 minutes")
	v.SetDefault("reader.base_url", "https://r.jina.ai")
	v.SetDefault("reader.timeout_seconds", 30)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.quick_model", "gpt-4o-mini")
	v.SetDefault("llm.professional_model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 8000)
	v.SetDefault("llm.timeout_seconds", 120)
	v.SetDefault("pdf.nav_timeout_seconds", 45)
	v.SetDefault("email.from", "ConvertFix <audits@convertfix.app>")
	v.SetDefault("queue.mode", "memory")
	v.SetDefault("queue.base_url", "https://qstash.upstash.io")
	v.SetDefault("queue.retries", 3)
	v.SetDefault("queue.delay_seconds", 10)
	v.SetDefault("queue.depth", 64)
	v.SetDefault("ledger.driver", "memory")
	v.SetDefault("ledger.table", "audit_completions")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.backend", "local")
	v.SetDefault("archive.base_dir", "reports")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Reader.TimeoutSeconds <= 0 {
		return fmt.Errorf("reader.timeout_seconds must be > 0")
	}
	switch c.Queue.Mode {
	case "memory", "qstash":
	default:
		return fmt.Errorf("queue.mode must be memory or qstash, got %q", c.Queue.Mode)
	}
	switch c.Ledger.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("ledger.driver must be memory or postgres, got %q", c.Ledger.Driver)
	}
	if c.Ledger.Driver == "postgres" && c.Ledger.DSN == "" {
		return fmt.Errorf("ledger.dsn is required when ledger.driver is postgres")
	}
	if c.Archive.Enabled {
		switch c.Archive.Backend {
		case "local", "gcs", "memory":
		default:
			return fmt.Errorf("archive.backend must be local, gcs or memory, got %q", c.Archive.Backend)
		}
		if c.Archive.Backend == "gcs" && c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archive.backend is gcs")
		}
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	return nil
}

// ReaderTimeout converts the configured reader timeout into a duration.
func (c Config) ReaderTimeout() time.Duration {
	return time.Duration(c.Reader.TimeoutSeconds) * time.Second
}

// LLMTimeout converts the configured LLM timeout into a duration.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// NavTimeout converts the configured PDF navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.PDF.NavTimeoutSec) * time.Second
}
