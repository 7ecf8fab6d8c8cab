package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig namespace shared by every binary.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Azul         AzulConfig
	RNC          RNCConfig
	Embeddings   EmbeddingsConfig
	Invoicing    InvoicingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONSTRUPLAZA_APP_ENV" required:"true"`
	Port         string `envconfig:"CONSTRUPLAZA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONSTRUPLAZA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONSTRUPLAZA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CONSTRUPLAZA_DB_DSN"`
	Driver string `envconfig:"CONSTRUPLAZA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CONSTRUPLAZA_DB_HOST"`
	Port     int    `envconfig:"CONSTRUPLAZA_DB_PORT" default:"5432"`
	User     string `envconfig:"CONSTRUPLAZA_DB_USER"`
	Password string `envconfig:"CONSTRUPLAZA_DB_PASSWORD"`
	Name     string `envconfig:"CONSTRUPLAZA_DB_NAME"`
	SSLMode  string `envconfig:"CONSTRUPLAZA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONSTRUPLAZA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONSTRUPLAZA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONSTRUPLAZA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONSTRUPLAZA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either CONSTRUPLAZA_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CONSTRUPLAZA_REDIS_URL" required:"true"`
	Password     string        `envconfig:"CONSTRUPLAZA_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONSTRUPLAZA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONSTRUPLAZA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONSTRUPLAZA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONSTRUPLAZA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONSTRUPLAZA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONSTRUPLAZA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CONSTRUPLAZA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CONSTRUPLAZA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CONSTRUPLAZA_JWT_EXPIRATION_MINUTES" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"CONSTRUPLAZA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKiB    uint32 `envconfig:"CONSTRUPLAZA_ARGON_MEMORY_KIB" default:"65536"`
	ArgonTime         uint32 `envconfig:"CONSTRUPLAZA_ARGON_TIME" default:"3"`
	ArgonParallelism  uint8  `envconfig:"CONSTRUPLAZA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLength   uint32 `envconfig:"CONSTRUPLAZA_ARGON_SALT_LENGTH" default:"16"`
	ArgonKeyLength    uint32 `envconfig:"CONSTRUPLAZA_ARGON_KEY_LENGTH" default:"32"`
	MinPasswordLength int    `envconfig:"CONSTRUPLAZA_MIN_PASSWORD_LENGTH" default:"8"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CONSTRUPLAZA_AUTO_MIGRATE" default:"false"`
}

// AzulConfig carries the merchant credentials for the Azul payment page.
type AzulConfig struct {
	BaseURL      string `envconfig:"CONSTRUPLAZA_AZUL_BASE_URL" default:"https://pagos.azul.com.do/PaymentPage/Default.aspx"`
	MerchantID   string `envconfig:"CONSTRUPLAZA_AZUL_MERCHANT_ID"`
	MerchantName string `envconfig:"CONSTRUPLAZA_AZUL_MERCHANT_NAME"`
	MerchantType string `envconfig:"CONSTRUPLAZA_AZUL_MERCHANT_TYPE" default:"E-Commerce"`
	CurrencyCode string `envconfig:"CONSTRUPLAZA_AZUL_CURRENCY_CODE" default:"$"`
	AuthKey      string `envconfig:"CONSTRUPLAZA_AZUL_AUTH_KEY"`
	ApprovedURL  string `envconfig:"CONSTRUPLAZA_AZUL_APPROVED_URL"`
	DeclinedURL  string `envconfig:"CONSTRUPLAZA_AZUL_DECLINED_URL"`
	CancelURL    string `envconfig:"CONSTRUPLAZA_AZUL_CANCEL_URL"`
}

type RNCConfig struct {
	BaseURL string        `envconfig:"CONSTRUPLAZA_RNC_BASE_URL"`
	Timeout time.Duration `envconfig:"CONSTRUPLAZA_RNC_TIMEOUT" default:"10s"`
}

type EmbeddingsConfig struct {
	BaseURL string        `envconfig:"CONSTRUPLAZA_EMBEDDINGS_BASE_URL" default:"https://api-inference.huggingface.co"`
	Model   string        `envconfig:"CONSTRUPLAZA_EMBEDDINGS_MODEL" default:"sentence-transformers/all-MiniLM-L6-v2"`
	APIKey  string        `envconfig:"CONSTRUPLAZA_EMBEDDINGS_API_KEY"`
	Timeout time.Duration `envconfig:"CONSTRUPLAZA_EMBEDDINGS_TIMEOUT" default:"30s"`
}

type InvoicingConfig struct {
	NCFSeries        string `envconfig:"CONSTRUPLAZA_NCF_SERIES" default:"B01"`
	NCFLowSupplyMark int64  `envconfig:"CONSTRUPLAZA_NCF_LOW_SUPPLY_MARK" default:"50"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"CONSTRUPLAZA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"CONSTRUPLAZA_PUBSUB_DOMAIN_TOPIC" default:"construplaza-domain-events"`
	AlertTopic  string `envconfig:"CONSTRUPLAZA_PUBSUB_ALERT_TOPIC" default:"construplaza-ops-alerts"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CONSTRUPLAZA_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"CONSTRUPLAZA_OUTBOX_POLL_INTERVAL" default:"500ms"`
	PublishTimeout time.Duration `envconfig:"CONSTRUPLAZA_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"CONSTRUPLAZA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}
