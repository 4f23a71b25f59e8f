package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sale         SaleConfig
	FeatureFlags FeatureFlagsConfig
	Metrics      MetricsConfig
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
	if err := cfg.Sale.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"SALEMIN_APP_ENV" required:"true"`
	Port         string   `envconfig:"SALEMIN_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SALEMIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SALEMIN_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SALEMIN_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SALEMIN_DB_DSN"`
	Driver string `envconfig:"SALEMIN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SALEMIN_DB_HOST"`
	LegacyPort     int    `envconfig:"SALEMIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SALEMIN_DB_USER"`
	LegacyPassword string `envconfig:"SALEMIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"SALEMIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"SALEMIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SALEMIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SALEMIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SALEMIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SALEMIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL             string        `envconfig:"SALEMIN_REDIS_URL" required:"true"`
	Address         string        `envconfig:"SALEMIN_REDIS_ADDR"`
	Password        string        `envconfig:"SALEMIN_REDIS_PASSWORD"`
	DB              int           `envconfig:"SALEMIN_REDIS_DB" default:"0"`
	PoolSize        int           `envconfig:"SALEMIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns    int           `envconfig:"SALEMIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout     time.Duration `envconfig:"SALEMIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout     time.Duration `envconfig:"SALEMIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"SALEMIN_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL  time.Duration `envconfig:"SALEMIN_IDEMPOTENCY_TTL" default:"24h"`
	CatalogCacheTTL time.Duration `envconfig:"SALEMIN_CATALOG_CACHE_TTL" default:"5m"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SALEMIN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SALEMIN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SALEMIN_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// SaleConfig seeds the sale configuration row and selects how the interactive
// path reacts to quantities under the minimum.
type SaleConfig struct {
	MinimumAmount   string `envconfig:"SALEMIN_SALE_MINIMUM_AMOUNT" default:"0"`
	QuantityPolicy  string `envconfig:"SALEMIN_QUANTITY_POLICY" default:"clamp"`
	UnitPriceDigits int32  `envconfig:"SALEMIN_UNIT_PRICE_DIGITS" default:"4"`
}

// MinimumAmountDecimal parses the configured default minimum amount.
func (s SaleConfig) MinimumAmountDecimal() (decimal.Decimal, error) {
	raw := strings.TrimSpace(s.MinimumAmount)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", EnvSaleMinimumAmount, err)
	}
	return amount, nil
}

// Policy returns the parsed quantity policy; callers rely on Load having
// validated it.
func (s SaleConfig) Policy() enums.QuantityPolicy {
	policy, err := enums.ParseQuantityPolicy(s.QuantityPolicy)
	if err != nil {
		return enums.QuantityPolicyClamp
	}
	return policy
}

func (s SaleConfig) validate() error {
	amount, err := s.MinimumAmountDecimal()
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvSaleMinimumAmount)
	}
	if _, err := enums.ParseQuantityPolicy(s.QuantityPolicy); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvSaleQuantityPolicy, err)
	}
	if s.UnitPriceDigits < 0 || s.UnitPriceDigits > 10 {
		return fmt.Errorf("%s must be between 0 and 10", EnvUnitPriceDigits)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"SALEMIN_AUTO_MIGRATE" default:"false"`
	CatalogCache bool `envconfig:"SALEMIN_CATALOG_CACHE" default:"true"`
}

// OutboxConfig tunes the relay that moves outbox rows to Redis streams.
type OutboxConfig struct {
	BatchSize      int   `envconfig:"SALEMIN_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int   `envconfig:"SALEMIN_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int   `envconfig:"SALEMIN_OUTBOX_MAX_ATTEMPTS" default:"10"`
	StreamMaxLen   int64 `envconfig:"SALEMIN_OUTBOX_STREAM_MAX_LEN" default:"100000"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"SALEMIN_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"SALEMIN_METRICS_PATH" default:"/metrics"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
