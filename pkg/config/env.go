package config

const EnvPrefix = "SALEMIN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "SALEMIN_APP_ENV"
	EnvPort         = "SALEMIN_APP_PORT"
	EnvLogLevel     = "SALEMIN_LOG_LEVEL"
	EnvLogWarnStack = "SALEMIN_LOG_WARN_STACK"

	EnvDBDSN      = "SALEMIN_DB_DSN"
	EnvDBHost     = "SALEMIN_DB_HOST"
	EnvDBPort     = "SALEMIN_DB_PORT"
	EnvDBUser     = "SALEMIN_DB_USER"
	EnvDBPassword = "SALEMIN_DB_PASSWORD"
	EnvDBName     = "SALEMIN_DB_NAME"
	EnvDBSSLMode  = "SALEMIN_DB_SSLMODE"

	EnvRedisURL        = "SALEMIN_REDIS_URL"
	EnvCatalogCacheTTL = "SALEMIN_CATALOG_CACHE_TTL"

	EnvJWTSecret  = "SALEMIN_JWT_SECRET"
	EnvJWTIssuer  = "SALEMIN_JWT_ISSUER"
	EnvJWTExpMins = "SALEMIN_JWT_EXPIRATION_MINUTES"

	EnvSaleMinimumAmount  = "SALEMIN_SALE_MINIMUM_AMOUNT"
	EnvSaleQuantityPolicy = "SALEMIN_QUANTITY_POLICY"
	EnvUnitPriceDigits    = "SALEMIN_UNIT_PRICE_DIGITS"

	EnvAutoMigrate  = "SALEMIN_AUTO_MIGRATE"
	EnvCatalogCache = "SALEMIN_CATALOG_CACHE"

	EnvMetricsEnabled = "SALEMIN_METRICS_ENABLED"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
