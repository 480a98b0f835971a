package config

const EnvPrefix = "FARMLINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultDeliveryFee = 500
)

const (
	EnvAppEnv      = "FARMLINK_APP_ENV"
	EnvPort        = "FARMLINK_APP_PORT"
	EnvLogLevel    = "FARMLINK_LOG_LEVEL"
	EnvDBDSN       = "FARMLINK_DB_DSN"
	EnvDBHost      = "FARMLINK_DB_HOST"
	EnvDBUser      = "FARMLINK_DB_USER"
	EnvDBName      = "FARMLINK_DB_NAME"
	EnvRedisURL    = "FARMLINK_REDIS_URL"
	EnvJWTSecret   = "FARMLINK_JWT_SECRET"
	EnvJWTIssuer   = "FARMLINK_JWT_ISSUER"
	EnvJWTExpMins  = "FARMLINK_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite   = "FARMLINK_USE_SQLITE"
	EnvDeliveryFee = "FARMLINK_ORDERS_DELIVERY_FEE"

	EnvOrderLowStockThreshold   = "FARMLINK_ORDERS_LOW_STOCK_THRESHOLD"
	EnvCatalogLowStockThreshold = "FARMLINK_CATALOG_LOW_STOCK_THRESHOLD"
	EnvPubSubOrdersTopic        = "FARMLINK_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub          = "FARMLINK_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
