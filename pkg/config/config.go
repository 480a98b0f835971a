package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Orders        OrdersConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Notifications NotificationsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FARMLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMLINK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"FARMLINK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"FARMLINK_DB_DSN"`
	Driver string `envconfig:"FARMLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FARMLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"FARMLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FARMLINK_DB_USER"`
	LegacyPassword string `envconfig:"FARMLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FARMLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FARMLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FARMLINK_REDIS_ADDR"`
	Password     string        `envconfig:"FARMLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FARMLINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FARMLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FARMLINK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FARMLINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
	CookieName             string `envconfig:"FARMLINK_SESSION_COOKIE_NAME" default:"farmlink_session"`
	CookieSecure           bool   `envconfig:"FARMLINK_SESSION_COOKIE_SECURE" default:"true"`
}

func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FARMLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FARMLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FARMLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FARMLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FARMLINK_ARGON_KEY_LEN" default:"32"`
}

// OrdersConfig holds the order flow constants. The two low-stock thresholds
// intentionally differ: catalog edits and order-driven adjustments classify
// stock independently.
type OrdersConfig struct {
	DeliveryFee            string `envconfig:"FARMLINK_ORDERS_DELIVERY_FEE" default:"500"`
	OrderLowStockThreshold int    `envconfig:"FARMLINK_ORDERS_LOW_STOCK_THRESHOLD" default:"10"`
	CatalogLowStock        int    `envconfig:"FARMLINK_CATALOG_LOW_STOCK_THRESHOLD" default:"15"`
	StockRetryAttempts     uint64 `envconfig:"FARMLINK_STOCK_RETRY_ATTEMPTS" default:"5"`
}

// DeliveryFeeAmount parses DeliveryFee; validate guarantees it succeeds after Load.
func (o OrdersConfig) DeliveryFeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(o.DeliveryFee))
	if err != nil {
		return decimal.NewFromInt(DefaultDeliveryFee)
	}
	return fee
}

func (o OrdersConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(o.DeliveryFee))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvDeliveryFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvDeliveryFee)
	}
	if o.OrderLowStockThreshold < 0 || o.CatalogLowStock < 0 {
		return fmt.Errorf("low stock thresholds must not be negative")
	}
	return nil
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FARMLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int64         `envconfig:"FARMLINK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int64         `envconfig:"FARMLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FARMLINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int64         `envconfig:"FARMLINK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int64         `envconfig:"FARMLINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FARMLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FARMLINK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FARMLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FARMLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FARMLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"FARMLINK_PUBSUB_ORDERS_TOPIC" default:"farmlink-order-events"`
	OrdersSubscription string `envconfig:"FARMLINK_PUBSUB_ORDERS_SUBSCRIPTION" default:"farmlink-order-events-notifications"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"FARMLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"FARMLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"FARMLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"FARMLINK_OUTBOX_RETENTION" default:"720h"`
}

type NotificationsConfig struct {
	FromAddress  string        `envconfig:"FARMLINK_NOTIFICATIONS_FROM" default:"orders@farmlink.local"`
	ProcessedTTL time.Duration `envconfig:"FARMLINK_NOTIFICATIONS_PROCESSED_TTL" default:"168h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite || strings.EqualFold(db.Driver, DriverSQLite) {
		db.DSN = "file:farmlink.db?cache=shared"
		return nil
	}

	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	missing := []string{}
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
