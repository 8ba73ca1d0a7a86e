package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCatalogHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	SnowflakeNode int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis RedisConfig

	Identity IdentityConfig

	Audit AuditConfig

	RateLimit RateLimitConfig

	ImpactCacheTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// IdentityConfig names the headers the identity gateway sets on every request.
type IdentityConfig struct {
	ActorIDHeader   string
	ActorRoleHeader string
}

type AuditConfig struct {
	// Destination is one of "all", "db" or "log".
	Destination   string
	RetryMaxTries int
	RetryInterval time.Duration
	RelayInterval time.Duration
	RelayGrace    time.Duration
}

// RateLimitConfig bounds how fast one actor may mutate donations. It needs Redis.
type RateLimitConfig struct {
	Enabled       bool
	MutationRate  float64
	MutationBurst int
}

const (
	AuditDestinationAll = "all"
	AuditDestinationDB  = "db"
	AuditDestinationLog = "log"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "donare"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		SnowflakeNode: getenvInt64("SNOWFLAKE_NODE", 1),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", ""),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "donare"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},

		Identity: IdentityConfig{
			ActorIDHeader:   getenv("IDENTITY_ACTOR_ID_HEADER", "X-Actor-Id"),
			ActorRoleHeader: getenv("IDENTITY_ACTOR_ROLE_HEADER", "X-Actor-Role"),
		},

		Audit: AuditConfig{
			Destination:   normalizeAuditDestination(getenv("AUDIT_DESTINATION", AuditDestinationAll)),
			RetryMaxTries: getenvInt("AUDIT_RETRY_MAX_TRIES", 3),
			RetryInterval: getenvDuration("AUDIT_RETRY_INTERVAL", 50*time.Millisecond),
			RelayInterval: getenvDuration("AUDIT_RELAY_INTERVAL", 5*time.Second),
			RelayGrace:    getenvDuration("AUDIT_RELAY_GRACE", 30*time.Second),
		},

		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			MutationRate:  getenvFloat("RATE_LIMIT_MUTATION_RATE", 2),
			MutationBurst: getenvInt("RATE_LIMIT_MUTATION_BURST", 10),
		},

		ImpactCacheTTL: getenvDuration("IMPACT_CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeAuditDestination(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case AuditDestinationDB, AuditDestinationLog:
		return value
	default:
		return AuditDestinationAll
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
