package observability

import (
	"strings"

	"github.com/smallbiznis/donare/internal/config"
	"github.com/spf13/viper"
)

// Config holds logging, tracing and metrics settings.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig reads the OTEL_* and LOG_* environment on top of the application
// config. Export is enabled only when a collector endpoint is known.
func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()

	environment := stringOr(v.GetString("DEPLOYMENT_ENV"), cfg.Environment)
	defaultLevel := "info"
	if isDevEnv(environment) {
		defaultLevel = "debug"
	}
	v.SetDefault("LOG_LEVEL", defaultLevel)
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)

	endpoint := stringOr(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"), cfg.OTLPEndpoint)
	protocol := stringOr(v.GetString("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"), v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL"))

	enabled := endpoint != ""
	if raw := strings.TrimSpace(v.GetString("OTEL_ENABLED")); raw != "" {
		enabled = v.GetBool("OTEL_ENABLED")
	}

	return Config{
		ServiceName:          stringOr(cfg.AppName, "donare"),
		Environment:          environment,
		Version:              stringOr(v.GetString("SERVICE_VERSION"), cfg.AppVersion),
		LogLevel:             strings.ToLower(stringOr(v.GetString("LOG_LEVEL"), defaultLevel)),
		LogFormat:            strings.ToLower(stringOr(v.GetString("LOG_FORMAT"), "json")),
		OtelEnabled:          enabled,
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: strings.ToLower(protocol),
		OtelSamplingRatio:    v.GetFloat64("OTEL_SAMPLING_RATIO"),
	}
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func stringOr(value, def string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(def)
}
