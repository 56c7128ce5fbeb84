// Package config provides configuration loading and gateway connection
// resolution.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Gateway   RawSettings     `mapstructure:"gateway"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// RawSettings carries the gateway settings exactly as supplied, before
// resolution. Port is a string so that a non-numeric explicit value can be
// rejected rather than silently zeroed.
type RawSettings struct {
	Gateway   string `mapstructure:"host"`
	Host      string `mapstructure:"legacy_host"`
	Protocol  string `mapstructure:"protocol"`
	Port      string `mapstructure:"port"`
	TimeoutMs string `mapstructure:"timeout_ms"`
	Logging   bool   `mapstructure:"logging"`
	WalletKey string `mapstructure:"wallet_key"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARWEAVE")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARWEAVE_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARWEAVE_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARWEAVE_LOG_LEVEL", "LOG_LEVEL")

	// Gateway
	v.BindEnv("gateway.host", "ARWEAVE_GATEWAY")
	v.BindEnv("gateway.legacy_host", "ARWEAVE_HOST")
	v.BindEnv("gateway.protocol", "ARWEAVE_PROTOCOL")
	v.BindEnv("gateway.port", "ARWEAVE_PORT")
	v.BindEnv("gateway.timeout_ms", "ARWEAVE_TIMEOUT_MS")
	v.BindEnv("gateway.logging", "ARWEAVE_LOGGING")
	v.BindEnv("gateway.wallet_key", "ARWEAVE_WALLET_KEY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARWEAVE_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARWEAVE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARWEAVE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "permaweb-agent")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Gateway defaults live in Resolve, not here: the port default depends on
	// the resolved host, and explicit-vs-defaulted must stay distinguishable.

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "permaweb-agent")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Getter is the narrow capability the agent runtime exposes for setting
// lookup. Any host framework able to answer GetSetting can drive the
// resolver.
type Getter interface {
	GetSetting(key string) (string, bool)
}

// Setting keys consumed from a runtime Getter.
const (
	SettingGateway   = "ARWEAVE_GATEWAY"
	SettingHost      = "ARWEAVE_HOST"
	SettingProtocol  = "ARWEAVE_PROTOCOL"
	SettingPort      = "ARWEAVE_PORT"
	SettingTimeoutMs = "ARWEAVE_TIMEOUT_MS"
	SettingLogging   = "ARWEAVE_LOGGING"
	SettingWalletKey = "ARWEAVE_WALLET_KEY"
)

// FromGetter builds RawSettings from a runtime's setting lookup.
func FromGetter(g Getter) RawSettings {
	get := func(key string) string {
		val, ok := g.GetSetting(key)
		if !ok {
			return ""
		}
		return val
	}

	return RawSettings{
		Gateway:   get(SettingGateway),
		Host:      get(SettingHost),
		Protocol:  get(SettingProtocol),
		Port:      get(SettingPort),
		TimeoutMs: get(SettingTimeoutMs),
		Logging:   get(SettingLogging) == "true",
		WalletKey: get(SettingWalletKey),
	}
}
