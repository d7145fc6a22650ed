package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type UpstreamsConfig struct {
	LegacyURL  string `mapstructure:"legacy_url"`
	NativeURL  string `mapstructure:"native_url"`
	CognitoURL string `mapstructure:"cognito_url"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type ABTestConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	SplitPercentage int    `mapstructure:"split_percentage"`
	SplitByUser     bool   `mapstructure:"split_by_user"`
	AdminOverride   string `mapstructure:"admin_override"`
}

type SamplingConfig struct {
	Rate float64 `mapstructure:"rate"`
}

type MonitorConfig struct {
	Window             string  `mapstructure:"window"`
	ErrorRateThreshold float64 `mapstructure:"error_rate_threshold"`
	LatencyThreshold   string  `mapstructure:"latency_threshold"`
	WebhookURL         string  `mapstructure:"webhook_url"`
}

type RetentionConfig struct {
	MaxAge        string `mapstructure:"max_age"`
	SweepInterval string `mapstructure:"sweep_interval"`
	BufferSize    int    `mapstructure:"buffer_size"`
	PersistSize   int    `mapstructure:"persist_size"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Upstreams   UpstreamsConfig   `mapstructure:"upstreams"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Features    map[string]string `mapstructure:"features"`
	ABTest      ABTestConfig      `mapstructure:"ab_test"`
	Sampling    SamplingConfig    `mapstructure:"sampling"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	Store       StoreConfig       `mapstructure:"store"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("health_check.interval", "10s")
	for _, f := range feature.All() {
		viper.SetDefault("features."+string(f), string(feature.ModeLegacy))
	}
	viper.SetDefault("ab_test.enabled", false)
	viper.SetDefault("ab_test.split_percentage", 50)
	viper.SetDefault("ab_test.split_by_user", true)
	viper.SetDefault("sampling.rate", 1.0)
	viper.SetDefault("monitor.window", "10m")
	viper.SetDefault("monitor.error_rate_threshold", 0.05)
	viper.SetDefault("monitor.latency_threshold", "2s")
	viper.SetDefault("retention.max_age", "24h")
	viper.SetDefault("retention.sweep_interval", "1h")
	viper.SetDefault("retention.buffer_size", 1000)
	viper.SetDefault("retention.persist_size", 100)
	viper.SetDefault("store.path", "./data")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Upstreams,
			validation.Required,
			validation.By(func(value interface{}) error {
				uc, ok := value.(UpstreamsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamsConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.LegacyURL, validation.Required, validation.By(validateServerURL)),
					validation.Field(&uc.NativeURL, validation.Required, validation.By(validateServerURL)),
					validation.Field(&uc.CognitoURL, validation.By(validateOptionalServerURL)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Features,
			validation.Required,
			validation.By(validateFeatureModes),
		),
		validation.Field(&c.ABTest,
			validation.By(func(value interface{}) error {
				ab, ok := value.(ABTestConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an ABTestConfig")
				}
				return validation.ValidateStruct(&ab,
					validation.Field(&ab.SplitPercentage,
						validation.Min(0),
						validation.Max(100),
					),
					validation.Field(&ab.AdminOverride,
						validation.In(
							string(feature.SystemLegacy),
							string(feature.SystemNative),
							string(feature.SystemCognito),
						),
					),
				)
			}),
		),
		validation.Field(&c.Sampling,
			validation.By(func(value interface{}) error {
				sc, ok := value.(SamplingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a SamplingConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Rate,
						validation.Min(0.0),
						validation.Max(1.0),
					),
				)
			}),
		),
		validation.Field(&c.Monitor,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MonitorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Window, validation.Required, validation.By(validateDuration)),
					validation.Field(&mc.LatencyThreshold, validation.Required, validation.By(validateDuration)),
					validation.Field(&mc.ErrorRateThreshold, validation.Min(0.0), validation.Max(1.0)),
					validation.Field(&mc.WebhookURL, validation.By(validateOptionalServerURL)),
				)
			}),
		),
		validation.Field(&c.Retention,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RetentionConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RetentionConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.MaxAge, validation.Required, validation.By(validateDuration)),
					validation.Field(&rc.SweepInterval, validation.Required, validation.By(validateDuration)),
					validation.Field(&rc.BufferSize, validation.Required, validation.Min(1)),
					validation.Field(&rc.PersistSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Store,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StoreConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StoreConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Path, validation.Required),
				)
			}),
		),
	)
}

// FeatureDefaults converts the configured feature mode map to typed
// defaults for the flags registry.
func (c *Config) FeatureDefaults() map[feature.Feature]feature.Mode {
	defaults := make(map[feature.Feature]feature.Mode, len(c.Features))
	for name, mode := range c.Features {
		defaults[feature.Feature(name)] = feature.Mode(mode)
	}
	return defaults
}

func validateFeatureModes(value interface{}) error {
	modes, ok := value.(map[string]string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a feature mode map")
	}

	for name, mode := range modes {
		f := feature.Feature(name)
		if !f.Valid() {
			return validation.NewError("validation_unknown_feature", "unknown feature "+name)
		}
		if !feature.Mode(mode).ValidFor(f) {
			return validation.NewError("validation_invalid_mode", "mode "+mode+" is not valid for feature "+name)
		}
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateOptionalServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return nil
	}

	return validateServerURL(value)
}
