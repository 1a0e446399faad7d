// Package config loads the voxbridge runtime configuration from defaults, an
// optional YAML file, a .env file and VOXBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"voxbridge/packages/go/backend/session"
	"voxbridge/packages/go/backend/translation"
)

// EnvPrefix prefixes every environment override, e.g. VOXBRIDGE_SERVER_ADDR.
const EnvPrefix = "VOXBRIDGE"

// Config is the full runtime configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Translation TranslationConfig `mapstructure:"translation"`
	Languages   LanguagesConfig   `mapstructure:"languages"`
	Playback    PlaybackConfig    `mapstructure:"playback"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Addr               string        `mapstructure:"addr" validate:"required"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	HandshakeTimeout   time.Duration `mapstructure:"handshake_timeout" validate:"gt=0"`
}

type TranslationConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=libretranslate mymemory stub"`
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey   string        `mapstructure:"api_key"`
	Email    string        `mapstructure:"email" validate:"omitempty,email"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// Registry converts the section into the translation registry config.
func (t TranslationConfig) Registry() translation.Config {
	return translation.Config{
		Provider: t.Provider,
		Endpoint: t.Endpoint,
		APIKey:   t.APIKey,
		Email:    t.Email,
		Timeout:  t.Timeout,
	}
}

type LanguagesConfig struct {
	Source string `mapstructure:"source" validate:"required"`
	Target string `mapstructure:"target" validate:"required"`
}

type PlaybackConfig struct {
	AutoPlayDelay time.Duration `mapstructure:"autoplay_delay" validate:"gte=0"`
}

// RedisConfig enables the status mirror when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Password string `mapstructure:"password"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// Pair resolves the configured languages.
func (c Config) Pair() (session.Pair, error) {
	return session.NewPair(c.Languages.Source, c.Languages.Target)
}

// Validate checks struct constraints and the language pair.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Pair(); err != nil {
		return fmt.Errorf("invalid config: languages: %w", err)
	}
	return nil
}

type loaderOptions struct {
	configFile string
	envFile    string
}

// Option customises Load.
type Option func(*loaderOptions)

// WithConfigFile reads the given YAML file. A missing explicit file is an
// error.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile loads the given .env file instead of ./.env.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// Load builds and validates the configuration.
func Load(opts ...Option) (Config, error) {
	lo := loaderOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&lo)
	}

	if lo.envFile != "" {
		if _, err := os.Stat(lo.envFile); err == nil {
			if err := godotenv.Load(lo.envFile); err != nil {
				return Config{}, fmt.Errorf("load env file %s: %w", lo.envFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if lo.configFile != "" {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", lo.configFile, err)
		}
	} else {
		v.SetConfigName("voxbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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

// Default returns the built-in configuration without reading any source.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 120)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.handshake_timeout", 10*time.Second)

	v.SetDefault("translation.provider", "libretranslate")
	v.SetDefault("translation.endpoint", "")
	v.SetDefault("translation.api_key", "")
	v.SetDefault("translation.email", "")
	v.SetDefault("translation.timeout", 10*time.Second)

	v.SetDefault("languages.source", "ja")
	v.SetDefault("languages.target", "en")

	v.SetDefault("playback.autoplay_delay", 500*time.Millisecond)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// NewLogger builds the production JSON logger at the configured level.
func (l LogConfig) NewLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if l.Development {
		cfg = zap.NewDevelopmentConfig()
	}

	switch strings.ToLower(l.Level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}
