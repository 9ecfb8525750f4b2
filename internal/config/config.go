package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	PayFast      PayFastConfig      `mapstructure:"payfast"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Notification NotificationConfig `mapstructure:"notification"`
	CORS         CORSConfig         `mapstructure:"cors"`
}

type AppConfig struct {
	Env string `mapstructure:"env" validate:"required"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

// PayFastConfig holds the merchant credentials and callback URLs. Loaded once
// at start-up and never mutated.
type PayFastConfig struct {
	MerchantID     string `mapstructure:"merchant_id" validate:"required"`
	MerchantKey    string `mapstructure:"merchant_key" validate:"required"`
	Passphrase     string `mapstructure:"passphrase"`
	Sandbox        bool   `mapstructure:"sandbox"`
	ReturnURL      string `mapstructure:"return_url" validate:"omitempty,url"`
	CancelURL      string `mapstructure:"cancel_url" validate:"omitempty,url"`
	NotifyURL      string `mapstructure:"notify_url" validate:"required,url"`
	PlatformFeeBPS int    `mapstructure:"platform_fee_bps" validate:"gte=0,lte=10000"`
}

type LoggerConfig struct {
	Level        string `mapstructure:"level" validate:"oneof=debug info warn error fatal"`
	Format       string `mapstructure:"format" validate:"oneof=json console"`
	Output       string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	EnableColors bool   `mapstructure:"enable_colors"`
	FilePath     string `mapstructure:"file_path"`
	MaxSize      int    `mapstructure:"max_size"`
	MaxBackups   int    `mapstructure:"max_backups"`
	MaxAge       int    `mapstructure:"max_age"`
	Compress     bool   `mapstructure:"compress"`
}

type NotificationConfig struct {
	Retention time.Duration `mapstructure:"retention" validate:"gt=0"`
	// CleanupInterval schedules in-process cleanup; zero leaves it to cmd/notification_cleanup.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config.yaml from configPath (optional) and overlays environment
// variables. Keys map to env names by upper-casing and replacing "." with "_",
// e.g. payfast.merchant_id is PAYFAST_MERCHANT_ID.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "."
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config failed validation: %w", err)
	}
	return &cfg, nil
}

func bindEnvVariables(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}
}

func normalize(cfg *Config) {
	cfg.App.Env = strings.ToLower(strings.TrimSpace(cfg.App.Env))
	cfg.PayFast.MerchantID = strings.TrimSpace(cfg.PayFast.MerchantID)
	cfg.PayFast.MerchantKey = strings.TrimSpace(cfg.PayFast.MerchantKey)
	cfg.JWT.Secret = strings.TrimSpace(cfg.JWT.Secret)

	// CORS_ALLOWED_ORIGINS arrives as one comma separated string.
	var origins []string
	for _, o := range cfg.CORS.AllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	cfg.CORS.AllowedOrigins = origins
}

// IsProduction reports whether the deployment talks to real money.
func (c *Config) IsProduction() bool {
	return isProdLike(c.App.Env)
}
