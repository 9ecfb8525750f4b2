package config

import "github.com/spf13/viper"

const (
	defaultJWTSecret = "change-me-jwt-secret"
	defaultDSN       = "file:churchpay.db?_pragma=busy_timeout(5000)"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("database.url", defaultDSN)

	v.SetDefault("jwt.secret", defaultJWTSecret)

	v.SetDefault("payfast.merchant_id", "")
	v.SetDefault("payfast.merchant_key", "")
	v.SetDefault("payfast.passphrase", "")
	v.SetDefault("payfast.sandbox", true)
	v.SetDefault("payfast.return_url", "")
	v.SetDefault("payfast.cancel_url", "")
	v.SetDefault("payfast.notify_url", "")
	v.SetDefault("payfast.platform_fee_bps", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.enable_colors", false)
	v.SetDefault("logger.file_path", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("notification.retention", "2160h")
	v.SetDefault("notification.cleanup_interval", "24h")

	v.SetDefault("cors.allowed_origins", []string{})
}
