package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct rules and the cross-field checks that make start-up
// fail fast instead of failing per request.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if cfg.Logger.Output == "file" && strings.TrimSpace(cfg.Logger.FilePath) == "" {
		return fmt.Errorf("LOGGER_FILE_PATH is required when LOGGER_OUTPUT=file")
	}

	if isProdLike(cfg.App.Env) {
		if isEmptyOrDefault(cfg.JWT.Secret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.PayFast.Sandbox {
			return fmt.Errorf("in prod/release PAYFAST_SANDBOX must be false")
		}
		if !strings.HasPrefix(cfg.PayFast.NotifyURL, "https://") {
			return fmt.Errorf("in prod/release PAYFAST_NOTIFY_URL must use https")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
