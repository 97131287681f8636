// config/validation.go
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks c for missing or malformed settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be less than 0 seconds", ErrInvalidConfig)
	}
	if c.SafetyMargin < 0 {
		return fmt.Errorf("%w: safety margin cannot be less than 0 seconds", ErrInvalidConfig)
	}
	if c.ProxyURL == "" && (c.ProxyUsername != "" || c.ProxyPassword != "" || c.ProxyAuthToken != "") {
		return fmt.Errorf("%w: proxy credentials supplied without a proxy URL", ErrInvalidConfig)
	}

	return nil
}
