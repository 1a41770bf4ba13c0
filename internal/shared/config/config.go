package config

import (
	"fmt"

	"github.com/nemanja-m/gomandel/internal/shared/logging"
)

// LoggingConfig contains logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (c LoggingConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case logging.FormatJSON, logging.FormatText:
		return nil
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.Format)
	}
}
