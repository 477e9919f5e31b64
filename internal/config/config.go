// Package config loads command configuration from flags and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/d-kuro/archive-dater/internal/datebucket"
	"github.com/d-kuro/archive-dater/internal/errors"
	"github.com/d-kuro/archive-dater/internal/logging"
	"github.com/d-kuro/archive-dater/internal/report"
)

// EnvPrefix prefixes every environment variable, e.g. ARCHIVE_DATER_FORMAT.
const EnvPrefix = "ARCHIVE_DATER"

// Keys shared by flags and environment variables.
const (
	KeyFormat   = "format"
	KeyMaxDates = "max-dates"
	KeyLogLevel = "log-level"
)

// Config holds resolved settings.
type Config struct {
	Format   report.Format
	MaxDates int
	LogLevel string
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyFormat, string(report.Text), "Output format: text or json")
	fs.Int(KeyMaxDates, datebucket.DefaultMaxDates, "Maximum number of distinct dates (0 for no limit)")
	fs.String(KeyLogLevel, "warn", "Log level: debug, info, warn or error")
}

// Load resolves configuration. Precedence: flag set on the command line >
// ARCHIVE_DATER_* env var > LOG_LEVEL (log level only) > flag default.
// An unknown LOG_LEVEL is ignored; the prefixed variable and the flag are
// validated.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.ConfigurationWithCause("failed to bind flags", err)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" && !fs.Changed(KeyLogLevel) {
		_, known := logging.ParseLevel(level)
		if _, set := os.LookupEnv(EnvPrefix + "_LOG_LEVEL"); known && !set {
			v.Set(KeyLogLevel, level)
		}
	}

	format, err := report.ParseFormat(v.GetString(KeyFormat))
	if err != nil {
		return nil, err
	}

	maxDates := v.GetInt(KeyMaxDates)
	if maxDates < 0 {
		return nil, errors.Configuration(fmt.Sprintf("%s must not be negative, got %d", KeyMaxDates, maxDates))
	}

	level := v.GetString(KeyLogLevel)
	if _, ok := logging.ParseLevel(level); !ok {
		return nil, errors.Configuration(fmt.Sprintf("unknown log level %q", level))
	}

	return &Config{
		Format:   format,
		MaxDates: maxDates,
		LogLevel: level,
	}, nil
}
