package core

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds everything a migration run needs. Connection strings come from the environment only.
type Config struct {
	Env      string
	Debug    bool
	LogLevel string
	Build    string

	SourceURL string // v3 store
	DestURL   string // v4 store (pooled)
	DirectURL string // v4 store, non-pooled override

	MappingDir        string
	OrderNumberPrefix string
	RollbarToken      string
}

// env keys
const (
	EnvSourceURL = "V3_DATABASE_URL"
	EnvDestURL   = "DATABASE_URL"
	EnvDirectURL = "DIRECT_URL"
)

var (
	getwdFunc = os.Getwd // mockable

	// order numbers are PREFIX-YYYYMMDD-NNNN, so the prefix itself cannot hold a dash
	orderNumberPrefixRegex = regexp.MustCompile(`^[A-Z0-9]+$`)
)

func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("logLevel", "info")
	v.SetDefault("build", "dev")
	v.SetDefault("mappingDir", "migration-data")
	v.SetDefault("orderNumberPrefix", "TA")

	env := strings.ToUpper(strings.TrimSpace(os.Getenv("ENV"))) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("debug", env == "DEV")

	// load .env files if they exist (ignore if they do not)
	wd, err := getwdFunc()
	if err != nil {
		return nil, errors.Wrap(err, "config.getwd")
	}
	for _, name := range []string{".env." + strings.ToLower(env), ".env"} {
		if err := loadDotEnv(filepath.Join(wd, name)); err != nil {
			return nil, err
		}
	}

	bindings := map[string]string{
		"debug":             "DEBUG",
		"logLevel":          "LOG_LEVEL",
		"build":             "BUILD",
		"sourceURL":         EnvSourceURL,
		"destURL":           EnvDestURL,
		"directURL":         EnvDirectURL,
		"mappingDir":        "MIGRATION_DATA_DIR",
		"orderNumberPrefix": "ORDER_NUMBER_PREFIX",
		"rollbarToken":      "ROLLBAR_TOKEN",
	}
	for key, envVar := range bindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, errors.Wrapf(err, "config.BindEnv(%s)", envVar)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:               env,
		Debug:             v.GetBool("debug"),
		LogLevel:          strings.ToLower(v.GetString("logLevel")),
		Build:             v.GetString("build"),
		SourceURL:         strings.TrimSpace(v.GetString("sourceURL")),
		DestURL:           strings.TrimSpace(v.GetString("destURL")),
		DirectURL:         strings.TrimSpace(v.GetString("directURL")),
		MappingDir:        v.GetString("mappingDir"),
		OrderNumberPrefix: strings.ToUpper(strings.TrimSpace(v.GetString("orderNumberPrefix"))),
		RollbarToken:      v.GetString("rollbarToken"),
	}, nil
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "config.godotenv(%s)", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "config.os.Stat(%s)", path)
	}
	return nil
}

// DestinationURL prefers the direct (non-pooled) connection string when one is set.
func (c *Config) DestinationURL() string {
	if c.DirectURL != "" {
		return c.DirectURL
	}
	return c.DestURL
}

// Validate reports every missing connection string at once.
func (c *Config) Validate() error {
	var missing []string
	if c.SourceURL == "" {
		missing = append(missing, EnvSourceURL)
	}
	if c.DestinationURL() == "" {
		missing = append(missing, EnvDestURL)
	}
	if len(missing) > 0 {
		return NewConfigError("missing required environment variables", missing...)
	}
	if c.OrderNumberPrefix == "" {
		return NewConfigError("order number prefix must not be empty")
	}
	if prefix := strings.ToUpper(strings.TrimSpace(c.OrderNumberPrefix)); !orderNumberPrefixRegex.MatchString(prefix) {
		return NewConfigError(fmt.Sprintf("order number prefix %q must contain only letters and digits", c.OrderNumberPrefix))
	}
	return nil
}

// ValidateDestination is enough for commands that never read the v3 store.
func (c *Config) ValidateDestination() error {
	if c.DestinationURL() == "" {
		return NewConfigError("missing required environment variables", EnvDestURL)
	}
	return nil
}
