package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// CurrentConfigVersion is the expected version of the config file.
const CurrentConfigVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int              `koanf:"version"`
	Debug      Debug            `koanf:"debug"`
	Discord    Discord          `koanf:"discord"`
	PostgreSQL PostgreSQL       `koanf:"postgresql"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Moderation Moderation       `koanf:"moderation"`
	Retention  Retention        `koanf:"retention"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Prefix for owner commands.
	Prefix string `koanf:"prefix"`
	// User IDs allowed to run owner commands such as setup.
	OwnerIDs []uint64 `koanf:"owner_ids"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// ClassifierConfig contains toxicity scoring service configuration.
type ClassifierConfig struct {
	// Endpoint URL of the scoring service.
	Endpoint string `koanf:"endpoint"`
	// User agent sent with scoring requests.
	UserAgent string `koanf:"user_agent"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
}

// Moderation contains moderation pipeline configuration.
type Moderation struct {
	// Default minimum toxicity percentage for new guilds (0-100).
	DefaultMinimumToxicity int `koanf:"default_minimum_toxicity"`
}

// Retention contains message retention configuration.
type Retention struct {
	// How long messages are kept, in days.
	WindowDays int `koanf:"window_days"`
	// How often the retention worker sweeps, in hours.
	SweepIntervalHours int `koanf:"sweep_interval_hours"`
}

// LoadConfig loads the configuration from the first config.toml found in the
// search paths. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".toxbot",
		homeDir + "/.toxbot/config",
		"/etc/toxbot/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/config.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: config.toml", ErrConfigFileNotFound)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version); err != nil {
		return nil, "", err
	}

	config.applyDefaults()

	return &config, usedConfigPath, nil
}

// applyDefaults fills in fallback values for optional settings.
func (c *Config) applyDefaults() {
	if c.Debug.LogLevel == "" {
		c.Debug.LogLevel = "info"
	}

	if c.Discord.Prefix == "" {
		c.Discord.Prefix = "!"
	}

	if c.Classifier.UserAgent == "" {
		c.Classifier.UserAgent = "toxbot"
	}

	if c.Classifier.RequestTimeout <= 0 {
		c.Classifier.RequestTimeout = 5000
	}

	if c.Moderation.DefaultMinimumToxicity <= 0 {
		c.Moderation.DefaultMinimumToxicity = 50
	}

	if c.Retention.WindowDays <= 0 {
		c.Retention.WindowDays = 30
	}

	if c.Retention.SweepIntervalHours <= 0 {
		c.Retention.SweepIntervalHours = 24
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current int) error {
	if current == 0 {
		return fmt.Errorf("%w: config.toml", ErrConfigVersionMissing)
	}

	if current != CurrentConfigVersion {
		return fmt.Errorf("%w: config.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, current, CurrentConfigVersion)
	}

	return nil
}
