// Package config resolves portval settings from a TOML file, environment
// variables and runtime flags.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultDBName     = "portval.db"
	defaultConfigName = "portval.toml"
)

// Config holds all configuration for portval.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Valuation ValuationConfig `toml:"valuation"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig locates the SQLite database. DBPath wins over DataDir/DBName.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
	DBName  string `toml:"db_name"`
	DBPath  string `toml:"db_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level         string `toml:"level"`
	Format        string `toml:"format"`
	RetentionDays int    `toml:"retention_days"`
}

// ValuationConfig holds engine defaults.
type ValuationConfig struct {
	// TradePriceFallback is used when a trade request does not say whether
	// to fall back to the previous available price.
	TradePriceFallback bool `toml:"trade_price_fallback"`
}

var runtimeDataDir string
var runtimePort int

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// SetRuntimeDataDir overrides the data directory for this process.
func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

// SetRuntimePort overrides the listen port for this process. Non-positive
// values are ignored.
func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

func GetRuntimePort() int {
	return runtimePort
}

// NewDefaultConfig returns a Config with defaults applied.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Storage: StorageConfig{
			DBName: defaultDBName,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			RetentionDays: 7,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Storage.DBName == "" {
		cfg.Storage.DBName = defaultDBName
	}
	if cfg.Logging.RetentionDays <= 0 {
		cfg.Logging.RetentionDays = 7
	}
	return cfg, nil
}

// Load reads the default config locations: the app config dir, then the
// working directory, then PORTVAL_CONFIG.
func Load() (*Config, error) {
	return LoadConfig(DefaultConfigPaths()...)
}

// DefaultConfigPaths lists config files in merge order.
func DefaultConfigPaths() []string {
	var paths []string
	if dir, err := appConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, defaultConfigName))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, defaultConfigName))
	}
	if env := os.Getenv("PORTVAL_CONFIG"); env != "" {
		paths = append(paths, env)
	}
	return paths
}

func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PORTVAL_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("PORTVAL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dir := os.Getenv("PORTVAL_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if path := os.Getenv("PORTVAL_DB_PATH"); path != "" {
		cfg.Storage.DBPath = path
	}
	if level := os.Getenv("PORTVAL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PORTVAL_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if v := os.Getenv("PORTVAL_TRADE_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Valuation.TradePriceFallback = b
		}
	}
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "portval"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "portval"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "portval"), nil
	}
	return filepath.Join(configDir, "portval"), nil
}

// DataDir resolves and creates the data directory. A runtime override wins,
// then the configured directory, then the app config dir.
func (c *Config) DataDir() (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = c.Storage.DataDir
	}
	if dir == "" {
		var err error
		if dir, err = appConfigDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath resolves the database file path.
func (c *Config) DBPath() (string, error) {
	if c.Storage.DBPath != "" && runtimeDataDir == "" {
		return c.Storage.DBPath, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(c.Storage.DBName)
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dir, name), nil
}

// Port returns the runtime port override or the configured port.
func (c *Config) Port() int {
	if runtimePort > 0 {
		return runtimePort
	}
	return c.Server.Port
}

// Addr returns host:port for the HTTP listener.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Port()))
}

// GetDataDir resolves the data directory from the default config locations.
func GetDataDir() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.DataDir()
}

// GetDBPath resolves the database path from the default config locations.
func GetDBPath() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.DBPath()
}
