package shared

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the public client settings for the Spotify PKCE flow.
//
// There is no client secret: the verifier proves possession instead.
type SpotifyConfig struct {
	ClientID    string   `toml:"client_id" env:"WRAPPED_SPOTIFY_CLIENT_ID, overwrite"`
	RedirectURI string   `toml:"redirect_uri" env:"WRAPPED_SPOTIFY_REDIRECT_URI, overwrite"`
	Scopes      []string `toml:"scopes" env:"WRAPPED_SPOTIFY_SCOPES, overwrite"`
	AuthURL     string   `toml:"auth_url" env:"WRAPPED_SPOTIFY_AUTH_URL, overwrite"`
	TokenURL    string   `toml:"token_url" env:"WRAPPED_SPOTIFY_TOKEN_URL, overwrite"`
	APIURL      string   `toml:"api_url" env:"WRAPPED_SPOTIFY_API_URL, overwrite"`
}

// StorageConfig selects the key/value backend: memory, sqlite or redis.
type StorageConfig struct {
	Driver string `toml:"driver" env:"WRAPPED_STORAGE_DRIVER, overwrite"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"WRAPPED_DATABASE_PATH, overwrite"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains connection settings for the redis storage driver.
type RedisConfig struct {
	Addr     string `toml:"addr" env:"WRAPPED_REDIS_ADDR, overwrite"`
	Password string `toml:"password" env:"WRAPPED_REDIS_PASSWORD, overwrite"`
	DB       int    `toml:"db" env:"WRAPPED_REDIS_DB, overwrite"`
	Prefix   string `toml:"prefix"`
}

// ServerConfig contains settings for the local OAuth callback listener.
type ServerConfig struct {
	Host string `toml:"host" env:"WRAPPED_SERVER_HOST, overwrite"`
	Port int    `toml:"port" env:"WRAPPED_SERVER_PORT, overwrite"`
}

// LogConfig contains logger settings. File is only used while the TUI owns the terminal.
type LogConfig struct {
	Level      string `toml:"level" env:"WRAPPED_LOG_LEVEL, overwrite"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv loads envFile (if present) into the process environment and overlays any
// WRAPPED_* variables onto config. Unset variables leave the TOML values alone.
func ApplyEnv(ctx context.Context, config *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if err := envconfig.Process(ctx, config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate reports configuration that would make the authorization flow unusable.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	if sp.ClientID == "" || sp.ClientID == "your_spotify_client_id" {
		return fmt.Errorf("%w: credentials.spotify.client_id must be set", ErrMissingCredentials)
	}
	if sp.RedirectURI == "" {
		return fmt.Errorf("%w: credentials.spotify.redirect_uri must be set", ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	return nil
}
