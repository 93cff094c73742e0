package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/sistema-fic/models"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// DefaultTemperature applies when the config file has no ai.temperature key
const DefaultTemperature = 0.3

type AIConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Enabled reports whether an AI endpoint has been configured
func (a AIConfig) Enabled() bool {
	return a.Endpoint != "" && a.Model != ""
}

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	JWTSecret    string
	IPHashSalt   string
	ConfigFile   string
	LogLevel     string

	// From the YAML file
	Dimensions         []models.Dimension
	AI                 AIConfig
	SessionIdleTimeout time.Duration
	AdminTokenTTL      time.Duration
}

// fileConfig is the layout of the optional YAML config file
type fileConfig struct {
	Dimensions         []models.Dimension `yaml:"dimensions"`
	AI                 AIConfig           `yaml:"ai"`
	SessionIdleTimeout time.Duration      `yaml:"session_idle_timeout"`
	AdminTokenTTL      time.Duration      `yaml:"admin_token_ttl"`
}

// ParseFlags reads flags, then environment (.env included), then the YAML file
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	cfg.AI.Temperature = DefaultTemperature

	flags := flag.NewFlagSet("sistema-fic", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	flags.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	flags.StringVar(&cfg.ConfigFile, "c", "", "YAML config file (dimensions, AI)")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Admin token signing secret (prefer env)")
	flags.StringVar(&cfg.IPHashSalt, "ip-salt", "", "Salt for voter IP hashes (prefer env)")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	// .env never overrides variables already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8080 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = InferDatabaseType(cfg.DatabaseURL)
	}
	if cfg.DatabaseType != DatabasePostgres && cfg.DatabaseType != DatabaseSQLite {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.ConfigFile == "" {
		cfg.ConfigFile = os.Getenv("FIC_CONFIG")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	}
	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = cfg.JWTSecret // Reuse the signing secret for IP hashing
	}

	if cfg.ConfigFile != "" {
		if err := cfg.loadFile(cfg.ConfigFile); err != nil {
			return Config{}, err
		}
	}

	// AI settings from env win over the file
	if v := os.Getenv("AI_ENDPOINT"); v != "" {
		cfg.AI.Endpoint = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// InferDatabaseType picks postgres for postgres:// URLs and sqlite otherwise
func InferDatabaseType(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DatabasePostgres
	}
	return DatabaseSQLite
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Keys absent from the file keep the values already in c
	fc := fileConfig{AI: c.AI}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	c.Dimensions = fc.Dimensions
	c.AI = fc.AI
	c.SessionIdleTimeout = fc.SessionIdleTimeout
	c.AdminTokenTTL = fc.AdminTokenTTL
	return nil
}

func (c *Config) applyDefaults() {
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 2 * time.Minute
	}
	if c.AI.MaxAttempts == 0 {
		c.AI.MaxAttempts = 2
	}
	if c.SessionIdleTimeout == 0 {
		c.SessionIdleTimeout = 2 * time.Hour
	}
	if c.AdminTokenTTL == 0 {
		c.AdminTokenTTL = 12 * time.Hour
	}
}

// Validate checks values that flags and env cannot express on their own
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2")
	}
	seen := make(map[string]bool, len(c.Dimensions))
	for _, d := range c.Dimensions {
		if d.Key == "" {
			return errors.New("dimension key is required")
		}
		if d.Key == models.DimensionAll {
			return fmt.Errorf("dimension key %q is reserved", models.DimensionAll)
		}
		if seen[d.Key] {
			return fmt.Errorf("duplicate dimension key %q", d.Key)
		}
		seen[d.Key] = true
	}
	return nil
}

// HasDimension reports whether key is accepted. An empty catalogue accepts any key.
func (c *Config) HasDimension(key string) bool {
	if len(c.Dimensions) == 0 {
		return key != "" && key != models.DimensionAll
	}
	for _, d := range c.Dimensions {
		if d.Key == key {
			return true
		}
	}
	return false
}
