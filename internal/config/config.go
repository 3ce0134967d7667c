package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	CORS        CORSConfig
	Engine      EngineConfig
	Persistence PersistenceConfig
	Metrics     MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// EngineConfig holds calculation engine defaults.
type EngineConfig struct {
	// TablesPath optionally replaces the embedded NEC tables.
	TablesPath              string
	DefaultVoltage          float64
	DefaultMaterial         string
	VoltageDropLimitPercent float64
}

// PersistenceConfig controls the calculation history store.
type PersistenceConfig struct {
	Enabled bool
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "loadcalc")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("PERSISTENCE_ENABLED", false)
	v.SetDefault("NEC_TABLES_PATH", "")
	v.SetDefault("DEFAULT_SERVICE_VOLTAGE", 240)
	v.SetDefault("DEFAULT_CONDUCTOR_MATERIAL", "copper")
	v.SetDefault("VOLTAGE_DROP_LIMIT_PERCENT", 3)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	// Bind environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Engine: EngineConfig{
			TablesPath:              v.GetString("NEC_TABLES_PATH"),
			DefaultVoltage:          v.GetFloat64("DEFAULT_SERVICE_VOLTAGE"),
			DefaultMaterial:         strings.ToLower(v.GetString("DEFAULT_CONDUCTOR_MATERIAL")),
			VoltageDropLimitPercent: v.GetFloat64("VOLTAGE_DROP_LIMIT_PERCENT"),
		},
		Persistence: PersistenceConfig{
			Enabled: v.GetBool("PERSISTENCE_ENABLED"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
// Database settings are only checked when persistence is enabled.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Persistence.Enabled {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}

	if c.Engine.DefaultVoltage <= 0 {
		return fmt.Errorf("DEFAULT_SERVICE_VOLTAGE must be positive")
	}
	switch c.Engine.DefaultMaterial {
	case "copper", "aluminum":
	default:
		return fmt.Errorf("DEFAULT_CONDUCTOR_MATERIAL must be copper or aluminum, got %q", c.Engine.DefaultMaterial)
	}
	if c.Engine.VoltageDropLimitPercent <= 0 || c.Engine.VoltageDropLimitPercent > 100 {
		return fmt.Errorf("VOLTAGE_DROP_LIMIT_PERCENT must be in (0, 100]")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with /")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// Validate checks the connection settings needed to open a pool.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
