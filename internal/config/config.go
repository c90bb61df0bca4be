package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	Port        string `mapstructure:"PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Database configuration
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	DatabaseHost     string `mapstructure:"DB_HOST"`
	DatabasePort     string `mapstructure:"DB_PORT"`
	DatabaseUser     string `mapstructure:"DB_USER"`
	DatabasePassword string `mapstructure:"DB_PASSWORD"`
	DatabaseName     string `mapstructure:"DB_NAME"`
	DatabaseSSLMode  string `mapstructure:"DB_SSL_MODE"`

	// Redis configuration (cache and distributed leases)
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWT configuration
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	PasswordSalt   string        `mapstructure:"PASSWORD_SALT"`

	// CORS configuration
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	// Lease configuration
	LockLease time.Duration `mapstructure:"LOCK_LEASE"`

	// Join request configuration
	RequestTTL      time.Duration `mapstructure:"REQUEST_TTL"`
	ReapplyCooldown time.Duration `mapstructure:"REAPPLY_COOLDOWN"`

	// Team configuration
	MaxTeamMembers int `mapstructure:"MAX_TEAM_MEMBERS"`

	// Cache configuration
	CacheTTL       time.Duration `mapstructure:"CACHE_TTL"`
	CacheTTLJitter time.Duration `mapstructure:"CACHE_TTL_JITTER"`
	PinnedTTL      time.Duration `mapstructure:"PINNED_TTL"`

	// Background job configuration
	PrecacheCron  string        `mapstructure:"PRECACHE_CRON"`
	SweepInterval time.Duration `mapstructure:"SWEEP_INTERVAL"`
	JobsEnabled   bool          `mapstructure:"JOBS_ENABLED"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.DatabaseURL == "" {
		config.DatabaseURL = buildDatabaseURL(&config)
	}

	// Validate required fields
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PORT", "7100")
	viper.SetDefault("LOG_LEVEL", "info")

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "team_match")
	viper.SetDefault("DB_SSL_MODE", "disable")

	// Redis defaults
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	// JWT defaults
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("SESSION_TTL", 24*time.Hour)
	viper.SetDefault("PASSWORD_SALT", "team-match")

	// CORS defaults
	viper.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"})

	// Lease defaults. Acquisition never waits; holders get the lease for this
	// long before it expires on its own.
	viper.SetDefault("LOCK_LEASE", 10*time.Second)

	// Join request defaults
	viper.SetDefault("REQUEST_TTL", 7*24*time.Hour)
	viper.SetDefault("REAPPLY_COOLDOWN", 60*time.Second)

	// Team defaults
	viper.SetDefault("MAX_TEAM_MEMBERS", 6)

	// Cache defaults
	viper.SetDefault("CACHE_TTL", 5*time.Minute)
	viper.SetDefault("CACHE_TTL_JITTER", 3*time.Minute)
	viper.SetDefault("PINNED_TTL", 30*time.Minute)

	// Background job defaults
	viper.SetDefault("PRECACHE_CRON", "0 */6 * * *")
	viper.SetDefault("SWEEP_INTERVAL", 1*time.Hour)
	viper.SetDefault("JOBS_ENABLED", true)
}

func buildDatabaseURL(config *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		config.DatabaseUser,
		config.DatabasePassword,
		config.DatabaseHost,
		config.DatabasePort,
		config.DatabaseName,
		config.DatabaseSSLMode,
	)
}

func validate(config *Config) error {
	if config.Environment == "production" {
		if config.JWTSecret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	if config.DatabaseName == "" {
		return fmt.Errorf("database name is required")
	}

	if config.MaxTeamMembers < 1 {
		return fmt.Errorf("MAX_TEAM_MEMBERS must be at least 1")
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
