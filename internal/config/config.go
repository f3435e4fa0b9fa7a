package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Encryption EncryptionConfig
	Redis      RedisConfig
	Log        LogConfig
	Nearby     NearbyConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port    int
	GinMode string
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	DBName       string
	SSLMode      string
	TestDBName   string // Separate database for testing
	MaxOpenConns int
	MaxIdleConns int
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// EncryptionConfig holds the at-rest encryption configuration
type EncryptionConfig struct {
	FieldKey string
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CatalogCacheTTL time.Duration
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// NearbyConfig holds the defaults for nearby queries
type NearbyConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return c.dsn(c.DBName)
}

// GetTestDSN returns the connection string for the test database on the same server
func (c *DatabaseConfig) GetTestDSN() string {
	return c.dsn(c.TestDBName)
}

func (c *DatabaseConfig) dsn(dbName string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, dbName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from environment variables.
// A .env file in the working directory is read first if present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			Username:     getEnv("DB_USERNAME", "postgres"),
			Password:     getEnv("DB_PASSWORD", "password"),
			DBName:       getEnv("DB_NAME", "yana"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			TestDBName:   getEnv("TEST_DB_NAME", "yana_test"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			AccessTTL:  getEnvAsDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: getEnvAsDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Encryption: EncryptionConfig{
			FieldKey: getEnv("FIELD_ENCRYPTION_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", "localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 10*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Nearby: NearbyConfig{
			DefaultRadiusKm: getEnvAsFloat("NEARBY_DEFAULT_RADIUS_KM", 5),
			MaxRadiusKm:     getEnvAsFloat("NEARBY_MAX_RADIUS_KM", 100),
		},
	}
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Encryption.FieldKey == "" {
		errs = append(errs, errors.New("FIELD_ENCRYPTION_KEY is required"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	// A max of zero leaves the radius unbounded
	if c.Nearby.DefaultRadiusKm <= 0 || c.Nearby.MaxRadiusKm < 0 ||
		(c.Nearby.MaxRadiusKm > 0 && c.Nearby.MaxRadiusKm < c.Nearby.DefaultRadiusKm) {
		errs = append(errs, fmt.Errorf("invalid nearby radius bounds: default %.2f, max %.2f",
			c.Nearby.DefaultRadiusKm, c.Nearby.MaxRadiusKm))
	}
	return errors.Join(errs...)
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
