package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the server configuration, read from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Editor   EditorConfig
}

// ServerConfig is where the HTTP server listens.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig selects and addresses the document store.
type DatabaseConfig struct {
	// Driver is postgres, sqlite or memory.
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// LogConfig is passed to the logging package.
type LogConfig struct {
	Level  string
	Format string
}

// EditorConfig tunes editing sessions.
type EditorConfig struct {
	// DefaultLanguage is the language of blocks created without one.
	DefaultLanguage string
	// SelectionUnits is runes or graphemes.
	SelectionUnits string
}

// Load reads a .env file when present and builds the configuration from the environment.
func Load() *Config {
	return LoadFile("")
}

// LoadFile is Load with an explicit env file. An empty path means ".env".
// A missing file is not an error: the process environment is used as is.
func LoadFile(path string) *Config {
	if path == "" {
		_ = godotenv.Load()
	} else {
		_ = godotenv.Load(path)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", ""),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			Name:       getEnv("DB_NAME", "transcriptions"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "transcriptions.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Editor: EditorConfig{
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "grc"),
			SelectionUnits:  getEnv("SELECTION_UNITS", "runes"),
		},
	}
}

// GetDatabaseConnectionString returns the DSN for the configured driver.
func (c *Config) GetDatabaseConnectionString() string {
	d := c.Database
	switch d.Driver {
	case "sqlite":
		return d.SQLitePath
	case "memory":
		return ""
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
}

// GetServerAddr returns host:port.
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
