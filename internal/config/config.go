package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Telegram  Telegram  `mapstructure:"telegram"`
	Auth      Auth      `mapstructure:"auth"`
	Retention Retention `mapstructure:"retention"`
	Logger    Logger    `mapstructure:"logger"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Telegram holds the configuration for the Telegram bot channel.
type Telegram struct {
	Enabled        bool    `mapstructure:"enabled"`
	BotToken       string  `mapstructure:"botToken"`
	ChatID         string  `mapstructure:"chatId"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Auth holds the dashboard credentials and the bulk-delete password.
type Auth struct {
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	DeletePassword    string `mapstructure:"delete_password"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
}

// Retention controls how long trade rows are kept before being purged.
type Retention struct {
	MaxAgeDays int `mapstructure:"max_age_days"`
	MaxRows    int `mapstructure:"max_rows"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("database.dsn", "trades.db")
	viper.SetDefault("telegram.enabled", true)
	viper.SetDefault("telegram.rate_limit", 1)       // messages per second
	viper.SetDefault("telegram.rate_limit_burst", 3) // burst size
	viper.SetDefault("telegram.timeout_seconds", 10)
	viper.SetDefault("auth.session_ttl_minutes", 720)
	viper.SetDefault("retention.max_age_days", 30)
	viper.SetDefault("retention.max_rows", 500)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
