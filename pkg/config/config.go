// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string `env:"botToken"`
	DevGuildID string `env:"devGuildId"`

	// MongoDB
	MongoDBURL string `env:"mongodbUrl" envDefault:"mongodb://localhost:27017"`
	DBName     string `env:"dbName" envDefault:"Valeriyya"`

	// MQTT
	MQTTHost     string `env:"MQTT_Host" envDefault:"localhost"`
	MQTTPort     string `env:"MQTT_Port" envDefault:"1883"`
	MQTTUser     string `env:"MQTT_User"`
	MQTTPassword string `env:"MQTT_Password"`

	// Web Server
	Port string `env:"PORT" envDefault:"3000"`
	// AllowedHosts is a host regexp the API answers to, empty allows every host
	AllowedHosts string `env:"allowedHosts"`

	// Environment
	Environment string `env:"enviroment" envDefault:"dev"`

	// Webhooks
	ErrorWebhook string `env:"errorWebhook"`
	LogsWebhook  string `env:"logsWebhook"`

	// Cache
	GuildCacheSize int `env:"guildCacheSize" envDefault:"1000"`
}

var (
	Version   = "Dev-Local"
	BuildTime = "unknown"
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	c := &Config{}
	if err := env.Parse(c); err != nil {
		cfgErr = fmt.Errorf("parse environment: %w", err)
	}
	cfg = c
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, cfgErr
}

// Get returns the current configuration
func Get() *Config {
	// Use sync.Once to ensure thread-safe initialization if Load wasn't called
	cfgOnce.Do(loadConfig)
	return cfg
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// MQTTBroker returns the broker address in the form paho expects
func (c *Config) MQTTBroker() string {
	return fmt.Sprintf("tcp://%s:%s", c.MQTTHost, c.MQTTPort)
}
