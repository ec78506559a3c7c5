package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("botToken", "test-token")
	t.Setenv("PORT", "3001")
	t.Setenv("enviroment", "test")
	resetForTesting()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", config.BotToken)
	assert.Equal(t, "3001", config.Port)
	assert.Equal(t, "test", config.Environment)
}

func TestLoadInvalidCacheSize(t *testing.T) {
	t.Setenv("guildCacheSize", "lots")
	resetForTesting()

	_, err := Load()
	assert.Error(t, err)
}

func TestIsProd(t *testing.T) {
	t.Setenv("enviroment", "prod")
	resetForTesting()
	config, _ := Load()
	assert.True(t, config.IsProd())

	t.Setenv("enviroment", "dev")
	resetForTesting()
	config, _ = Load()
	assert.False(t, config.IsProd())
}

func TestGet(t *testing.T) {
	resetForTesting()

	config := Get()
	require.NotNil(t, config)

	// Get should return the same config on subsequent calls
	assert.Same(t, config, Get())
}

func TestDefaultValues(t *testing.T) {
	for _, key := range []string{"botToken", "devGuildId", "mongodbUrl", "dbName", "MQTT_Host", "MQTT_Port", "PORT", "enviroment", "guildCacheSize", "allowedHosts"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	resetForTesting()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", config.MongoDBURL)
	assert.Equal(t, "Valeriyya", config.DBName)
	assert.Equal(t, "localhost", config.MQTTHost)
	assert.Equal(t, "1883", config.MQTTPort)
	assert.Equal(t, "3000", config.Port)
	assert.Equal(t, "dev", config.Environment)
	assert.Equal(t, 1000, config.GuildCacheSize)
	assert.Empty(t, config.AllowedHosts)
	assert.Equal(t, "tcp://localhost:1883", config.MQTTBroker())
}
