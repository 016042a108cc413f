package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	defaults := Config
	t.Cleanup(func() { Config = defaults })

	t.Run("defaults survive", func(t *testing.T) {
		Config = defaults
		require.NoError(t, Load(""))
		assert.Equal(t, defaults, Config)
	})

	t.Run("environment overrides", func(t *testing.T) {
		Config = defaults
		t.Setenv("FLIPPER_ADDR", ":1234")
		t.Setenv("FLIPPER_LOGLEVEL", "debug")
		t.Setenv("FLIPPER_POSTGRES_HOSTNAME", "db.internal")
		t.Setenv("FLIPPER_SESSIONS_LIFETIME", "336h")
		t.Setenv("FLIPPER_REGISTRATION_USERNAMEMAXLENGTH", "20")

		require.NoError(t, Load(""))
		assert.Equal(t, ":1234", Config.Addr)
		assert.Equal(t, zerolog.DebugLevel, Config.LogLevel)
		assert.Equal(t, "db.internal", Config.Postgres.Hostname)
		assert.Equal(t, 14*24*time.Hour, Config.Sessions.Lifetime)
		assert.Equal(t, 20, Config.Registration.UsernameMaxLength)
		assert.Equal(t, defaults.Registration.UsernameValid, Config.Registration.UsernameValid)
	})

	t.Run("dotenv file", func(t *testing.T) {
		Config = defaults
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("FLIPPER_STORE=memory\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("FLIPPER_STORE") })

		require.NoError(t, Load(path))
		assert.Equal(t, StoreMemory, Config.Store)
	})

	t.Run("bad log level", func(t *testing.T) {
		Config = defaults
		t.Setenv("FLIPPER_LOGLEVEL", "loud")
		assert.Error(t, Load(""))
		assert.Equal(t, defaults, Config)
	})
}
