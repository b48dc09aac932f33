package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coursechat/pkg/config"
)

type chatConfig struct {
	Heartbeat time.Duration `env:"TEST_CHAT_HEARTBEAT" envDefault:"30s" validate:"gt=0"`
	Buffer    int           `env:"TEST_CHAT_BUFFER" envDefault:"64" validate:"min=1"`
	Store     string        `env:"TEST_CHAT_STORE" envDefault:"memory" validate:"oneof=memory postgres redis"`
}

type requiredConfig struct {
	BaseURL string `env:"TEST_CHAT_BASE_URL,required"`
}

type fileConfig struct {
	Room   string `env:"TEST_FILE_ROOM"`
	UserID string `env:"TEST_FILE_USER"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config.ResetCache()
		var cfg chatConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 30*time.Second, cfg.Heartbeat)
		assert.Equal(t, 64, cfg.Buffer)
		assert.Equal(t, "memory", cfg.Store)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("TEST_CHAT_HEARTBEAT", "5s")
		t.Setenv("TEST_CHAT_STORE", "redis")
		var cfg chatConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 5*time.Second, cfg.Heartbeat)
		assert.Equal(t, "redis", cfg.Store)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("TEST_CHAT_BUFFER", "8")
		var first chatConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("TEST_CHAT_BUFFER", "16")
		var second chatConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, 8, second.Buffer)

		var reloaded chatConfig
		require.NoError(t, config.ForceReload(&reloaded))
		assert.Equal(t, 16, reloaded.Buffer)
	})

	t.Run("validation failure", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("TEST_CHAT_STORE", "mongo")
		var cfg chatConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("missing required", func(t *testing.T) {
		config.ResetCache()
		os.Unsetenv("TEST_CHAT_BASE_URL")
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *chatConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env.first")
	second := filepath.Join(dir, ".env.second")
	require.NoError(t, os.WriteFile(first, []byte("TEST_FILE_ROOM=R1\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("TEST_FILE_ROOM=R2\nTEST_FILE_USER=alice\n"), 0o600))

	os.Unsetenv("TEST_FILE_ROOM")
	os.Unsetenv("TEST_FILE_USER")
	t.Cleanup(func() {
		os.Unsetenv("TEST_FILE_ROOM")
		os.Unsetenv("TEST_FILE_USER")
	})
	config.ResetCache()

	require.NoError(t, config.LoadEnv(first, second))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "R1", cfg.Room, "first file defining a key wins")
	assert.Equal(t, "alice", cfg.UserID)

	err := config.LoadEnv(filepath.Join(dir, "missing.env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	assert.Panics(t, func() { config.MustLoadEnv(filepath.Join(dir, "missing.env")) })
}
