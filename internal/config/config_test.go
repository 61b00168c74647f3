package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	{
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5050", cfg.APIBaseURL)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 300*time.Second, cfg.UploadTimeout)
	assert.Equal(t, filepath.Join(home, ".ragchat", "local.db"), cfg.StoragePath)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 10, cfg.LogMaxSizeMB)
	assert.Equal(t, 3, cfg.LogMaxBackups)
	assert.Equal(t, 28, cfg.LogMaxAgeDays)
	assert.Equal(t, 100, cfg.ChunkPageSize)
	assert.Equal(t, ":5050", cfg.DevserverAddr)
}

func TestLoadConfig_Environment(t *testing.T) {
	resetViper(t)
	t.Setenv("API_BASE_URL", "http://rag.internal:8080")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("CHUNK_PAGE_SIZE", "25")
	t.Setenv("STORAGE_PATH", "/tmp/ragchat.db")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://rag.internal:8080", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 25, cfg.ChunkPageSize)
	assert.Equal(t, "/tmp/ragchat.db", cfg.StoragePath)
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("API_BASE_URL", "http://from-env:1")
	t.Setenv("LOG_LEVEL", "ERROR")

	flags := pflag.NewFlagSet("ragchat", pflag.ContinueOnError)
	flags.String("api", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--api", "http://from-flag:2"}))

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:2", cfg.APIBaseURL)
	// Unset flags leave the environment value alone.
	assert.Equal(t, "ERROR", cfg.LogLevel)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "x.db"), expandHome("~/x.db"))
	assert.Equal(t, "/abs/x.db", expandHome("/abs/x.db"))
	assert.Equal(t, "rel~/x.db", expandHome("rel~/x.db"))
	assert.Equal(t, "", expandHome(""))
}
