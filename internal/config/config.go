package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL     string        `mapstructure:"API_BASE_URL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	UploadTimeout  time.Duration `mapstructure:"UPLOAD_TIMEOUT"`
	StoragePath    string        `mapstructure:"STORAGE_PATH"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFile        string        `mapstructure:"LOG_FILE"`
	LogMaxSizeMB   int           `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int           `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays  int           `mapstructure:"LOG_MAX_AGE_DAYS"`
	ChunkPageSize  int           `mapstructure:"CHUNK_PAGE_SIZE"`
	DevserverAddr  string        `mapstructure:"DEVSERVER_ADDR"`
}

// flagKeys maps root command flags onto configuration keys.
var flagKeys = map[string]string{
	"api":       "API_BASE_URL",
	"log-level": "LOG_LEVEL",
}

// LoadConfig reads .env, the environment and defaults. Flags that were set on
// the command line take precedence; flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	viper.SetDefault("API_BASE_URL", "http://localhost:5050")
	viper.SetDefault("REQUEST_TIMEOUT", "120s")
	viper.SetDefault("UPLOAD_TIMEOUT", "300s")
	viper.SetDefault("STORAGE_PATH", "~/.ragchat/local.db")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("LOG_MAX_SIZE_MB", 10)
	viper.SetDefault("LOG_MAX_BACKUPS", 3)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 28)
	viper.SetDefault("CHUNK_PAGE_SIZE", 100)
	viper.SetDefault("DEVSERVER_ADDR", ":5050")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".ragchat"))
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := viper.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.StoragePath = expandHome(cfg.StoragePath)
	cfg.LogFile = expandHome(cfg.LogFile)

	return &cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
