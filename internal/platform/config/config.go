package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "timeblocks/internal/platform/errors"
)

const (
	RemoteHTTP = "http"
	RemoteDir  = "dir"
	RemoteNone = "none"
)

type Config struct {
	DataDir          string
	Namespace        string
	BootstrapTimeout time.Duration
	DebounceWindow   time.Duration
	SavingHold       time.Duration
	WriteTimeout     time.Duration
	Remote           RemoteConfig
	Identity         IdentityConfig
	Server           ServerConfig
	LogLevel         string
}

type RemoteConfig struct {
	Kind string
	URL  string
	Dir  string
}

type IdentityConfig struct {
	PluginPath string
	UserAgent  string
}

type ServerConfig struct {
	Addr   string
	DBPath string
}

// SnapshotDir is the device-profile scope of the local snapshot store.
func (c Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshot")
}

func (c Config) IdentityPath() string {
	return filepath.Join(c.DataDir, "identity.yaml")
}

// NewViper returns a viper instance carrying defaults, the optional
// timeblocks.yaml file and TIMEBLOCKS_* environment overrides. Callers bind
// their flags on top before calling Load.
func NewViper(dataDir string) *viper.Viper {
	v := viper.New()
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("namespace", "time-blocks-app")
	v.SetDefault("bootstrap_timeout", 3*time.Second)
	v.SetDefault("debounce_window", time.Second)
	v.SetDefault("saving_hold", 800*time.Millisecond)
	v.SetDefault("write_timeout", 10*time.Second)
	v.SetDefault("remote.kind", RemoteNone)
	v.SetDefault("remote.url", "http://localhost:8787")
	v.SetDefault("remote.dir", "")
	v.SetDefault("identity.plugin", "")
	v.SetDefault("identity.user_agent", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("server.addr", ":8787")
	v.SetDefault("server.db", filepath.Join(dataDir, "docstore.db"))

	v.SetConfigName("timeblocks")
	v.SetConfigType("yaml")
	if override := os.Getenv("TIMEBLOCKS_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath(dataDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix("TIMEBLOCKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	cfg := Config{
		DataDir:          v.GetString("data_dir"),
		Namespace:        v.GetString("namespace"),
		BootstrapTimeout: v.GetDuration("bootstrap_timeout"),
		DebounceWindow:   v.GetDuration("debounce_window"),
		SavingHold:       v.GetDuration("saving_hold"),
		WriteTimeout:     v.GetDuration("write_timeout"),
		Remote: RemoteConfig{
			Kind: strings.ToLower(v.GetString("remote.kind")),
			URL:  v.GetString("remote.url"),
			Dir:  v.GetString("remote.dir"),
		},
		Identity: IdentityConfig{
			PluginPath: v.GetString("identity.plugin"),
			UserAgent:  v.GetString("identity.user_agent"),
		},
		Server: ServerConfig{
			Addr:   v.GetString("server.addr"),
			DBPath: v.GetString("server.db"),
		},
		LogLevel: v.GetString("log.level"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data dir is required", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("%w: namespace is required", apperrors.ErrInvalidInput)
	}
	if c.BootstrapTimeout < time.Second || c.BootstrapTimeout > 30*time.Second {
		return fmt.Errorf("%w: bootstrap timeout %s outside 1s..30s", apperrors.ErrInvalidInput, c.BootstrapTimeout)
	}
	if c.DebounceWindow <= 0 {
		return fmt.Errorf("%w: debounce window must be positive", apperrors.ErrInvalidInput)
	}
	if c.SavingHold <= 0 {
		return fmt.Errorf("%w: saving hold must be positive", apperrors.ErrInvalidInput)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be positive", apperrors.ErrInvalidInput)
	}
	switch c.Remote.Kind {
	case RemoteNone:
	case RemoteHTTP:
		if c.Remote.URL == "" {
			return fmt.Errorf("%w: remote.url is required for http remote", apperrors.ErrInvalidInput)
		}
	case RemoteDir:
		if c.Remote.Dir == "" {
			return fmt.Errorf("%w: remote.dir is required for dir remote", apperrors.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown remote kind %q", apperrors.ErrInvalidInput, c.Remote.Kind)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "timeblocks")
	}
	return ".timeblocks"
}
