package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/serialscope/internal/model"
	"github.com/tinytelemetry/serialscope/internal/settings"
)

const (
	defaultBaud            = model.DefaultBaudRate
	defaultRefreshInterval = model.DefaultRefreshInterval
	defaultWindowDuration  = model.DefaultWindowDuration
	defaultScrollStep      = model.DefaultScrollStep
	defaultConsoleLines    = model.DefaultConsoleLines
	defaultAPIAddr         = "127.0.0.1:8765"
	defaultExportTimeout   = 30 * time.Second
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Port            string        `mapstructure:"port"`
	Baud            int           `mapstructure:"baud"`
	Names           []string      `mapstructure:"names"`
	RefreshInterval time.Duration `mapstructure:"refresh-interval"`
	WindowDuration  time.Duration `mapstructure:"window-duration"`
	ScrollStep      time.Duration `mapstructure:"scroll-step"`
	ExportDir       string        `mapstructure:"export-dir"`
	ExportTimeout   time.Duration `mapstructure:"export-timeout"`
	SettingsPath    string        `mapstructure:"settings-path"`
	APIEnabled      bool          `mapstructure:"api-enabled"`
	APIAddr         string        `mapstructure:"api-addr"`
	Headless        bool          `mapstructure:"headless"`
	Debug           bool          `mapstructure:"debug"`
	MaxConsoleLines int           `mapstructure:"max-console-lines"`
	ReplayFile      string        `mapstructure:"replay-file"`
	ConfigPath      string        `mapstructure:"-"` // not from config file
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SERIALSCOPE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("port", "")
	v.SetDefault("baud", defaultBaud)
	v.SetDefault("names", []string{})
	v.SetDefault("refresh-interval", defaultRefreshInterval)
	v.SetDefault("window-duration", defaultWindowDuration)
	v.SetDefault("scroll-step", defaultScrollStep)
	v.SetDefault("export-dir", ".")
	v.SetDefault("export-timeout", defaultExportTimeout)
	v.SetDefault("settings-path", settings.DefaultPath())
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("headless", false)
	v.SetDefault("debug", false)
	v.SetDefault("max-console-lines", defaultConsoleLines)
	v.SetDefault("replay-file", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "serialscope", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	expand := func(p string) string {
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}
	cfg.ExportDir = expand(cfg.ExportDir)
	cfg.SettingsPath = expand(cfg.SettingsPath)
	cfg.ReplayFile = expand(cfg.ReplayFile)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud: %d", c.Baud)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("invalid refresh-interval: %s", c.RefreshInterval)
	}
	if c.ScrollStep <= 0 {
		return fmt.Errorf("invalid scroll-step: %s", c.ScrollStep)
	}
	if c.WindowDuration < c.ScrollStep {
		return fmt.Errorf("window-duration %s is shorter than scroll-step %s", c.WindowDuration, c.ScrollStep)
	}
	if c.MaxConsoleLines <= 0 {
		return fmt.Errorf("invalid max-console-lines: %d", c.MaxConsoleLines)
	}
	if c.APIEnabled {
		_, port, err := net.SplitHostPort(c.APIAddr)
		if err != nil {
			return fmt.Errorf("invalid api-addr %q: %w", c.APIAddr, err)
		}
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("invalid api-addr port: %q", port)
		}
	}
	return nil
}
