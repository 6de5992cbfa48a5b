package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full dashboard configuration.
type Config struct {
	Port         string       `mapstructure:"port"`
	DB           DBConfig     `mapstructure:"db"`
	Log          LogConfig    `mapstructure:"log"`
	Backend      Backend      `mapstructure:"backend"`
	Realtime     Realtime     `mapstructure:"realtime"`
	Capabilities Capabilities `mapstructure:"capabilities"`
	Display      Display      `mapstructure:"display"`
	Refresh      Refresh      `mapstructure:"refresh"`
	Charts       Charts       `mapstructure:"charts"`
}

// DBConfig locates the diagnostics message log.
type DBConfig struct {
	Path      string        `mapstructure:"path"`
	Buffer    int           `mapstructure:"buffer"`
	Retention time.Duration `mapstructure:"retention"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Backend describes the REST API owned by the sensor backend.
type Backend struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker Breaker       `mapstructure:"breaker"`
}

// Breaker tunes the circuit breaker wrapped around backend calls.
type Breaker struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	Interval            time.Duration `mapstructure:"interval"`
}

// Realtime describes the Socket.IO push channel.
type Realtime struct {
	URL       string    `mapstructure:"url"`
	Path      string    `mapstructure:"path"`
	Namespace string    `mapstructure:"namespace"`
	Reconnect Reconnect `mapstructure:"reconnect"`
}

// Reconnect is the re-dial policy after the channel drops. Disabled by default.
type Reconnect struct {
	Enabled    bool          `mapstructure:"enabled"`
	MaxRetries uint64        `mapstructure:"max_retries"`
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// Capabilities selects the control-panel variant.
type Capabilities struct {
	Interaction          string `mapstructure:"interaction"` // latched | momentary
	CoolingFan           bool   `mapstructure:"cooling_fan"`
	DrumEnable           bool   `mapstructure:"drum_enable"`
	ConsolidatedPressure bool   `mapstructure:"consolidated_pressure"`
}

type Display struct {
	Locale          string        `mapstructure:"locale"`
	PressureUnit    string        `mapstructure:"pressure_unit"`
	NotificationTTL time.Duration `mapstructure:"notification_ttl"`
}

// Refresh holds the repeating timer periods per view.
type Refresh struct {
	SensorDetail time.Duration `mapstructure:"sensor_detail"`
	AllSensors   time.Duration `mapstructure:"all_sensors"`
	Readings     time.Duration `mapstructure:"readings"`
	Stats        time.Duration `mapstructure:"stats"`
	Overview     time.Duration `mapstructure:"overview"`
}

type Charts struct {
	MaxPoints    int `mapstructure:"max_points"`
	DefaultHours int `mapstructure:"default_hours"`
}

const envPrefix = "KILN"

// setDefaults mirrors configs/config.yml so a missing key never yields a zero period.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8090")
	v.SetDefault("db.path", "dashboard.db")
	v.SetDefault("db.buffer", 256)
	v.SetDefault("db.retention", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.breaker.enabled", true)
	v.SetDefault("backend.breaker.consecutive_failures", 5)
	v.SetDefault("backend.breaker.open_timeout", 30*time.Second)
	v.SetDefault("backend.breaker.interval", 60*time.Second)
	v.SetDefault("realtime.url", "ws://localhost:8080")
	v.SetDefault("realtime.path", "/socket.io/")
	v.SetDefault("realtime.namespace", "/web")
	v.SetDefault("realtime.reconnect.enabled", false)
	v.SetDefault("realtime.reconnect.max_retries", 5)
	v.SetDefault("realtime.reconnect.max_elapsed", time.Minute)
	v.SetDefault("capabilities.interaction", "latched")
	v.SetDefault("capabilities.cooling_fan", false)
	v.SetDefault("capabilities.drum_enable", false)
	v.SetDefault("capabilities.consolidated_pressure", true)
	v.SetDefault("display.locale", "pt-BR")
	v.SetDefault("display.pressure_unit", "psi")
	v.SetDefault("display.notification_ttl", 5*time.Second)
	v.SetDefault("refresh.sensor_detail", 10*time.Second)
	v.SetDefault("refresh.all_sensors", 30*time.Second)
	v.SetDefault("refresh.readings", 30*time.Second)
	v.SetDefault("refresh.stats", 30*time.Second)
	v.SetDefault("refresh.overview", 5*time.Minute)
	v.SetDefault("charts.max_points", 500)
	v.SetDefault("charts.default_hours", 24)
}

// Load reads config.yml from dir. A missing file falls back to defaults.
func Load(v *viper.Viper, dir string) (*Config, error) {
	setDefaults(v)
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	switch c.Capabilities.Interaction {
	case "latched", "momentary":
	default:
		return fmt.Errorf("capabilities.interaction must be latched or momentary, got %q", c.Capabilities.Interaction)
	}
	switch c.Display.PressureUnit {
	case "psi", "bar":
	default:
		return fmt.Errorf("display.pressure_unit must be psi or bar, got %q", c.Display.PressureUnit)
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Charts.MaxPoints <= 0 || c.Charts.DefaultHours <= 0 {
		return errors.New("charts.max_points and charts.default_hours must be positive")
	}
	return nil
}

// ChangeCallback receives the reloaded configuration.
type ChangeCallback func(cfg *Config)

// debounceInterval collapses editor save bursts into a single reload.
const debounceInterval = 2 * time.Second

// Watch re-reads the config file on change and hands the result to cb.
// Reload errors are reported through onErr and the previous config stays in effect.
func Watch(v *viper.Viper, cb ChangeCallback, onErr func(error)) {
	var last time.Time
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if time.Since(last) < debounceInterval {
			return
		}
		last = time.Now()

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			onErr(fmt.Errorf("decode reloaded config: %w", err))
			return
		}
		if err := cfg.Validate(); err != nil {
			onErr(err)
			return
		}
		cb(&cfg)
	})
	v.WatchConfig()
}
