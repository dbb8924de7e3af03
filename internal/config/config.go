package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Bot struct {
		Name string `yaml:"name"`
	} `yaml:"bot"`

	Storage struct {
		// Backend is one of: sqlite, redis, failover (redis primary with
		// sqlite fallback), memory.
		Backend string `yaml:"backend"`
		SQLite  struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
		Redis struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	Booking struct {
		MaxDurationMinutes int `yaml:"max_duration_minutes"`
	} `yaml:"booking"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Janitor struct {
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"janitor"`

	Audit struct {
		Enabled   bool   `yaml:"enabled"`
		Path      string `yaml:"path"`
		DailyHour int    `yaml:"daily_hour"`
	} `yaml:"audit"`

	Calendar struct {
		Enabled      bool   `yaml:"enabled"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Account      string `yaml:"account"`
		CalendarID   string `yaml:"calendar_id"`
	} `yaml:"calendar"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Bot.Name == "" {
		cfg.Bot.Name = "Room Booking Bot"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/slotbot.db"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "data/audit"
	}

	return &cfg, nil
}

func (c *Config) MaxBookingDuration() time.Duration {
	if c.Booking.MaxDurationMinutes <= 0 {
		return 180 * time.Minute
	}
	return time.Duration(c.Booking.MaxDurationMinutes) * time.Minute
}

func (c *Config) JanitorSweepInterval() time.Duration {
	if c.Janitor.SweepIntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Janitor.SweepIntervalMinutes) * time.Minute
}
