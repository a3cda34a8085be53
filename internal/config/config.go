package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

// PortalConfig describes the legacy tracking portal scraped in auto mode.
type PortalConfig struct {
	BaseURL     string
	LoginPath   string
	DevicesPath string
	Username    string
	Password    string
	Timeout     time.Duration
	ProbeRPS    float64
}

type NotifyConfig struct {
	NatsURL string
	Subject string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Portal      PortalConfig
	Notify      NotifyConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	v.SetDefault("PORTAL_LOGIN_PATH", "/Login.aspx")
	v.SetDefault("PORTAL_TIMEOUT", 20*time.Second)
	v.SetDefault("PORTAL_PROBE_RPS", 2)
	v.SetDefault("NATS_SUBJECT", "fleet.tracker_sync.completed")

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Portal: PortalConfig{
			BaseURL:     strings.TrimRight(strings.TrimSpace(v.GetString("PORTAL_BASE_URL")), "/"),
			LoginPath:   strings.TrimSpace(v.GetString("PORTAL_LOGIN_PATH")),
			DevicesPath: strings.TrimSpace(v.GetString("PORTAL_DEVICES_PATH")),
			Username:    v.GetString("PORTAL_USERNAME"),
			Password:    v.GetString("PORTAL_PASSWORD"),
			Timeout:     v.GetDuration("PORTAL_TIMEOUT"),
			ProbeRPS:    v.GetFloat64("PORTAL_PROBE_RPS"),
		},
		Notify: NotifyConfig{
			NatsURL: strings.TrimSpace(v.GetString("NATS_URL")),
			Subject: v.GetString("NATS_SUBJECT"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Portal.Timeout <= 0 {
		cfg.Portal.Timeout = 20 * time.Second
	}
	if cfg.Portal.ProbeRPS <= 0 {
		cfg.Portal.ProbeRPS = 2
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Portal.BaseURL != "" && !strings.HasPrefix(cfg.Portal.BaseURL, "http") {
		return fmt.Errorf("PORTAL_BASE_URL must be an absolute http(s) URL")
	}
	return nil
}
