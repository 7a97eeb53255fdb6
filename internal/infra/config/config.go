package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Prediction PredictionConfig `yaml:"prediction"`
	Weather    WeatherConfig    `yaml:"weather"`
	Capability CapabilityConfig `yaml:"capability"`
	Display    DisplayConfig    `yaml:"display"`
	Session    SessionConfig    `yaml:"session"`
	Notices    NoticesConfig    `yaml:"notices"`
	Images     ImagesConfig     `yaml:"images"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	MaxUploadBytes int64           `yaml:"maxUploadBytes"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// PredictionConfig points at the harvest prediction backend.
type PredictionConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// WeatherConfig points at the weather provider.
type WeatherConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Units   string        `yaml:"units"`
	Timeout time.Duration `yaml:"timeout"`
}

// CapabilityConfig stands in for device permissions and position.
type CapabilityConfig struct {
	Location  bool     `yaml:"location"`
	Camera    bool     `yaml:"camera"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
}

// DisplayConfig controls rendering of timestamps and placeholders.
type DisplayConfig struct {
	Timezone        string `yaml:"timezone"`
	TimestampLayout string `yaml:"timestampLayout"`
	DateLabelLayout string `yaml:"dateLabelLayout"`
	Unavailable     string `yaml:"unavailable"`
}

// SessionConfig drives session tokens and eviction.
type SessionConfig struct {
	TokenSecret   string        `yaml:"tokenSecret"`
	TokenTTL      time.Duration `yaml:"tokenTtl"`
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	InboxSize     int           `yaml:"inboxSize"`
}

// NoticesConfig configures notice broadcasting.
type NoticesConfig struct {
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for the notice bus.
type ValkeyConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channelPrefix"`
}

// ImagesConfig controls where staged image URIs may be read from.
type ImagesConfig struct {
	LocalRoot string   `yaml:"localRoot"`
	S3        S3Config `yaml:"s3"`
}

// S3Config holds credentials for s3:// image URIs.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
}

// Location resolves the display timezone.
func (d DisplayConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(d.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(d.Timezone)
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("PREDICTION_BASE_URL"); v != "" {
		cfg.Prediction.BaseURL = v
	}
	if v := os.Getenv("PREDICTION_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Prediction.Timeout = parsed
		}
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("WEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("CAPABILITY_LOCATION"); v != "" {
		cfg.Capability.Location = parseBool(v)
	}
	if v := os.Getenv("CAPABILITY_CAMERA"); v != "" {
		cfg.Capability.Camera = parseBool(v)
	}
	if v := os.Getenv("CAPABILITY_LATITUDE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Capability.Latitude = &parsed
		}
	}
	if v := os.Getenv("CAPABILITY_LONGITUDE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Capability.Longitude = &parsed
		}
	}
	if v := os.Getenv("DISPLAY_TIMEZONE"); v != "" {
		cfg.Display.Timezone = v
	}
	if v := os.Getenv("SESSION_TOKEN_SECRET"); v != "" {
		cfg.Session.TokenSecret = v
	}
	if v := os.Getenv("SESSION_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.TokenTTL = parsed
		}
	}
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTimeout = parsed
		}
	}
	if v := os.Getenv("NOTICES_VALKEY_ENABLED"); v != "" {
		cfg.Notices.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("NOTICES_VALKEY_ADDR"); v != "" {
		cfg.Notices.Valkey.Addr = v
	}
	if v := os.Getenv("NOTICES_VALKEY_PASSWORD"); v != "" {
		cfg.Notices.Valkey.Password = v
	}
	if v := os.Getenv("IMAGES_LOCAL_ROOT"); v != "" {
		cfg.Images.LocalRoot = v
	}
	if v := os.Getenv("IMAGES_S3_ENABLED"); v != "" {
		cfg.Images.S3.Enabled = parseBool(v)
	}
	if v := os.Getenv("IMAGES_S3_ENDPOINT"); v != "" {
		cfg.Images.S3.Endpoint = v
	}
	if v := os.Getenv("IMAGES_S3_ACCESS_KEY"); v != "" {
		cfg.Images.S3.AccessKey = v
	}
	if v := os.Getenv("IMAGES_S3_SECRET_KEY"); v != "" {
		cfg.Images.S3.SecretKey = v
	}
	if v := os.Getenv("IMAGES_S3_REGION"); v != "" {
		cfg.Images.S3.Region = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 32 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		Prediction: PredictionConfig{
			Timeout: 20 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5",
			Units:   "metric",
			Timeout: 10 * time.Second,
		},
		Display: DisplayConfig{
			Timezone:        "UTC",
			TimestampLayout: "1/2/2006, 3:04:05 PM",
			DateLabelLayout: "Jan 2",
			Unavailable:     "N/A",
		},
		Session: SessionConfig{
			TokenTTL:      24 * time.Hour,
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
			InboxSize:     32,
		},
		Notices: NoticesConfig{
			Valkey: ValkeyConfig{
				ChannelPrefix: "harvesta:notices",
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return errors.New("http.maxUploadBytes must be positive")
	}
	if strings.TrimSpace(c.Prediction.BaseURL) == "" {
		return errors.New("prediction.baseUrl cannot be empty")
	}
	if c.Prediction.Timeout < 0 || c.Weather.Timeout < 0 {
		return errors.New("upstream timeouts cannot be negative")
	}
	if strings.TrimSpace(c.Weather.APIKey) == "" {
		return errors.New("weather.apiKey cannot be empty")
	}
	if (c.Capability.Latitude == nil) != (c.Capability.Longitude == nil) {
		return errors.New("capability.latitude and capability.longitude must be set together")
	}
	if _, err := c.Display.Location(); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}
	if strings.TrimSpace(c.Session.TokenSecret) == "" {
		return errors.New("session.tokenSecret cannot be empty")
	}
	if c.Session.TokenTTL <= 0 {
		return errors.New("session.tokenTtl must be positive")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("session.idleTimeout must be positive")
	}
	if c.Session.InboxSize <= 0 {
		return errors.New("session.inboxSize must be positive")
	}
	if c.Notices.Valkey.Enabled && strings.TrimSpace(c.Notices.Valkey.Addr) == "" {
		return errors.New("notices.valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Images.S3.Enabled && strings.TrimSpace(c.Images.S3.Endpoint) == "" {
		return errors.New("images.s3.endpoint cannot be empty when s3 images are enabled")
	}
	return nil
}
