package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"site2apk/internal/endpoint"
	"site2apk/internal/progress"
)

// DefaultPath is read when no --config flag is given. A missing file is not an error.
const DefaultPath = "site2apk.toml"

// EnvPrefix marks environment overrides, e.g. SITE2APK_LISTEN.
const EnvPrefix = "SITE2APK_"

// Duration accepts "30s" style strings in TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}

	d.Duration = parsed

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds every runtime setting.
type Config struct {
	Listen           string   `toml:"listen"`
	RemoteBaseURL    string   `toml:"remote_base_url"`
	EndpointMap      string   `toml:"endpoint_map"`
	EndpointKey      string   `toml:"endpoint_key"`
	RequestTimeout   Duration `toml:"request_timeout"`
	ProgressInterval Duration `toml:"progress_interval"`
	ProgressStep     int      `toml:"progress_step"`
	MaxUploadMB      int64    `toml:"max_upload_mb"`
	NtfyTopic        string   `toml:"ntfy_topic"`
	LogLevel         string   `toml:"log_level"`
	LogFormat        string   `toml:"log_format"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Listen:           ":8080",
		EndpointMap:      endpoint.DefaultMapPath,
		EndpointKey:      endpoint.DefaultKey,
		RequestTimeout:   Duration{2 * time.Minute},
		ProgressInterval: Duration{progress.DefaultInterval},
		ProgressStep:     progress.DefaultStep,
		MaxUploadMB:      100,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads .env, the TOML file at path (DefaultPath when empty), then
// SITE2APK_* environment overrides, and validates the result.
func Load(path string) (Config, error) {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	dur := func(name string, dst *Duration) error {
		if v, ok := lookup(EnvPrefix + name); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
		}
		return nil
	}

	str("LISTEN", &cfg.Listen)
	str("REMOTE_BASE_URL", &cfg.RemoteBaseURL)
	str("ENDPOINT_MAP", &cfg.EndpointMap)
	str("ENDPOINT_KEY", &cfg.EndpointKey)
	str("NTFY_TOPIC", &cfg.NtfyTopic)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if err := dur("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}

	if err := dur("PROGRESS_INTERVAL", &cfg.ProgressInterval); err != nil {
		return err
	}

	if v, ok := lookup(EnvPrefix + "PROGRESS_STEP"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sPROGRESS_STEP: %w", EnvPrefix, err)
		}
		cfg.ProgressStep = n
	}

	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_MB"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_MB: %w", EnvPrefix, err)
		}
		cfg.MaxUploadMB = n
	}

	return nil
}

// Validate checks ranges and the endpoint map location.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.EndpointKey) == "" {
		errs = append(errs, errors.New("endpoint_key must not be empty"))
	}

	if loc, err := url.Parse(strings.TrimSpace(c.EndpointMap)); err != nil {
		errs = append(errs, fmt.Errorf("endpoint_map: %w", err))
	} else if !loc.IsAbs() && strings.TrimSpace(c.RemoteBaseURL) == "" {
		errs = append(errs, errors.New("remote_base_url is required when endpoint_map is relative"))
	}

	if c.ProgressStep <= 0 || c.ProgressStep > progress.Ceiling {
		errs = append(errs, fmt.Errorf("progress_step must be between 1 and %d", progress.Ceiling))
	}

	if c.ProgressInterval.Duration <= 0 {
		errs = append(errs, errors.New("progress_interval must be positive"))
	}

	if c.RequestTimeout.Duration < 0 {
		errs = append(errs, errors.New("request_timeout must not be negative"))
	}

	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("max_upload_mb must be positive"))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// MaxUploadBytes is the request body limit for a conversion form.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

// Resolver builds the endpoint resolver described by the config.
func (c Config) Resolver() (*endpoint.Resolver, error) {
	return endpoint.NewResolver(c.RemoteBaseURL, c.EndpointMap, c.EndpointKey)
}
