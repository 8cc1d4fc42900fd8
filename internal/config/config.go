// Package config loads the YAML configuration shared by the SDK bootstrap and
// the commands. Values are layered: defaults, then the YAML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Runtime modes.
const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

type Config struct {
	Runtime struct {
		// auto | http | mock
		Mode string `yaml:"mode"`
	} `yaml:"runtime"`

	API struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"api"`

	Mock struct {
		Seed string `yaml:"seed"`
	} `yaml:"mock"`

	Store struct {
		PageSize          int   `yaml:"page_size"`
		ReloadAfterCreate *bool `yaml:"reload_after_create"`
	} `yaml:"store"`

	Cache struct {
		PageTTL time.Duration `yaml:"page_ttl"`
	} `yaml:"cache"`

	Log struct {
		// dev | prod
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Sandbox struct {
		Addr    string        `yaml:"addr"`
		Latency time.Duration `yaml:"latency"`
		// rate=<float>,code=<httpStatus>
		Fail string `yaml:"fail"`
	} `yaml:"sandbox"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Default returns a configuration with every default applied and no file or
// environment input.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads path (skipped when empty), fills defaults and applies env
// overrides. The result is not validated.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDotEnv loads the given .env files into the process environment. Missing
// files are ignored and variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ReloadAfterCreate reports the effective store.reload_after_create value.
func (c *Config) ReloadAfterCreate() bool {
	if c.Store.ReloadAfterCreate == nil {
		return true
	}
	return *c.Store.ReloadAfterCreate
}

func (c *Config) applyDefaults() {
	if c.Runtime.Mode == "" {
		c.Runtime.Mode = ModeAuto
	}
	if c.Store.PageSize == 0 {
		c.Store.PageSize = 20
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Sandbox.Addr == "" {
		c.Sandbox.Addr = ":8787"
	}
}

// ---- env ----

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := getEnvStr("MUTATIONS_RUNTIME_MODE"); ok {
		c.Runtime.Mode = strings.ToLower(v)
	}
	if v, ok := getEnvStr("MUTATIONS_API_URL"); ok {
		c.API.BaseURL = v
	}
	if v, ok := getEnvStr("MUTATIONS_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MUTATIONS_REQUEST_TIMEOUT: %w", err)
		}
		c.API.RequestTimeout = d
	}
	if v, ok := getEnvStr("MUTATIONS_MOCK_SEED"); ok {
		c.Mock.Seed = v
	}
	if v, ok := getEnvStr("MUTATIONS_PAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MUTATIONS_PAGE_SIZE: %w", err)
		}
		c.Store.PageSize = n
	}
	if v, ok := getEnvStr("MUTATIONS_PAGE_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MUTATIONS_PAGE_CACHE_TTL: %w", err)
		}
		c.Cache.PageTTL = d
	}
	if v, ok := getEnvStr("LOG_ENV"); ok {
		c.Log.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks the values the SDK cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Runtime.Mode {
	case ModeAuto, ModeMock:
	case ModeHTTP:
		if c.API.BaseURL == "" {
			errs = append(errs, errors.New("api.base_url is required in http mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("runtime.mode %q is not one of auto, http, mock", c.Runtime.Mode))
	}
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
		}
	}
	if c.API.RequestTimeout < 0 {
		errs = append(errs, errors.New("api.request_timeout must not be negative"))
	}
	if c.Store.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("store.page_size must be > 0, got %d", c.Store.PageSize))
	}
	if c.Cache.PageTTL < 0 {
		errs = append(errs, errors.New("cache.page_ttl must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
