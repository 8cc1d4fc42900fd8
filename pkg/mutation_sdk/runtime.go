package mutation_sdk

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parseq/mutation_sdk_go/internal/config"
	"github.com/parseq/mutation_sdk_go/internal/devseed"
	"github.com/parseq/mutation_sdk_go/internal/httpx"
	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
	"github.com/parseq/mutation_sdk_go/pkg/mutations/mock"
	"github.com/parseq/mutation_sdk_go/pkg/store"
)

const (
	modeAuto = config.ModeAuto
	modeHTTP = config.ModeHTTP
	modeMock = config.ModeMock
)

// Config selects and tunes the runtime. The zero value is a usable auto-mode
// configuration.
type Config struct {
	Mode           string
	BaseURL        string
	RequestTimeout time.Duration
	MockSeed       string
	PageSize       int
	// ReloadAfterCreate refetches the lists after a create. Nil means true.
	ReloadAfterCreate *bool
	PageCacheTTL      time.Duration
	// StoreName labels the store's metrics; empty means store.DefaultName.
	StoreName string
	Logger    *zap.Logger
}

// FromConfig maps a loaded configuration file onto a runtime Config.
func FromConfig(c *config.Config) Config {
	return Config{
		Mode:              c.Runtime.Mode,
		BaseURL:           c.API.BaseURL,
		RequestTimeout:    c.API.RequestTimeout,
		MockSeed:          c.Mock.Seed,
		PageSize:          c.Store.PageSize,
		ReloadAfterCreate: c.Store.ReloadAfterCreate,
		PageCacheTTL:      c.Cache.PageTTL,
	}
}

// Runtime bundles the resolved client and store.
type Runtime struct {
	Client *mutations.Client
	Store  *store.Store
	// Mode is "http" or "mock".
	Mode string
	// Mock is the in-memory API in mock mode, nil otherwise.
	Mock *mock.Mock
}

// NewFromEnv loads configuration from the environment and builds a Runtime.
func NewFromEnv() (*Runtime, error) {
	c, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("mutation_sdk: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("mutation_sdk: %w", err)
	}
	return New(FromConfig(c))
}

// New resolves the runtime mode and builds the client and store.
func New(cfg Config) (*Runtime, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if mode == "" {
		mode = modeAuto
	}

	var (
		backend mutations.Backend
		mem     *mock.Mock
		err     error
	)
	switch mode {
	case modeAuto:
		if baseURL != "" {
			mode = modeHTTP
			backend, err = newHTTPBackend(baseURL, cfg.RequestTimeout)
		} else {
			mode = modeMock
			mem, err = newMock(cfg.MockSeed)
			backend = mem
		}
	case modeHTTP:
		if baseURL == "" {
			return nil, fmt.Errorf("mutation_sdk: HTTP mode requires a base URL (MUTATIONS_API_URL)")
		}
		backend, err = newHTTPBackend(baseURL, cfg.RequestTimeout)
	case modeMock:
		mem, err = newMock(cfg.MockSeed)
		backend = mem
	default:
		return nil, fmt.Errorf("mutation_sdk: unsupported runtime mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	backend = mutations.NewCachedBackend(backend, cfg.PageCacheTTL)
	client := mutations.NewWithBackend(backend)

	log := cfg.Logger
	if log == nil {
		log = logger.Named("store")
	}
	opts := []store.Option{
		store.WithLogger(log),
		store.WithName(cfg.StoreName),
	}
	if cfg.ReloadAfterCreate != nil {
		opts = append(opts, store.WithReloadAfterCreate(*cfg.ReloadAfterCreate))
	}
	if cfg.PageSize > 0 {
		opts = append(opts, store.WithPageSize(cfg.PageSize))
	}

	log.Debug("mutation runtime ready", zap.String("mode", mode))
	return &Runtime{
		Client: client,
		Store:  store.New(client, opts...),
		Mode:   mode,
		Mock:   mem,
	}, nil
}

func newHTTPBackend(baseURL string, timeout time.Duration) (mutations.Backend, error) {
	var opts []httpx.Option
	if timeout > 0 {
		opts = append(opts, httpx.WithTimeout(timeout))
	}
	c, err := mutations.New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("mutation_sdk: init HTTP client: %w", err)
	}
	return c.Backend(), nil
}

func newMock(seedPath string) (*mock.Mock, error) {
	m := mock.New()
	if path := strings.TrimSpace(seedPath); path != "" {
		seed, err := devseed.Load(path)
		if err != nil {
			return nil, fmt.Errorf("mutation_sdk: load mock seed: %w", err)
		}
		if err := m.Seed(seed); err != nil {
			return nil, fmt.Errorf("mutation_sdk: apply mock seed: %w", err)
		}
	}
	return m, nil
}
