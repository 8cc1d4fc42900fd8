package mutations

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parseq/mutation_sdk_go/internal/httpx"
)

const (
	envAPIURL         = "MUTATIONS_API_URL"
	envRequestTimeout = "MUTATIONS_REQUEST_TIMEOUT"
)

// NewFromEnv initialises an HTTP Client from MUTATIONS_API_URL and the
// optional MUTATIONS_REQUEST_TIMEOUT (a Go duration; unset means no timeout).
func NewFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv(envAPIURL))
	if baseURL == "" {
		return nil, fmt.Errorf("mutations: %s is required", envAPIURL)
	}

	var opts []httpx.Option
	if raw := strings.TrimSpace(os.Getenv(envRequestTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("mutations: invalid %s: %w", envRequestTimeout, err)
		}
		opts = append(opts, httpx.WithTimeout(d))
	}

	client, err := New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("mutations: init HTTP client: %w", err)
	}
	return client, nil
}
