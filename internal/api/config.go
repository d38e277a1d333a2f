package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/chatguard/internal/common"
)

// Defaults for the backend connection.
const (
	DefaultBaseURL    = "http://localhost:5000"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
)

// Config holds the connection settings of a Client. A Client snapshots its
// Config at the start of every call, so replacing it never affects calls
// already in flight.
type Config struct {
	BaseURL string
	// Timeout bounds every individual attempt, not the whole retry chain.
	Timeout time.Duration
	// CacheTTL enables caching of single detection results when positive.
	CacheTTL time.Duration
	// RateLimit caps outgoing attempts per second when positive.
	RateLimit float64
	// MaxRetries is the attempt budget of one call; 0 and 1 both mean a single attempt.
	MaxRetries int
}

// DefaultConfig returns the configuration used by the reference deployment.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// Validate checks the configuration and normalizes the base URL.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", common.ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base URL: %w", common.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base URL must use http or https, got %q", common.ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base URL has no host", common.ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", common.ErrInvalidConfig, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", common.ErrInvalidConfig, c.MaxRetries)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative, got %v", common.ErrInvalidConfig, c.RateLimit)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache TTL must not be negative, got %v", common.ErrInvalidConfig, c.CacheTTL)
	}
	return nil
}
