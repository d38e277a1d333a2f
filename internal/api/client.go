package api

import (
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/chatguard/internal/common"
)

// Observer receives per-attempt telemetry from the transport.
type Observer interface {
	ObserveAttempt(endpoint string, status int, duration time.Duration)
	ObserveRetry(endpoint string, status int)
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(string, int, time.Duration) {}
func (noopObserver) ObserveRetry(string, int)                  {}

// Client talks to the detection backend. It is safe for concurrent use;
// distinct calls share no mutable state beyond the configuration snapshot.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
	sleep      common.Sleeper
	backoff    func(attempt int) time.Duration
	limiter    *rate.Limiter
	cache      *resultCache
	config     Config
	mu         sync.RWMutex
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for attempt and retry logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver attaches a telemetry observer.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithSleeper replaces the clock used to wait between attempts.
func WithSleeper(sleep common.Sleeper) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithBackoff replaces the backoff schedule.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(c *Client) {
		if backoff != nil {
			c.backoff = backoff
		}
	}
}

// New creates a client for the backend described by cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		logger:   slog.Default(),
		observer: noopObserver{},
		sleep:    common.Sleep,
		backoff:  common.Backoff,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = common.LoggerOrDefault(c.logger)
	c.limiter = newLimiter(cfg.RateLimit)
	c.cache = newResultCache(cfg.CacheTTL)

	return c, nil
}

// Config returns a copy of the current configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// SetConfig replaces the configuration wholesale. Calls already in flight keep
// the configuration they started with.
func (c *Client) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.config
	c.config = cfg
	if cfg.RateLimit != previous.RateLimit {
		c.limiter = newLimiter(cfg.RateLimit)
	}
	if cfg.CacheTTL != previous.CacheTTL || cfg.BaseURL != previous.BaseURL {
		c.cache.Close()
		c.cache = newResultCache(cfg.CacheTTL)
	}

	c.logger.Debug("API configuration updated",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"max_retries", cfg.MaxRetries)
	return nil
}

// Close releases background resources held by the client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Close()
	return nil
}

// snapshot is the per-call view of the mutable client settings.
type snapshot struct {
	limiter *rate.Limiter
	cache   *resultCache
	config  Config
}

func (c *Client) snapshot() snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return snapshot{config: c.config, limiter: c.limiter, cache: c.cache}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(math.Ceil(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
