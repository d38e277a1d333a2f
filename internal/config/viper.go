package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/chatguard/internal/api"
	"github.com/Veraticus/chatguard/internal/availability"
	"github.com/Veraticus/chatguard/internal/common"
	"github.com/Veraticus/chatguard/internal/model"
)

// EnvPrefix namespaces environment overrides, e.g. CHATGUARD_API_BASE_URL.
const EnvPrefix = "CHATGUARD"

// Configuration keys.
const (
	KeyBaseURL    = "api.base_url"
	KeyTimeout    = "api.timeout"
	KeyMaxRetries = "api.max_retries"
	KeyRateLimit  = "api.rate_limit"
	KeyCacheTTL   = "api.cache_ttl"

	KeyPollInterval = "poll.interval"

	KeyThreshold        = "detection.threshold"
	KeyDetectionEnabled = "detection.enabled"

	KeyStoragePath = "storage.path"
	KeyMetricsAddr = "metrics.addr"

	KeyLogLevel  = "logging.level"
	KeyLogFormat = "logging.format"
)

// DefaultStoragePath is where chat history lives unless configured.
const DefaultStoragePath = "~/.local/share/chatguard/history.db"

// EnvKeyReplacer maps dotted keys onto environment variable names.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, api.DefaultBaseURL)
	v.SetDefault(KeyTimeout, api.DefaultTimeout)
	v.SetDefault(KeyMaxRetries, api.DefaultMaxRetries)
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyCacheTTL, time.Duration(0))
	v.SetDefault(KeyPollInterval, availability.DefaultInterval)
	v.SetDefault(KeyThreshold, model.DefaultConfidenceThreshold)
	v.SetDefault(KeyDetectionEnabled, true)
	v.SetDefault(KeyStoragePath, DefaultStoragePath)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// LoadAPIConfig builds a validated client configuration from v.
func LoadAPIConfig(v *viper.Viper) (api.Config, error) {
	cfg := api.Config{
		BaseURL:    v.GetString(KeyBaseURL),
		Timeout:    v.GetDuration(KeyTimeout),
		MaxRetries: v.GetInt(KeyMaxRetries),
		RateLimit:  v.GetFloat64(KeyRateLimit),
		CacheTTL:   v.GetDuration(KeyCacheTTL),
	}
	if err := cfg.Validate(); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}

// Detection holds the settings of an interactive session.
type Detection struct {
	Threshold float64
	Enabled   bool
}

// LoadDetection reads the detection settings from v.
func LoadDetection(v *viper.Viper) (Detection, error) {
	d := Detection{
		Threshold: v.GetFloat64(KeyThreshold),
		Enabled:   v.GetBool(KeyDetectionEnabled),
	}
	if d.Threshold < 0 || d.Threshold > 1 {
		return Detection{}, fmt.Errorf("%w: %s must be within [0, 1], got %v", common.ErrInvalidConfig, KeyThreshold, d.Threshold)
	}
	return d, nil
}

// PollInterval returns the availability polling interval from v.
func PollInterval(v *viper.Viper) (time.Duration, error) {
	interval := v.GetDuration(KeyPollInterval)
	if interval <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, KeyPollInterval)
	}
	return interval, nil
}

// StoragePath returns the expanded history database path from v.
func StoragePath(v *viper.Viper) string {
	return ExpandPath(v.GetString(KeyStoragePath))
}
