package protect

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/keygate/keygate/pkg/protect/keystore"
)

// Config carries everything the SDK needs to validate a license and
// enforce the outcome. Zero values are filled in by applyDefaults, so
// callers only set what differs from the defaults.
type Config struct {
	// ServerURL is the base URL of the license server, without a
	// trailing slash, e.g. "https://licenses.example.com".
	ServerURL string

	// LicenseKey is the plaintext key issued to this installation.
	LicenseKey string

	// SigningSecret is the shared HMAC secret for request signing.
	SigningSecret string

	// AppID identifies the calling application to the server.
	AppID string

	// GracePeriod is how long a previously valid license keeps working
	// after validation stops succeeding at the transport level.
	GracePeriod time.Duration

	// RetryCount is the number of additional attempts after the first
	// failed request.
	RetryCount int

	// RetryBackoff is the pause between retry attempts.
	RetryBackoff time.Duration

	// RequestTimeout bounds a single validation round trip.
	RequestTimeout time.Duration

	// RevalidateInterval is how often the background revalidator
	// re-checks the license once Run has started.
	RevalidateInterval time.Duration

	// Keystore persists the license key on the client machine. When set,
	// NewGuard saves a configured key there and falls back to the stored
	// key when LicenseKey is empty. Optional.
	Keystore keystore.Store

	// OnRestricted is invoked at most once when enforcement trips, on
	// invalid verdicts or grace period exhaustion. Optional.
	OnRestricted func(reason string)
}

const (
	defaultAppID              = "default"
	defaultGracePeriod        = 48 * time.Hour
	defaultRetryCount         = 3
	defaultRetryBackoff       = 5 * time.Minute
	defaultRequestTimeout     = 30 * time.Second
	defaultRevalidateInterval = 24 * time.Hour
)

func (c *Config) applyDefaults() {
	if c.AppID == "" {
		c.AppID = defaultAppID
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	if c.RetryCount < 0 {
		c.RetryCount = defaultRetryCount
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RevalidateInterval <= 0 {
		c.RevalidateInterval = defaultRevalidateInterval
	}
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("protect: ServerURL is required")
	}
	if c.LicenseKey == "" {
		return fmt.Errorf("protect: LicenseKey is required")
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("protect: SigningSecret is required")
	}
	return nil
}

// ConfigFromEnv builds a Config from KEYGATE_* environment variables.
// Unset optional variables fall back to the package defaults. A non-nil
// store becomes the Config's Keystore, and supplies the license key when
// KEYGATE_LICENSE_KEY is unset.
func ConfigFromEnv(store keystore.Store) Config {
	cfg := Config{
		ServerURL:     os.Getenv("KEYGATE_SERVER_URL"),
		LicenseKey:    os.Getenv("KEYGATE_LICENSE_KEY"),
		SigningSecret: os.Getenv("KEYGATE_SIGNING_SECRET"),
		AppID:         os.Getenv("KEYGATE_APP_ID"),
		Keystore:      store,
	}
	if cfg.LicenseKey == "" && store != nil {
		appID := cfg.AppID
		if appID == "" {
			appID = defaultAppID
		}
		if key, err := store.Load(appID); err == nil {
			cfg.LicenseKey = key
		}
	}
	if v := os.Getenv("KEYGATE_GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.GracePeriod = d
		}
	}
	if v := os.Getenv("KEYGATE_RETRY_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RetryCount = n
		}
	}
	if v := os.Getenv("KEYGATE_RETRY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetryBackoff = d
		}
	}
	if v := os.Getenv("KEYGATE_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("KEYGATE_REVALIDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RevalidateInterval = d
		}
	}
	return cfg
}
