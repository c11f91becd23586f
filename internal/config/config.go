package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	EnvAnalyzerBaseURL  = "CONVO_ANALYZER_BASE_URL"
	EnvAnalyzerWSURL    = "CONVO_ANALYZER_WS_URL"
	EnvHTTPAddr         = "CONVO_HTTP_ADDR"
	EnvDBDriver         = "CONVO_DB_DRIVER"
	EnvDBDSN            = "CONVO_DB_DSN"
	EnvAuthBaseURL      = "CONVO_AUTH_BASE_URL"
	EnvAuthToken        = "CONVO_AUTH_TOKEN"
	EnvWebhookURLs      = "CONVO_WEBHOOK_URLS"
	EnvMaxTweets        = "CONVO_MAX_TWEETS"
	EnvPageSize         = "CONVO_PAGE_SIZE"
	EnvReconnectMin     = "CONVO_RECONNECT_MIN_BACKOFF"
	EnvReconnectMax     = "CONVO_RECONNECT_MAX_BACKOFF"
	EnvProfileSyncOn    = "CONVO_PROFILE_SYNC"
	EnvConfigFile       = "CONVO_CONFIG_FILE"
)

const (
	DefaultHTTPAddr     = ":8090"
	DefaultDBDriver     = "sqlite"
	DefaultDBDSN        = "dashboard.db"
	DefaultMaxTweets    = 20
	DefaultPageSize     = 20
	DefaultReconnectMin = 500 * time.Millisecond
	DefaultReconnectMax = 30 * time.Second
	DefaultProfileSync  = true
)

type Config struct {
	// AnalyzerBaseURL is the job runner's HTTP base. It is the single
	// required value: prior revisions hard-coded it per deployment.
	AnalyzerBaseURL string
	// AnalyzerWSURL is the push channel endpoint. Derived from
	// AnalyzerBaseURL when unset.
	AnalyzerWSURL string

	HTTPAddr string
	DBDriver string
	DBDSN    string

	AuthBaseURL string
	AuthToken   string

	WebhookURLs []string

	MaxTweets int
	PageSize  int

	ReconnectMinBackoff time.Duration
	ReconnectMaxBackoff time.Duration

	ProfileSync bool
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:            DefaultHTTPAddr,
		DBDriver:            DefaultDBDriver,
		DBDSN:               DefaultDBDSN,
		MaxTweets:           DefaultMaxTweets,
		PageSize:            DefaultPageSize,
		ReconnectMinBackoff: DefaultReconnectMin,
		ReconnectMaxBackoff: DefaultReconnectMax,
		ProfileSync:         DefaultProfileSync,
	}
}

// FromEnv builds a config from defaults and environment variables only.
func FromEnv() Config {
	cfg := defaultConfig()
	applyEnv(&cfg)
	cfg.fillDerived()
	return cfg
}

// FromYAMLAndEnv layers defaults, then an optional YAML file, then the
// environment. Environment always wins.
func FromYAMLAndEnv() (Config, error) {
	cfg := defaultConfig()

	fileCfg, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}
	if err := applyYAML(&cfg, fileCfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	cfg.fillDerived()
	return cfg, nil
}

func (c *Config) fillDerived() {
	if strings.TrimSpace(c.AnalyzerWSURL) != "" || strings.TrimSpace(c.AnalyzerBaseURL) == "" {
		return
	}
	derived := c.AnalyzerBaseURL
	switch {
	case strings.HasPrefix(derived, "https://"):
		derived = "wss://" + strings.TrimPrefix(derived, "https://")
	case strings.HasPrefix(derived, "http://"):
		derived = "ws://" + strings.TrimPrefix(derived, "http://")
	}
	c.AnalyzerWSURL = strings.TrimRight(derived, "/") + "/ws"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AnalyzerBaseURL) == "" {
		return fmt.Errorf("%s must not be empty", EnvAnalyzerBaseURL)
	}
	if err := validateURL(c.AnalyzerBaseURL, "http", "https"); err != nil {
		return fmt.Errorf("%s: %w", EnvAnalyzerBaseURL, err)
	}
	if err := validateURL(c.AnalyzerWSURL, "ws", "wss"); err != nil {
		return fmt.Errorf("%s: %w", EnvAnalyzerWSURL, err)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%s must not be empty", EnvHTTPAddr)
	}
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%s must be sqlite or postgres", EnvDBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%s must not be empty", EnvDBDSN)
	}
	if c.AuthBaseURL != "" {
		if err := validateURL(c.AuthBaseURL, "http", "https"); err != nil {
			return fmt.Errorf("%s: %w", EnvAuthBaseURL, err)
		}
	}
	if c.MaxTweets <= 0 {
		return fmt.Errorf("%s must be > 0", EnvMaxTweets)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%s must be > 0", EnvPageSize)
	}
	if c.ReconnectMinBackoff <= 0 || c.ReconnectMaxBackoff < c.ReconnectMinBackoff {
		return fmt.Errorf("%s and %s must be positive and ordered", EnvReconnectMin, EnvReconnectMax)
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url %q", raw)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme && strings.TrimSpace(parsed.Host) != "" {
			return nil
		}
	}
	return fmt.Errorf("url %q must use scheme %s and include a host", raw, strings.Join(schemes, " or "))
}
