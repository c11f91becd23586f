package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAnalyzerBaseURL, EnvAnalyzerWSURL, EnvHTTPAddr, EnvDBDriver,
		EnvDBDSN, EnvAuthBaseURL, EnvAuthToken, EnvWebhookURLs, EnvMaxTweets,
		EnvPageSize, EnvReconnectMin, EnvReconnectMax, EnvProfileSyncOn,
		EnvConfigFile,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Default(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()
	if cfg.HTTPAddr != DefaultHTTPAddr {
		t.Fatalf("expected default addr %q, got %q", DefaultHTTPAddr, cfg.HTTPAddr)
	}
	if cfg.DBDriver != DefaultDBDriver {
		t.Fatalf("expected default db driver %q, got %q", DefaultDBDriver, cfg.DBDriver)
	}
	if cfg.MaxTweets != DefaultMaxTweets {
		t.Fatalf("expected default max tweets %d, got %d", DefaultMaxTweets, cfg.MaxTweets)
	}
	if cfg.ReconnectMinBackoff != DefaultReconnectMin || cfg.ReconnectMaxBackoff != DefaultReconnectMax {
		t.Fatalf("expected default backoff bounds, got %s/%s", cfg.ReconnectMinBackoff, cfg.ReconnectMaxBackoff)
	}
	if !cfg.ProfileSync {
		t.Fatalf("expected profile sync enabled by default")
	}
}

func TestFromEnv_Override(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAnalyzerBaseURL, "https://engine.example.com")
	t.Setenv(EnvHTTPAddr, "127.0.0.1:9999")
	t.Setenv(EnvDBDriver, "PoStGrEs")
	t.Setenv(EnvDBDSN, "postgres://localhost/convosense")
	t.Setenv(EnvWebhookURLs, "https://a.example.com/hook, https://b.example.com/hook ,")
	t.Setenv(EnvMaxTweets, "50")
	t.Setenv(EnvReconnectMin, "250ms")
	t.Setenv(EnvProfileSyncOn, "false")

	cfg := FromEnv()
	if cfg.AnalyzerBaseURL != "https://engine.example.com" {
		t.Fatalf("expected base url override, got %q", cfg.AnalyzerBaseURL)
	}
	if cfg.AnalyzerWSURL != "wss://engine.example.com/ws" {
		t.Fatalf("expected derived ws url, got %q", cfg.AnalyzerWSURL)
	}
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("expected override addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected normalized db driver, got %q", cfg.DBDriver)
	}
	if len(cfg.WebhookURLs) != 2 || cfg.WebhookURLs[1] != "https://b.example.com/hook" {
		t.Fatalf("unexpected webhook urls %v", cfg.WebhookURLs)
	}
	if cfg.MaxTweets != 50 {
		t.Fatalf("expected max tweets override, got %d", cfg.MaxTweets)
	}
	if cfg.ReconnectMinBackoff != 250*time.Millisecond {
		t.Fatalf("expected backoff override, got %s", cfg.ReconnectMinBackoff)
	}
	if cfg.ProfileSync {
		t.Fatalf("expected profile sync override to false")
	}
}

func TestFromYAMLAndEnv_EnvWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("analyzer_base_url: http://file.example.com\nhttp_addr: \":7000\"\nmax_tweets: 5\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvHTTPAddr, ":7777")

	cfg, err := FromYAMLAndEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AnalyzerBaseURL != "http://file.example.com" {
		t.Fatalf("expected yaml base url, got %q", cfg.AnalyzerBaseURL)
	}
	if cfg.HTTPAddr != ":7777" {
		t.Fatalf("expected env to win over yaml, got %q", cfg.HTTPAddr)
	}
	if cfg.MaxTweets != 5 {
		t.Fatalf("expected yaml max tweets, got %d", cfg.MaxTweets)
	}
	if cfg.AnalyzerWSURL != "ws://file.example.com/ws" {
		t.Fatalf("expected derived ws url, got %q", cfg.AnalyzerWSURL)
	}
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		AnalyzerBaseURL:     "http://localhost:5003",
		AnalyzerWSURL:       "ws://localhost:5003/ws",
		HTTPAddr:            ":8090",
		DBDriver:            "sqlite",
		DBDSN:               "dashboard.db",
		MaxTweets:           20,
		PageSize:            20,
		ReconnectMinBackoff: DefaultReconnectMin,
		ReconnectMaxBackoff: DefaultReconnectMax,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	missing := base
	missing.AnalyzerBaseURL = ""
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected validation error for missing analyzer base url")
	}

	badScheme := base
	badScheme.AnalyzerBaseURL = "ftp://engine"
	if err := badScheme.Validate(); err == nil {
		t.Fatalf("expected validation error for bad scheme")
	}

	badDriver := base
	badDriver.DBDriver = "mysql"
	if err := badDriver.Validate(); err == nil {
		t.Fatalf("expected validation error for bad db driver")
	}

	badPage := base
	badPage.PageSize = 0
	if err := badPage.Validate(); err == nil {
		t.Fatalf("expected validation error for page size")
	}

	badBackoff := base
	badBackoff.ReconnectMaxBackoff = badBackoff.ReconnectMinBackoff / 2
	if err := badBackoff.Validate(); err == nil {
		t.Fatalf("expected validation error for inverted backoff bounds")
	}
}
