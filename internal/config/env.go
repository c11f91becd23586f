package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func applyEnv(cfg *Config) {
	cfg.AnalyzerBaseURL = envOrDefault(EnvAnalyzerBaseURL, cfg.AnalyzerBaseURL)
	cfg.AnalyzerWSURL = envOrDefault(EnvAnalyzerWSURL, cfg.AnalyzerWSURL)
	cfg.HTTPAddr = envOrDefault(EnvHTTPAddr, cfg.HTTPAddr)
	cfg.DBDriver = strings.ToLower(envOrDefault(EnvDBDriver, cfg.DBDriver))
	cfg.DBDSN = envOrDefault(EnvDBDSN, cfg.DBDSN)
	cfg.AuthBaseURL = envOrDefault(EnvAuthBaseURL, cfg.AuthBaseURL)
	cfg.AuthToken = envOrDefault(EnvAuthToken, cfg.AuthToken)

	if raw := strings.TrimSpace(os.Getenv(EnvWebhookURLs)); raw != "" {
		cfg.WebhookURLs = trimList(strings.Split(raw, ","))
	}
	if value, ok := intEnv(EnvMaxTweets); ok {
		cfg.MaxTweets = value
	}
	if value, ok := intEnv(EnvPageSize); ok {
		cfg.PageSize = value
	}
	if value, ok := durationEnv(EnvReconnectMin); ok {
		cfg.ReconnectMinBackoff = value
	}
	if value, ok := durationEnv(EnvReconnectMax); ok {
		cfg.ReconnectMaxBackoff = value
	}
	cfg.ProfileSync = parseBoolEnv(EnvProfileSyncOn, cfg.ProfileSync)
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func durationEnv(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func parseBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
