package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	convosenseDirName       = ".convosense"
	defaultConfigFileName   = "config.yaml"
	alternateConfigFileName = "config.yml"
)

type fileConfig struct {
	AnalyzerBaseURL     string   `yaml:"analyzer_base_url"`
	AnalyzerWSURL       string   `yaml:"analyzer_ws_url"`
	HTTPAddr            string   `yaml:"http_addr"`
	DBDriver            string   `yaml:"db_driver"`
	DBDSN               string   `yaml:"db_dsn"`
	AuthBaseURL         string   `yaml:"auth_base_url"`
	AuthToken           string   `yaml:"auth_token"`
	WebhookURLs         []string `yaml:"webhook_urls"`
	MaxTweets           int      `yaml:"max_tweets"`
	PageSize            int      `yaml:"page_size"`
	ReconnectMinBackoff string   `yaml:"reconnect_min_backoff"`
	ReconnectMaxBackoff string   `yaml:"reconnect_max_backoff"`
	ProfileSync         *bool    `yaml:"profile_sync"`
}

func applyYAML(cfg *Config, source fileConfig) error {
	if value := strings.TrimSpace(source.AnalyzerBaseURL); value != "" {
		cfg.AnalyzerBaseURL = value
	}
	if value := strings.TrimSpace(source.AnalyzerWSURL); value != "" {
		cfg.AnalyzerWSURL = value
	}
	if value := strings.TrimSpace(source.HTTPAddr); value != "" {
		cfg.HTTPAddr = value
	}
	if value := strings.TrimSpace(source.DBDriver); value != "" {
		cfg.DBDriver = strings.ToLower(value)
	}
	if value := strings.TrimSpace(source.DBDSN); value != "" {
		cfg.DBDSN = value
	}
	if value := strings.TrimSpace(source.AuthBaseURL); value != "" {
		cfg.AuthBaseURL = value
	}
	if value := strings.TrimSpace(source.AuthToken); value != "" {
		cfg.AuthToken = value
	}
	if len(source.WebhookURLs) > 0 {
		cfg.WebhookURLs = trimList(source.WebhookURLs)
	}
	if source.MaxTweets > 0 {
		cfg.MaxTweets = source.MaxTweets
	}
	if source.PageSize > 0 {
		cfg.PageSize = source.PageSize
	}

	minBackoff, err := parseOptionalDuration(source.ReconnectMinBackoff, cfg.ReconnectMinBackoff, "reconnect_min_backoff")
	if err != nil {
		return err
	}
	cfg.ReconnectMinBackoff = minBackoff

	maxBackoff, err := parseOptionalDuration(source.ReconnectMaxBackoff, cfg.ReconnectMaxBackoff, "reconnect_max_backoff")
	if err != nil {
		return err
	}
	cfg.ReconnectMaxBackoff = maxBackoff

	if source.ProfileSync != nil {
		cfg.ProfileSync = *source.ProfileSync
	}
	return nil
}

func loadFileConfig() (fileConfig, error) {
	path, ok, err := resolveConfigFilePath()
	if err != nil {
		return fileConfig{}, err
	}
	if !ok {
		return fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func resolveConfigFilePath() (string, bool, error) {
	if explicit := strings.TrimSpace(os.Getenv(EnvConfigFile)); explicit != "" {
		info, err := os.Stat(explicit)
		if err != nil {
			return "", false, fmt.Errorf("config file %s: %w", explicit, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %s is a directory", explicit)
		}
		return explicit, true, nil
	}

	candidates := []string{
		filepath.Join(convosenseDirName, defaultConfigFileName),
		filepath.Join(convosenseDirName, alternateConfigFileName),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(homeDir, convosenseDirName, defaultConfigFileName),
			filepath.Join(homeDir, convosenseDirName, alternateConfigFileName),
		)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}
	return "", false, nil
}

func parseOptionalDuration(raw string, fallback time.Duration, field string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be > 0", field)
	}
	return parsed, nil
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
