package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	s := &cfg.Sync
	if s.Interval == 0 {
		s.Interval = 10 * time.Second
	}
	if s.SoftTimeout == 0 {
		s.SoftTimeout = 15 * time.Second
	}
	if s.CatchUpThreshold == 0 {
		s.CatchUpThreshold = 3
	}
	if s.Debounce == 0 {
		s.Debounce = 50 * time.Millisecond
	}
	if s.RetryBase == 0 {
		s.RetryBase = 5 * time.Second
	}
	if s.RetryMax == 0 {
		s.RetryMax = 20 * time.Second
	}
	if s.ManualModeThreshold == 0 {
		s.ManualModeThreshold = 3
	}
	if s.LockTTL == 0 {
		s.LockTTL = 45 * time.Second
	}

	if cfg.Feed.Timeout == 0 {
		cfg.Feed.Timeout = 30 * time.Second
	}
}

// Validate checks the league list and sync timing.
func (c *AppConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Leagues))
	for i, l := range c.Leagues {
		if l.ID == "" {
			return fmt.Errorf("league %d: missing id", i)
		}
		if _, dup := seen[string(l.ID)]; dup {
			return fmt.Errorf("league %s: duplicate id", l.ID)
		}
		if l.InitialBudget < 0 {
			return fmt.Errorf("league %s: negative initial_budget", l.ID)
		}
		seen[string(l.ID)] = struct{}{}
	}
	if c.Sync.RetryMax < c.Sync.RetryBase {
		return fmt.Errorf("sync: retry_max %s below retry_base %s", c.Sync.RetryMax, c.Sync.RetryBase)
	}
	// The lock must outlive the slowest feed call or a second instance can
	// start a cycle for the same league.
	if c.Sync.LockTTL <= c.Feed.Timeout {
		return fmt.Errorf("sync: lock_ttl %s must exceed feed timeout %s", c.Sync.LockTTL, c.Feed.Timeout)
	}
	return nil
}
