package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	pstrings "gatekeeper/pkg/platform/strings"
)

// Load builds the rate limit configuration from, in order:
//  1. built-in defaults
//  2. the YAML file at path, when path is non-empty
//  3. RATE_LIMIT_* environment overrides
//  4. validation
func Load(path string) (*Config, error) {
	settings := DefaultSettings()

	if path != "" {
		fromFile, err := loadYAMLFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading rate limit config %s: %w", path, err)
		}
		settings = settings.Merge(fromFile)
	}

	env, err := envOverrides()
	if err != nil {
		return nil, err
	}
	settings = settings.Merge(env)

	cfg, err := settings.Compile()
	if err != nil {
		return nil, fmt.Errorf("rate limit config validation: %w", err)
	}
	return cfg, nil
}

func loadYAMLFile(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s, nil
}

func envOverrides() (Settings, error) {
	var s Settings
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return s, configError("RATE_LIMIT_ENABLED", fmt.Sprintf("invalid boolean %q", v))
		}
		s.Enabled = &enabled
	}
	if v, ok := os.LookupEnv("RATE_LIMIT_WHITELIST"); ok {
		s.Whitelist = pstrings.SplitList(v)
	}
	s.Default = strings.TrimSpace(os.Getenv("RATE_LIMIT_DEFAULT"))
	s.FailurePolicy = strings.TrimSpace(os.Getenv("RATE_LIMIT_FAILURE_POLICY"))
	s.StoreTimeout = strings.TrimSpace(os.Getenv("RATE_LIMIT_STORE_TIMEOUT"))
	return s, nil
}
