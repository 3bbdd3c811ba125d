package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func parseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.Language, "LANGUAGE")
	setString(&cfg.TemplatePath, "TEMPLATE_PATH")

	if cfg.Seed == 0 {
		if n, err := strconv.ParseUint(strings.TrimSpace(os.Getenv("SEED")), 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if cfg.CacheMaxAge == 0 {
		if d, err := time.ParseDuration(os.Getenv("CACHE_MAX_AGE")); err == nil {
			cfg.CacheMaxAge = d
		}
	}
	if cfg.LLMTimeout == 0 {
		if d, err := time.ParseDuration(os.Getenv("LLM_TIMEOUT")); err == nil {
			cfg.LLMTimeout = d
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if v, ok := parseBool(os.Getenv(key)); ok && v {
			*dst = true
		}
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
}

// ApplyEnvOverrides replaces cfg fields whose environment variables are set.
// It runs after the config file so env wins over file while flags applied
// afterwards stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.LLMBaseURL, "LLM_BASE_URL")
	override(&cfg.LLMModel, "LLM_MODEL")
	override(&cfg.LLMAPIKey, "LLM_API_KEY")
	override(&cfg.CacheDir, "CACHE_DIR")
	override(&cfg.Language, "LANGUAGE")
	override(&cfg.TemplatePath, "TEMPLATE_PATH")

	if n, err := strconv.ParseUint(strings.TrimSpace(os.Getenv("SEED")), 10, 64); err == nil {
		cfg.Seed = n
	}
	if d, err := time.ParseDuration(os.Getenv("CACHE_MAX_AGE")); err == nil {
		cfg.CacheMaxAge = d
	}
	if d, err := time.ParseDuration(os.Getenv("LLM_TIMEOUT")); err == nil {
		cfg.LLMTimeout = d
	}

	setBool := func(dst *bool, key string) {
		if v, ok := parseBool(os.Getenv(key)); ok {
			*dst = v
		}
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
}
