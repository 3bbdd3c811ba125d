package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/goslides/internal/template"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Input     string            `yaml:"input" json:"input"`
	Topic     string            `yaml:"topic" json:"topic"`
	Meta      map[string]string `yaml:"meta" json:"meta"`
	Template  string            `yaml:"template" json:"template"`
	Output    string            `yaml:"output" json:"output"`
	OutputPDF string            `yaml:"outputPDF" json:"outputPDF"`

	LLM struct {
		BaseURL string        `yaml:"base" json:"base"`
		Model   string        `yaml:"model" json:"model"`
		APIKey  string        `yaml:"key" json:"key"`
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	// Layout maps role names (first_slide, catalogue_slide, title_slide,
	// content_slide, end_slide) to template slide indices.
	Layout map[string][]int `yaml:"layout" json:"layout"`

	Slots struct {
		MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
		Backoff     time.Duration `yaml:"backoff" json:"backoff"`
		Pause       time.Duration `yaml:"pause" json:"pause"`
	} `yaml:"slots" json:"slots"`

	Seed     uint64 `yaml:"seed" json:"seed"`
	Language string `yaml:"language" json:"language"`
	DryRun   bool   `yaml:"dryRun" json:"dryRun"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		MaxCount    int           `yaml:"maxCount" json:"maxCount"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		LLMOnly     bool          `yaml:"llmOnly" json:"llmOnly"`
	} `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// currently unset or at their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if cfg.InputPath == "" && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if cfg.Topic == "" && fc.Topic != "" {
		cfg.Topic = fc.Topic
	}
	for k, v := range fc.Meta {
		if cfg.Meta == nil {
			cfg.Meta = map[string]string{}
		}
		if _, ok := cfg.Meta[k]; !ok {
			cfg.Meta[k] = v
		}
	}
	if (cfg.TemplatePath == "" || cfg.TemplatePath == DefaultTemplatePath) && fc.Template != "" {
		cfg.TemplatePath = fc.Template
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputPDFPath == "" && fc.OutputPDF != "" {
		cfg.OutputPDFPath = fc.OutputPDF
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if (cfg.LLMTimeout == 0 || cfg.LLMTimeout == DefaultLLMTimeout) && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}

	if len(fc.Layout) > 0 && cfg.Layout == nil {
		l, err := layoutFromFile(fc.Layout)
		if err != nil {
			return err
		}
		cfg.Layout = l
	}
	if (cfg.MaxSlotAttempts == 0 || cfg.MaxSlotAttempts == DefaultSlotAttempts) && fc.Slots.MaxAttempts > 0 {
		cfg.MaxSlotAttempts = fc.Slots.MaxAttempts
	}
	if (cfg.SlotBackoff == 0 || cfg.SlotBackoff == DefaultSlotBackoff) && fc.Slots.Backoff > 0 {
		cfg.SlotBackoff = fc.Slots.Backoff
	}
	if (cfg.SlotPause == 0 || cfg.SlotPause == DefaultSlotPause) && fc.Slots.Pause > 0 {
		cfg.SlotPause = fc.Slots.Pause
	}

	if cfg.Seed == 0 && fc.Seed != 0 {
		cfg.Seed = fc.Seed
	}
	if cfg.Language == "" && fc.Language != "" {
		cfg.Language = fc.Language
	}
	if !cfg.DryRun && fc.DryRun {
		cfg.DryRun = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if cfg.CacheMaxCount == 0 && fc.Cache.MaxCount > 0 {
		cfg.CacheMaxCount = fc.Cache.MaxCount
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.LLMCacheOnly && fc.Cache.LLMOnly {
		cfg.LLMCacheOnly = true
	}
	return nil
}

func layoutFromFile(in map[string][]int) (template.Layout, error) {
	known := map[template.Role]bool{}
	for _, r := range template.Roles {
		known[r] = true
	}
	out := template.DefaultLayout()
	for name, idx := range in {
		r := template.Role(strings.TrimSpace(name))
		if !known[r] {
			if hint := suggestRole(name); hint != "" {
				return nil, fmt.Errorf("config: unknown layout role %q (did you mean %q?)", name, hint)
			}
			return nil, fmt.Errorf("config: unknown layout role %q", name)
		}
		out[r] = append([]int(nil), idx...)
	}
	return out, nil
}

// suggestRole returns the best fuzzy match for a misspelled role name.
func suggestRole(name string) string {
	names := make([]string, len(template.Roles))
	for i, r := range template.Roles {
		names[i] = string(r)
	}
	matches := fuzzy.Find(strings.ToLower(strings.TrimSpace(name)), names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// ValidateConfig performs minimal schema validation for required settings.
// A dry run needs no LLM settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.TemplatePath) == "" {
		return errors.New("config: template path is required (or set TEMPLATE_PATH)")
	}
	if strings.TrimSpace(cfg.Topic) == "" && strings.TrimSpace(cfg.InputPath) == "" {
		return errors.New("config: a topic or an input request file is required")
	}
	if !cfg.DryRun && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL)")
	}
	if cfg.MaxSlotAttempts < 0 || cfg.SlotBackoff < 0 || cfg.SlotPause < 0 || cfg.LLMTimeout < 0 || cfg.CacheMaxCount < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	return nil
}
