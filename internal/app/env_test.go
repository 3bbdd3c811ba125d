package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR=\"beta # kept\"\nBAZ=gamma # dropped\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta # kept" {
		t.Fatalf("BAR=%q, want quoted value verbatim", got)
	}
	if got := os.Getenv("BAZ"); got != "gamma" {
		t.Fatalf("BAZ=%q, want gamma", got)
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvToConfig_FillsUnsetOnly(t *testing.T) {
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("LLM_BASE_URL", "http://env/v1")
	t.Setenv("TEMPLATE_PATH", "env.pptx")
	t.Setenv("LANGUAGE", "fi")
	t.Setenv("SEED", "42")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("DRY_RUN", "yes")

	cfg := Config{LLMModel: "flag-model"}
	ApplyEnvToConfig(&cfg)
	if cfg.LLMModel != "flag-model" {
		t.Fatalf("explicit value must win, got %q", cfg.LLMModel)
	}
	if cfg.LLMBaseURL != "http://env/v1" || cfg.TemplatePath != "env.pptx" || cfg.Language != "fi" {
		t.Fatalf("unexpected strings: %+v", cfg)
	}
	if cfg.Seed != 42 || cfg.LLMTimeout != 30*time.Second || !cfg.DryRun {
		t.Fatalf("unexpected parsed values: seed=%d timeout=%s dry=%v", cfg.Seed, cfg.LLMTimeout, cfg.DryRun)
	}
}

func TestApplyEnvOverrides_FalseyResets(t *testing.T) {
	t.Setenv("VERBOSE", "off")
	t.Setenv("LLM_CACHE_ONLY", "1")
	t.Setenv("CACHE_DIR", "/tmp/goslides-cache")
	cfg := Config{Verbose: true, CacheDir: "from-file"}
	ApplyEnvOverrides(&cfg)
	if cfg.Verbose {
		t.Fatalf("VERBOSE=off should disable verbose")
	}
	if !cfg.LLMCacheOnly || cfg.CacheDir != "/tmp/goslides-cache" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}
