package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goslides/internal/app"
)

const (
	exitOK       = 0
	exitConfig   = 1
	exitPipeline = 2
)

// errConfig marks failures that happen before the pipeline starts.
var errConfig = errors.New("configuration error")

// metaFlag collects repeated -meta key=value pairs.
type metaFlag map[string]string

func (m metaFlag) String() string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (m metaFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	cfg, err := buildConfig(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(exitOK)
	}
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(exitConfig)
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

// buildConfig layers config sources: config file, then environment, then
// flags given on the command line. Defaults fill whatever is left.
func buildConfig(fs *flag.FlagSet, args []string) (app.Config, error) {
	var (
		flagCfg    app.Config
		configPath string
		envFiles   string
		seed       uint64
		meta       = metaFlag{}
	)
	fs.StringVar(&flagCfg.InputPath, "input", "", "Path to a Markdown or HTML request: first heading is the topic, key: value lines or <meta> tags are front matter")
	fs.StringVar(&flagCfg.Topic, "topic", "", "Deck topic (overrides the request file heading)")
	fs.Var(meta, "meta", "Front matter for the leading slide as key=value (repeatable)")
	fs.StringVar(&flagCfg.TemplatePath, "template", app.DefaultTemplatePath, "Template .pptx with {placeholder} tokens")
	fs.StringVar(&flagCfg.OutputPath, "output", "", "Output .pptx path (default: <topic-slug>.pptx next to the template)")
	fs.StringVar(&flagCfg.OutputPDFPath, "output.pdf", "", "Optional outline handout PDF path")
	fs.StringVar(&flagCfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&flagCfg.LLMModel, "llm.model", "", "Model name")
	fs.StringVar(&flagCfg.LLMAPIKey, "llm.key", "", "API key for OpenAI-compatible server")
	fs.DurationVar(&flagCfg.LLMTimeout, "llm.timeout", app.DefaultLLMTimeout, "Per-call model timeout")
	fs.BoolVar(&flagCfg.LLMCacheOnly, "llm.cacheOnly", false, "Serve model replies from cache only; fail when missing")
	fs.StringVar(&flagCfg.Language, "lang", "", "Output language as a BCP 47 tag or name, e.g. 'en-GB' or 'fi'")
	fs.Uint64Var(&seed, "seed", 0, "Seed for content slide sampling; 0 picks one and records it in the manifest")
	fs.IntVar(&flagCfg.MaxSlotAttempts, "slots.attempts", app.DefaultSlotAttempts, "Model attempts per section")
	fs.DurationVar(&flagCfg.SlotBackoff, "slots.backoff", app.DefaultSlotBackoff, "Backoff unit multiplied by the attempt number")
	fs.DurationVar(&flagCfg.SlotPause, "slots.pause", app.DefaultSlotPause, "Pause after each filled section")
	fs.StringVar(&flagCfg.CacheDir, "cache.dir", app.DefaultCacheDir, "Cache directory path")
	fs.DurationVar(&flagCfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	fs.IntVar(&flagCfg.CacheMaxCount, "cache.maxCount", 0, "Max cache entries kept, least recently used evicted; 0 disables")
	fs.BoolVar(&flagCfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&flagCfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&flagCfg.DryRun, "dry-run", false, "Extract the template slot map without calling the model")
	fs.BoolVar(&flagCfg.Verbose, "v", false, "Verbose logging")
	fs.StringVar(&configPath, "config", "", "YAML or JSON config file")
	fs.StringVar(&envFiles, "env", "", "Comma-separated dotenv files loaded before reading the environment")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, fmt.Errorf("%w: %w", errConfig, err)
	}
	flagCfg.Seed = seed

	if envFiles != "" {
		if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
			return app.Config{}, fmt.Errorf("%w: load env: %v", errConfig, err)
		}
	}

	var cfg app.Config
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("%w: %v", errConfig, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return app.Config{}, fmt.Errorf("%w: %v", errConfig, err)
		}
	}
	app.ApplyEnvOverrides(&cfg)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	overlayFlags(&cfg, flagCfg, set)
	if len(meta) > 0 {
		if cfg.Meta == nil {
			cfg.Meta = map[string]string{}
		}
		for k, v := range meta {
			cfg.Meta[k] = v
		}
	}

	// Flag defaults fill anything no layer provided
	defaults := map[string]bool{}
	fs.VisitAll(func(f *flag.Flag) {
		if !set[f.Name] {
			defaults[f.Name] = true
		}
	})
	fillDefaults(&cfg, flagCfg, defaults)

	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, fmt.Errorf("%w: %v", errConfig, err)
	}
	return cfg, nil
}

func overlayFlags(cfg *app.Config, f app.Config, set map[string]bool) {
	str := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	str("input", &cfg.InputPath, f.InputPath)
	str("topic", &cfg.Topic, f.Topic)
	str("template", &cfg.TemplatePath, f.TemplatePath)
	str("output", &cfg.OutputPath, f.OutputPath)
	str("output.pdf", &cfg.OutputPDFPath, f.OutputPDFPath)
	str("llm.base", &cfg.LLMBaseURL, f.LLMBaseURL)
	str("llm.model", &cfg.LLMModel, f.LLMModel)
	str("llm.key", &cfg.LLMAPIKey, f.LLMAPIKey)
	str("lang", &cfg.Language, f.Language)
	str("cache.dir", &cfg.CacheDir, f.CacheDir)

	dur := func(name string, dst *time.Duration, v time.Duration) {
		if set[name] {
			*dst = v
		}
	}
	dur("llm.timeout", &cfg.LLMTimeout, f.LLMTimeout)
	dur("slots.backoff", &cfg.SlotBackoff, f.SlotBackoff)
	dur("slots.pause", &cfg.SlotPause, f.SlotPause)
	dur("cache.maxAge", &cfg.CacheMaxAge, f.CacheMaxAge)

	boolean := func(name string, dst *bool, v bool) {
		if set[name] {
			*dst = v
		}
	}
	boolean("llm.cacheOnly", &cfg.LLMCacheOnly, f.LLMCacheOnly)
	boolean("cache.clear", &cfg.CacheClear, f.CacheClear)
	boolean("cache.strictPerms", &cfg.CacheStrictPerms, f.CacheStrictPerms)
	boolean("dry-run", &cfg.DryRun, f.DryRun)
	boolean("v", &cfg.Verbose, f.Verbose)

	if set["seed"] {
		cfg.Seed = f.Seed
	}
	if set["slots.attempts"] {
		cfg.MaxSlotAttempts = f.MaxSlotAttempts
	}
	if set["cache.maxCount"] {
		cfg.CacheMaxCount = f.CacheMaxCount
	}
}

func fillDefaults(cfg *app.Config, f app.Config, unset map[string]bool) {
	if cfg.TemplatePath == "" && unset["template"] {
		cfg.TemplatePath = f.TemplatePath
	}
	if cfg.CacheDir == "" && unset["cache.dir"] {
		cfg.CacheDir = f.CacheDir
	}
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = f.LLMTimeout
	}
	if cfg.MaxSlotAttempts == 0 {
		cfg.MaxSlotAttempts = f.MaxSlotAttempts
	}
	if cfg.SlotBackoff == 0 {
		cfg.SlotBackoff = f.SlotBackoff
	}
	if cfg.SlotPause == 0 {
		cfg.SlotPause = f.SlotPause
	}
}

// exitCode maps run errors: configuration problems are 1, everything that
// fails once the pipeline runs is 2.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errConfig), errors.Is(err, app.ErrNoTemplate), errors.Is(err, app.ErrNoTopic):
		return exitConfig
	default:
		return exitPipeline
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return a.Run(ctx)
}
