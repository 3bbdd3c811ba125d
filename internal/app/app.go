// Package app wires configuration, the model client and the generation
// pipeline into a single run.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goslides/internal/assemble"
	"github.com/hyperifyio/goslides/internal/brief"
	"github.com/hyperifyio/goslides/internal/cache"
	"github.com/hyperifyio/goslides/internal/deck"
	"github.com/hyperifyio/goslides/internal/llm"
	"github.com/hyperifyio/goslides/internal/planner"
	"github.com/hyperifyio/goslides/internal/slots"
	"github.com/hyperifyio/goslides/internal/template"
	"github.com/hyperifyio/goslides/internal/validate"
)

// ErrNoTemplate is returned when the template deck cannot be found.
var ErrNoTemplate = errors.New("template not found")

// ErrNoTopic is returned when neither flags nor the request file name a topic.
var ErrNoTopic = errors.New("no topic")

type App struct {
	cfg    Config
	client llm.Client
	cache  *cache.LLMCache
	runID  string
}

// New builds an App. The model server is probed with a best-effort model
// listing; failures only warn.
func New(ctx context.Context, cfg Config) (*App, error) {
	applyDefaults(&cfg)

	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	transportCfg.HTTPClient = newLLMHTTPClient(cfg.LLMTimeout)
	provider := &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}

	a := &App{cfg: cfg, client: provider, runID: uuid.NewString()}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 || cfg.CacheMaxCount > 0 {
			// Purge errors are not fatal; a stale cache only costs extra calls
			if n, err := cache.EnforceLLMCacheLimits(cfg.CacheDir, cfg.CacheMaxAge, cfg.CacheMaxCount); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("cache entries purged")
			}
		}
		a.cache = &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	if cfg.DryRun || cfg.LLMCacheOnly {
		return a, nil
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := provider.ListModels(pctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
	} else if len(models.Models) > 0 {
		log.Info().Int("count", len(models.Models)).Msg("LLM models available")
	} else {
		log.Warn().Msg("LLM returned zero models")
	}
	return a, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = DefaultTemplatePath
	}
	if cfg.Layout == nil {
		cfg.Layout = template.DefaultLayout()
	}
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	if cfg.MaxSlotAttempts == 0 {
		cfg.MaxSlotAttempts = DefaultSlotAttempts
	}
	if cfg.SlotBackoff == 0 {
		cfg.SlotBackoff = DefaultSlotBackoff
	}
	if cfg.SlotPause == 0 {
		cfg.SlotPause = DefaultSlotPause
	}
}

func (a *App) Close() {}

// request resolves the topic and front matter. Flag and config values win
// over the request file; front matter always carries "topic".
func (a *App) request() (string, map[string]string, string, error) {
	meta := map[string]string{}
	topic := strings.TrimSpace(a.cfg.Topic)
	lang := a.cfg.Language
	if p := strings.TrimSpace(a.cfg.InputPath); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return "", nil, "", fmt.Errorf("read input: %w", err)
		}
		br := brief.Parse(p, string(b))
		for k, v := range br.Meta {
			meta[k] = v
		}
		if topic == "" {
			topic = br.Topic
		}
		if lang == "" {
			lang = br.Language()
		}
	}
	for k, v := range a.cfg.Meta {
		meta[k] = v
	}
	if topic == "" {
		return "", nil, "", ErrNoTopic
	}
	if _, ok := a.cfg.Meta["topic"]; !ok {
		meta["topic"] = topic
	}
	return topic, meta, lang, nil
}

func (a *App) Run(ctx context.Context) error {
	topic, meta, lang, err := a.request()
	if err != nil {
		return err
	}
	if _, err := os.Stat(a.cfg.TemplatePath); err != nil {
		return fmt.Errorf("%w: %s", ErrNoTemplate, a.cfg.TemplatePath)
	}
	slotMap, err := template.Load(a.cfg.TemplatePath, a.cfg.Layout)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	outPath := deriveOutputPath(a.cfg, topic)

	if a.cfg.DryRun {
		cfg := a.cfg
		cfg.Language = lang
		path := deriveDryRunPath(outPath)
		if err := os.WriteFile(path, []byte(renderDryRun(cfg, topic, meta, slotMap)), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info().Str("out", path).Msg("wrote dry-run output")
		return nil
	}

	session := &llm.Session{Client: a.client, Model: a.cfg.LLMModel, Timeout: a.cfg.LLMTimeout}
	p := &planner.LLMPlanner{
		LLM:       session,
		Language:  languageName(lang),
		Cache:     a.cache.Sub("outline"),
		Verbose:   a.cfg.Verbose,
		CacheOnly: a.cfg.LLMCacheOnly,
	}
	o, err := p.Plan(ctx, topic)
	if err != nil {
		return fmt.Errorf("plan outline: %w", err)
	}
	log.Info().Str("stage", "planner").Int("sections", len(o.Sections)).Msg("outline planned")
	for _, issue := range validate.Outline(o) {
		log.Warn().Str("stage", "planner").Msg(issue)
	}

	seed := a.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	as, err := assemble.Assign(assemble.NewRand(seed), o, slotMap)
	if err != nil {
		return err
	}

	f := &slots.Filler{
		LLM:         session,
		Cache:       a.cache.Sub("slots"),
		MaxAttempts: a.cfg.MaxSlotAttempts,
		Backoff:     a.cfg.SlotBackoff,
		Pause:       a.cfg.SlotPause,
		Verbose:     a.cfg.Verbose,
		CacheOnly:   a.cfg.LLMCacheOnly,
	}
	reqs := make([]slots.Request, 0, len(as))
	for _, asg := range as {
		reqs = append(reqs, slots.Request{Topic: topic, Section: asg.Section, Keys: asg.Keys})
	}
	results, err := f.FillAll(ctx, reqs)
	if err != nil {
		return fmt.Errorf("fill slots: %w", err)
	}
	for i, r := range results {
		as[i].Values = r.Values
		as[i].Filled = r.OK
	}

	plan, err := assemble.BuildPlan(o, as, meta, slotMap)
	if err != nil {
		return err
	}
	asm := &assemble.Assembler{Duplicator: deck.Duplicator{}}
	if err := asm.Render(ctx, plan, a.cfg.TemplatePath, outPath); err != nil {
		return fmt.Errorf("render deck: %w", err)
	}

	failed := failedSections(as)
	if len(failed) > 0 {
		log.Warn().Strs("sections", failed).Msg("some sections left with empty placeholders")
	}
	residuals, err := validate.ResidualsIn(outPath)
	if err != nil {
		log.Warn().Err(err).Str("out", outPath).Msg("could not re-read deck")
	}
	for _, r := range residuals {
		log.Warn().Str("stage", "assemble").Msg("placeholder left in deck: " + r.String())
	}
	manMeta := manifestMeta{
		RunID:          a.runID,
		Version:        BuildVersion,
		Topic:          topic,
		Template:       a.cfg.TemplatePath,
		Output:         outPath,
		Model:          a.cfg.LLMModel,
		LLMBaseURL:     a.cfg.LLMBaseURL,
		Language:       languageName(lang),
		Seed:           seed,
		Sections:       len(o.Sections),
		FailedSections: failed,
		LLMCache:       a.cache != nil,
		Residuals:      len(residuals),
		GeneratedAt:    time.Now().UTC(),
	}
	if data, err := marshalManifestJSON(manMeta, buildManifestSlides(plan, as)); err == nil {
		_ = os.WriteFile(deriveManifestSidecarPath(outPath), data, 0o644)
	}

	if a.cfg.OutputPDFPath != "" {
		if err := writeOutlinePDF(o, a.cfg.OutputPDFPath); err != nil {
			log.Warn().Err(err).Str("path", a.cfg.OutputPDFPath).Msg("handout PDF failed")
		} else {
			log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote handout PDF")
		}
	}
	log.Info().Str("out", outPath).Str("run_id", a.runID).Msg("wrote deck")
	return nil
}
