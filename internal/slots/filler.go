// Package slots asks the model to fill one slide's placeholders per outline
// section, retrying malformed or incomplete replies.
package slots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goslides/internal/budget"
	"github.com/hyperifyio/goslides/internal/cache"
	"github.com/hyperifyio/goslides/internal/llm"
	"github.com/hyperifyio/goslides/internal/outline"
	"github.com/hyperifyio/goslides/internal/template"
)

const (
	// DefaultMaxAttempts bounds model calls per section.
	DefaultMaxAttempts = 4
	// DefaultBackoff is multiplied by the attempt number after a failure.
	DefaultBackoff = 800 * time.Millisecond
	// DefaultPause follows every successful section.
	DefaultPause = 2 * time.Second

	temperature = 0.6
)

// Request describes one section to fill against one slide's placeholders.
type Request struct {
	Topic   string
	Section outline.Section
	Keys    template.ParamSet
}

// Result carries the filled values. When OK is false every value is "".
type Result struct {
	Values   map[string]string
	Attempts int
	OK       bool
	Last     ParseResult
}

// Filler drives the per-section model calls.
type Filler struct {
	LLM *llm.Session
	// Cache holds validated replies; nil disables caching.
	Cache       *cache.LLMCache
	MaxAttempts int
	Backoff     time.Duration
	Pause       time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep     func(ctx context.Context, d time.Duration) error
	Verbose   bool
	CacheOnly bool
}

// Fill runs the bounded retry loop for one section. Malformed replies are
// recovered locally; transport errors and timeouts are returned.
func (f *Filler) Fill(ctx context.Context, req Request) (Result, error) {
	if f.LLM == nil || f.LLM.Client == nil {
		return Result{}, errors.New("slot filler not configured")
	}
	res := Result{Values: emptyValues(req.Keys)}
	if len(req.Keys) == 0 {
		res.OK = true
		return res, nil
	}
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Result{}, err
	}
	key := cache.KeyFrom(f.LLM.Model, llm.DefaultSystemPrompt+"\n\n"+prompt)
	if vals, ok := f.cached(ctx, key, req.Keys); ok {
		log.Debug().Str("stage", "slots").Str("section", req.Section.Title).Msg("slot cache hit")
		res.Values, res.OK = vals, true
		return res, nil
	}
	if f.CacheOnly {
		return Result{}, errors.New("slots cache-only: not found")
	}
	if est := budget.EstimatePromptTokens(llm.DefaultSystemPrompt, prompt); !budget.Fits(f.LLM.Model, budget.ReservedOutputTokens, est) {
		log.Warn().Str("stage", "slots").Str("section", req.Section.Title).Int("prompt_tokens", est).Msg("slot prompt may exceed model context")
	}
	if f.Verbose {
		log.Debug().Str("stage", "slots").Str("section", req.Section.Title).Int("prompt_len", len(prompt)).Strs("keys", req.Keys.Sorted()).Msg("slot prompt")
	}

	for attempt := 1; attempt <= f.maxAttempts(); attempt++ {
		res.Attempts = attempt
		reply, err := f.LLM.ChatOnce(ctx, prompt, "", temperature)
		if err != nil {
			return Result{}, fmt.Errorf("slots %q attempt %d: %w", req.Section.Title, attempt, err)
		}
		pr := Evaluate(reply, req.Keys)
		res.Last = pr
		if pr.Kind == Valid {
			res.Values, res.OK = pr.Project(req.Keys), true
			if len(pr.Extra) > 0 {
				log.Debug().Str("stage", "slots").Strs("extra", pr.Extra).Msg("dropping extra keys")
			}
			f.store(ctx, key, res.Values)
			log.Info().Str("stage", "slots").Str("section", req.Section.Title).Int("attempts", attempt).Msg("section filled")
			return res, nil
		}
		ev := log.Warn().Str("stage", "slots").Str("section", req.Section.Title).Int("attempt", attempt).Str("kind", pr.Kind.String())
		if pr.Kind == ParseFailure {
			ev = ev.Str("reason", pr.Reason)
		} else {
			ev = ev.Strs("missing", pr.Missing)
		}
		ev.Msg("slot reply rejected")
		if err := f.sleep(ctx, time.Duration(attempt)*f.backoff()); err != nil {
			return Result{}, err
		}
	}
	log.Warn().Str("stage", "slots").Str("section", req.Section.Title).Int("attempts", res.Attempts).Msg("giving up on section; leaving placeholders empty")
	return res, nil
}

// FillAll fills each request in order, pausing after every success.
func (f *Filler) FillAll(ctx context.Context, reqs []Request) ([]Result, error) {
	out := make([]Result, 0, len(reqs))
	for i, r := range reqs {
		res, err := f.Fill(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
		if res.OK && res.Attempts > 0 && i < len(reqs)-1 {
			if err := f.sleep(ctx, f.pause()); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// BuildPrompt embeds the section and the required keys as JSON.
func BuildPrompt(req Request) (string, error) {
	sectionJSON, err := json.Marshal(req.Section)
	if err != nil {
		return "", fmt.Errorf("encode section: %w", err)
	}
	keysJSON, err := json.Marshal(emptyValues(req.Keys))
	if err != nil {
		return "", fmt.Errorf("encode keys: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("# Info\n## OnlineJson\n```")
	sb.Write(sectionJSON)
	sb.WriteString("```\n## TemplateParamsJson\n```")
	sb.Write(keysJSON)
	sb.WriteString("```\n# Tasks\n")
	fmt.Fprintf(&sb, "Strictly follow [Info.TemplateParamsJson], based on the content of the `%s` title in 《%s》, fill in [Info.OnlineJson] accordingly, and finally output according to the markdown json format.\n", req.Section.Title, req.Topic)
	sb.WriteString("Note: The key values of json strictly correspond to [Info.TemplateParamsJson], and the values corresponding to keys cannot contain lists or dictionaries.\n")
	sb.WriteString("------\noutput:")
	return sb.String(), nil
}

func (f *Filler) cached(ctx context.Context, key string, keys template.ParamSet) (map[string]string, bool) {
	if f.Cache == nil {
		return nil, false
	}
	b, ok, _ := f.Cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var vals map[string]string
	if err := json.Unmarshal(b, &vals); err != nil {
		return nil, false
	}
	for _, k := range keys {
		if _, ok := vals[k]; !ok {
			return nil, false
		}
	}
	return vals, true
}

func (f *Filler) store(ctx context.Context, key string, vals map[string]string) {
	if f.Cache == nil {
		return
	}
	if b, err := json.Marshal(vals); err == nil {
		_ = f.Cache.Save(ctx, key, b)
	}
}

func (f *Filler) maxAttempts() int {
	if f.MaxAttempts > 0 {
		return f.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (f *Filler) backoff() time.Duration {
	if f.Backoff > 0 {
		return f.Backoff
	}
	return DefaultBackoff
}

func (f *Filler) pause() time.Duration {
	if f.Pause > 0 {
		return f.Pause
	}
	return DefaultPause
}

func (f *Filler) sleep(ctx context.Context, d time.Duration) error {
	if f.Sleep != nil {
		return f.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func emptyValues(keys template.ParamSet) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = ""
	}
	return out
}
