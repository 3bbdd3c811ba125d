package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goslides/internal/budget"
	"github.com/hyperifyio/goslides/internal/cache"
	"github.com/hyperifyio/goslides/internal/llm"
	"github.com/hyperifyio/goslides/internal/outline"
)

// MaxContinuations bounds how many "Continue" turns are issued when the
// outline reply is cut off.
const MaxContinuations = 1

// DefaultLanguage is written into the prompt when none is configured.
const DefaultLanguage = "British English"

const (
	systemMessage  = "You are an all-capable assistant"
	continuePrompt = "Continue"
	temperature    = 0.1
)

// ErrNotConfigured is returned when the planner has no session or model.
var ErrNotConfigured = errors.New("planner not configured")

// Planner produces a deck outline for a topic.
type Planner interface {
	Plan(ctx context.Context, topic string) (outline.Outline, error)
}

// LLMPlanner asks the model for the outline JSON in one reply, continuing
// once if the reply is truncated.
type LLMPlanner struct {
	LLM *llm.Session
	// Language is a display name such as "British English".
	Language string
	Cache    *cache.LLMCache
	Verbose  bool
	// CacheOnly, when true, returns from cache and fails fast if missing.
	CacheOnly bool
}

type phase int

const (
	phaseGenerating phase = iota
	phaseContinuing
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseGenerating:
		return "generating"
	case phaseContinuing:
		return "continuing"
	default:
		return "done"
	}
}

// Plan generates and parses the outline. A reply that is still malformed
// after the continuation surfaces as outline.ErrParse.
func (p *LLMPlanner) Plan(ctx context.Context, topic string) (outline.Outline, error) {
	raw, err := p.Generate(ctx, topic)
	if err != nil {
		return outline.Outline{}, err
	}
	o, err := outline.Parse(raw)
	if err != nil {
		return outline.Outline{}, err
	}
	if p.Cache != nil {
		payload, _ := json.Marshal(map[string]string{"outline": raw})
		_ = p.Cache.Save(ctx, p.cacheKey(topic), payload)
	}
	return o, nil
}

// Generate returns the raw, possibly continued, reply text. JSON is not
// parsed here.
func (p *LLMPlanner) Generate(ctx context.Context, topic string) (string, error) {
	if p.LLM == nil || p.LLM.Client == nil || p.LLM.Model == "" {
		return "", ErrNotConfigured
	}
	if p.Cache != nil {
		if b, ok, _ := p.Cache.Get(ctx, p.cacheKey(topic)); ok {
			var hit struct {
				Outline string `json:"outline"`
			}
			if err := json.Unmarshal(b, &hit); err == nil && hit.Outline != "" {
				log.Debug().Str("stage", "planner").Msg("outline cache hit")
				return hit.Outline, nil
			}
		}
	}
	if p.CacheOnly {
		return "", errors.New("planner cache-only: not found")
	}

	user := buildUserPrompt(topic, p.language())
	if est := budget.EstimatePromptTokens(systemMessage, user); !budget.Fits(p.LLM.Model, budget.ReservedOutputTokens, est) {
		log.Warn().Str("stage", "planner").Str("model", p.LLM.Model).Int("prompt_tokens", est).Int("context_tokens", budget.ModelContextTokens(p.LLM.Model)).Msg("outline prompt may exceed model context")
	}
	if p.Verbose {
		log.Debug().Str("stage", "planner").Str("model", p.LLM.Model).Int("system_len", len(systemMessage)).Int("user_len", len(user)).Msg("planner prompt")
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}

	var out strings.Builder
	continuations := 0
	for state := phaseGenerating; state != phaseDone; {
		reply, err := p.LLM.Chat(ctx, messages, temperature)
		if err != nil {
			return "", fmt.Errorf("planner call (%s): %w", state, err)
		}
		out.WriteString(reply)
		switch {
		case complete(out.String()):
			state = phaseDone
		case continuations >= MaxContinuations:
			log.Warn().Str("stage", "planner").Int("continuations", continuations).Msg("outline reply still truncated; giving up")
			state = phaseDone
		default:
			log.Warn().Str("stage", "planner").Msg("outline reply truncated; continuing")
			continuations++
			messages = append(messages,
				openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
				openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: continuePrompt},
			)
			state = phaseContinuing
		}
	}
	return out.String(), nil
}

func (p *LLMPlanner) language() string {
	if s := strings.TrimSpace(p.Language); s != "" {
		return s
	}
	return DefaultLanguage
}

func (p *LLMPlanner) cacheKey(topic string) string {
	return cache.KeyFrom(p.LLM.Model, systemMessage+"\n\n"+buildUserPrompt(topic, p.language()))
}

// complete reports whether the reply ends with the closing brace of a JSON
// object.
func complete(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), "}")
}

// Prompt returns the system and user messages sent for topic.
func Prompt(topic, language string) (system, user string) {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return systemMessage, buildUserPrompt(topic, language)
}

func buildUserPrompt(topic, language string) string {
	var sb strings.Builder
	sb.WriteString("Plan the content of a slide deck.\n")
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	sb.WriteString("\nLanguage: ")
	sb.WriteString(language)
	sb.WriteString("\n\nSplit the topic into sections; each section gets a title and a few sub-pages with a sub_title, a short desc and the content to present.")
	sb.WriteString("\nReply with JSON only, no narration and no code fences, following exactly this format:\n")
	sb.WriteString(outline.Shape)
	return sb.String()
}
