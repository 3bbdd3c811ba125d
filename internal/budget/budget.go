// Package budget estimates prompt sizes against model context windows.
package budget

import (
	"math"
	"strings"
)

// ReservedOutputTokens is held back for the reply when checking fit. Slot
// replies are a small JSON object; the outline reply is the larger one.
const ReservedOutputTokens = 2048

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// EstimatePromptTokens estimates a chat prompt made of the given message
// contents.
func EstimatePromptTokens(messages ...string) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m)
	}
	return total
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	for _, s := range sizeSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return 8192
}

// HeadroomTokens is the larger of 5% of the model context or 512 tokens,
// covering tokenizer and message framing overheads.
func HeadroomTokens(modelName string) int {
	max := ModelContextTokens(modelName)
	dyn := int(math.Ceil(float64(max) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// Remaining computes the input tokens left after the reply reservation and
// headroom. The result is never negative.
func Remaining(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Fits reports whether promptTokens leave room for the reserved reply.
func Fits(modelName string, reservedForOutput int, promptTokens int) bool {
	return Remaining(modelName, reservedForOutput, promptTokens) > 0
}

var knownModelMax = map[string]int{
	"gpt-4o":            128_000,
	"gpt-4o-mini":       128_000,
	"gpt-4-turbo":       128_000,
	"gpt-3.5-turbo":     16_384,
	"claude-3-5-sonnet": 200_000,
	"claude-3-haiku":    200_000,
	"llama-3":           8_192,
	"llama-3.1":         128_000,
	"qwen2.5":           32_768,
	"gpt-oss-20b":       4_096,
}

var sizeSuffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"512k", 512_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}
