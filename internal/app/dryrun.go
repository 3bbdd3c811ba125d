package app

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/goslides/internal/budget"
	"github.com/hyperifyio/goslides/internal/llm"
	"github.com/hyperifyio/goslides/internal/planner"
	"github.com/hyperifyio/goslides/internal/slots"
	"github.com/hyperifyio/goslides/internal/template"
)

// renderDryRun summarizes what a real run would fill: the topic, the
// front matter and every role's instances and placeholders.
func renderDryRun(cfg Config, topic string, meta map[string]string, sm template.SlotMap) string {
	var b strings.Builder
	b.WriteString("# goslides (dry run)\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	fmt.Fprintf(&b, "Template: %s\n", cfg.TemplatePath)
	fmt.Fprintf(&b, "Language: %s\n", languageName(cfg.Language))
	fmt.Fprintf(&b, "Model: %s\n", cfg.LLMModel)

	b.WriteString("\nFront matter:\n")
	for _, k := range sortedKeys(meta) {
		fmt.Fprintf(&b, "- %s: %s\n", k, meta[k])
	}

	for _, r := range template.Roles {
		rs := sm[r]
		fmt.Fprintf(&b, "\n## %s\n\n", r)
		if len(rs.Instances) == 0 {
			b.WriteString("(none)\n")
			continue
		}
		for i, n := range rs.Instances {
			var names []string
			if i < len(rs.Params) {
				names = rs.Params[i].Sorted()
			}
			if len(names) == 0 {
				fmt.Fprintf(&b, "- slide %d: (no placeholders)\n", n)
				continue
			}
			fmt.Fprintf(&b, "- slide %d: %s\n", n, strings.Join(names, ", "))
		}
	}
	fmt.Fprintf(&b, "\nContent capacity: %d sections\n", len(sm[template.ContentSlide].Instances))
	writePromptBudget(&b, cfg, topic, sm[template.ContentSlide])
	return b.String()
}

// writePromptBudget estimates the outline prompt and the largest slot prompt
// before any section text is added.
func writePromptBudget(b *strings.Builder, cfg Config, topic string, content template.RoleSlots) {
	model := cfg.LLMModel
	fmt.Fprintf(b, "\nPrompt budget (context %d tokens, headroom %d):\n", budget.ModelContextTokens(model), budget.HeadroomTokens(model))
	sys, user := planner.Prompt(topic, languageName(cfg.Language))
	outlineTokens := budget.EstimatePromptTokens(sys, user)
	fmt.Fprintf(b, "- outline: ~%d tokens\n", outlineTokens)
	largest := 0
	for _, ps := range content.Params {
		prompt, err := slots.BuildPrompt(slots.Request{Topic: topic, Keys: ps})
		if err != nil {
			continue
		}
		if n := budget.EstimatePromptTokens(llm.DefaultSystemPrompt, prompt); n > largest {
			largest = n
		}
	}
	fmt.Fprintf(b, "- largest slot prompt: ~%d tokens plus section text\n", largest)
	if !budget.Fits(model, budget.ReservedOutputTokens, outlineTokens) {
		b.WriteString("- warning: outline prompt leaves no room for the reply\n")
	}
}
