package app

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hyperifyio/goslides/internal/assemble"
	"github.com/hyperifyio/goslides/internal/template"
)

// manifestSlide records one output slide: which template instance it copies
// and which placeholder values it received.
type manifestSlide struct {
	Position int      `json:"position"`
	Instance int      `json:"instance"`
	Role     string   `json:"role"`
	Keys     []string `json:"keys"`
	Section  string   `json:"section,omitempty"`
	Filled   *bool    `json:"filled,omitempty"`
}

// manifestMeta captures high-level run details that aid reproducibility.
type manifestMeta struct {
	RunID          string    `json:"run_id"`
	Version        string    `json:"version"`
	Topic          string    `json:"topic"`
	Template       string    `json:"template"`
	Output         string    `json:"output"`
	Model          string    `json:"model"`
	LLMBaseURL     string    `json:"llm_base_url"`
	Language       string    `json:"language"`
	Seed           uint64    `json:"seed"`
	Sections       int       `json:"sections"`
	FailedSections []string  `json:"failed_sections"`
	LLMCache       bool      `json:"llm_cache"`
	Residuals      int       `json:"residual_placeholders"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// buildManifestSlides pairs every plan entry with its role. Content slides
// carry the section title and whether slot filling succeeded.
func buildManifestSlides(plan assemble.RenderPlan, as []assemble.Assignment) []manifestSlide {
	last := len(plan.Instances) - 1
	out := make([]manifestSlide, 0, len(plan.Instances))
	for i, inst := range plan.Instances {
		s := manifestSlide{Position: i, Instance: inst, Keys: sortedKeys(plan.Params[i])}
		switch {
		case i == 0:
			s.Role = string(template.FirstSlide)
		case i == 1:
			s.Role = string(template.CatalogueSlide)
		case i == last:
			s.Role = string(template.EndSlide)
		default:
			s.Role = string(template.ContentSlide)
			if k := i - 2; k < len(as) {
				filled := as[k].Filled
				s.Section = strings.TrimSpace(as[k].Section.Title)
				s.Filled = &filled
			}
		}
		out = append(out, s)
	}
	return out
}

func failedSections(as []assemble.Assignment) []string {
	out := []string{}
	for _, a := range as {
		if !a.Filled {
			out = append(out, a.Section.Title)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	ps := make(template.ParamSet, 0, len(m))
	for k := range m {
		ps = append(ps, k)
	}
	return ps.Sorted()
}

// marshalManifestJSON encodes the machine-readable sidecar manifest.
func marshalManifestJSON(meta manifestMeta, slides []manifestSlide) ([]byte, error) {
	payload := struct {
		Meta   manifestMeta    `json:"meta"`
		Slides []manifestSlide `json:"slides"`
	}{Meta: meta, Slides: slides}
	return json.MarshalIndent(payload, "", "  ")
}
