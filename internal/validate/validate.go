// Package validate runs deterministic checks over a planned outline and a
// rendered deck. Findings are warnings; nothing here fails a run.
package validate

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/goslides/internal/deck"
	"github.com/hyperifyio/goslides/internal/outline"
	"github.com/hyperifyio/goslides/internal/template"
)

// Outline reports sections that will render poorly: blank titles, titles
// repeated case-insensitively, and sections with no subsections.
func Outline(o outline.Outline) []string {
	var issues []string
	seen := map[string]int{}
	for i, s := range o.Sections {
		no := i + 1
		title := strings.TrimSpace(s.Title)
		if title == "" {
			issues = append(issues, fmt.Sprintf("section %d has no title", no))
		} else {
			key := strings.ToLower(title)
			if prev, ok := seen[key]; ok {
				issues = append(issues, fmt.Sprintf("section %d repeats the title of section %d: %q", no, prev, title))
			} else {
				seen[key] = no
			}
		}
		if len(s.Subsections) == 0 {
			issues = append(issues, fmt.Sprintf("section %d has no subsections", no))
		}
	}
	return issues
}

// Residual is a placeholder token still present after substitution.
type Residual struct {
	Slide int
	Name  string
}

func (r Residual) String() string {
	return fmt.Sprintf("slide %d: %s", r.Slide, template.Token(r.Name))
}

// Residuals lists placeholder tokens left in d, run by run. Generated values
// that happen to contain braces are reported too.
func Residuals(d *deck.Deck) []Residual {
	var out []Residual
	for i, s := range d.Slides {
		for _, r := range s.Runs() {
			for _, name := range template.Placeholders(r.Text()) {
				out = append(out, Residual{Slide: i, Name: name})
			}
		}
	}
	return out
}

// ResidualsIn opens the deck at path and lists its residual tokens.
func ResidualsIn(path string) ([]Residual, error) {
	d, err := deck.Open(path)
	if err != nil {
		return nil, err
	}
	return Residuals(d), nil
}
