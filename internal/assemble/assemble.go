// Package assemble turns filled slot values into a finished deck: it samples
// content slide instances, builds the render plan, asks for the duplicated
// deck and substitutes placeholders run by run.
package assemble

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goslides/internal/deck"
	"github.com/hyperifyio/goslides/internal/outline"
	"github.com/hyperifyio/goslides/internal/template"
)

// Duplicator materializes dst with one slide per entry of indices, copied
// from the template slide at that index.
type Duplicator interface {
	Duplicate(ctx context.Context, src, dst string, indices []int) error
}

// CapacityError reports an outline with more sections than the template has
// content slide instances.
type CapacityError struct {
	Required  int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("outline needs %d content slides but template offers %d", e.Required, e.Available)
}

// Assignment binds one section to a sampled content slide instance.
type Assignment struct {
	Section  outline.Section
	Instance int
	Keys     template.ParamSet
	// Values start as "" for every key.
	Values map[string]string
	Filled bool
}

// NewRand returns a PCG source for seed; seed 0 uses the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Assign samples, without replacement, one content instance per section.
// Sampled instances keep section order.
func Assign(rng *rand.Rand, o outline.Outline, slots template.SlotMap) ([]Assignment, error) {
	content := slots[template.ContentSlide]
	n, avail := len(o.Sections), len(content.Instances)
	if n > avail {
		return nil, &CapacityError{Required: n, Available: avail}
	}
	picks := rng.Perm(avail)[:n]
	out := make([]Assignment, 0, n)
	for i, sec := range o.Sections {
		idx := picks[i]
		var keys template.ParamSet
		if idx < len(content.Params) {
			keys = content.Params[idx]
		}
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			vals[k] = ""
		}
		out = append(out, Assignment{Section: sec, Instance: content.Instances[idx], Keys: keys, Values: vals})
	}
	log.Debug().Str("stage", "assemble").Ints("content_instances", instances(out)).Msg("sampled content slides")
	return out, nil
}

// Catalogue keys section titles as title_1..title_N.
func Catalogue(o outline.Outline) map[string]string {
	out := make(map[string]string, len(o.Sections))
	for i, s := range o.Sections {
		out["title_"+strconv.Itoa(i+1)] = s.Title
	}
	return out
}

// RenderPlan pairs each output slide with the template instance it copies
// and the values for its placeholders.
type RenderPlan struct {
	Params    []map[string]string `json:"params"`
	Instances []int               `json:"instances"`
}

// BuildPlan orders the deck as leading slide, catalogue, content slides in
// section order, trailing slide.
func BuildPlan(o outline.Outline, as []Assignment, front map[string]string, slots template.SlotMap) (RenderPlan, error) {
	first, ok := slots.First(template.FirstSlide)
	if !ok {
		return RenderPlan{}, fmt.Errorf("template has no %s", template.FirstSlide)
	}
	cat, ok := slots.First(template.CatalogueSlide)
	if !ok {
		return RenderPlan{}, fmt.Errorf("template has no %s", template.CatalogueSlide)
	}
	end, ok := slots.First(template.EndSlide)
	if !ok {
		return RenderPlan{}, fmt.Errorf("template has no %s", template.EndSlide)
	}
	if front == nil {
		front = map[string]string{}
	}
	p := RenderPlan{
		Params:    []map[string]string{front, Catalogue(o)},
		Instances: []int{first, cat},
	}
	for _, a := range as {
		p.Params = append(p.Params, a.Values)
		p.Instances = append(p.Instances, a.Instance)
	}
	p.Params = append(p.Params, map[string]string{})
	p.Instances = append(p.Instances, end)
	return p, nil
}

// Substitute replaces every {name} in text with params[name], or "" when
// the key is absent.
func Substitute(text string, params map[string]string) string {
	return template.Expand(text, func(name string) string { return params[name] })
}

// Fill substitutes placeholders on slide i from plan.Params[i]. It returns
// the number of runs changed.
func Fill(d *deck.Deck, plan RenderPlan) (int, error) {
	if len(d.Slides) != len(plan.Params) {
		return 0, fmt.Errorf("deck has %d slides, plan has %d", len(d.Slides), len(plan.Params))
	}
	changed := 0
	for i, s := range d.Slides {
		for _, r := range s.Runs() {
			old := r.Text()
			if nt := Substitute(old, plan.Params[i]); nt != old {
				r.SetText(nt)
				changed++
			}
		}
	}
	return changed, nil
}

// Assembler renders plans through a Duplicator.
type Assembler struct {
	Duplicator Duplicator
}

// Render duplicates the template into outPath following plan, then fills
// it in place.
func (a *Assembler) Render(ctx context.Context, plan RenderPlan, templatePath, outPath string) error {
	if len(plan.Params) != len(plan.Instances) {
		return fmt.Errorf("render plan mismatch: %d param sets for %d instances", len(plan.Params), len(plan.Instances))
	}
	dup := a.Duplicator
	if dup == nil {
		dup = deck.Duplicator{}
	}
	if err := dup.Duplicate(ctx, templatePath, outPath, plan.Instances); err != nil {
		return fmt.Errorf("duplicate slides: %w", err)
	}
	d, err := deck.Open(outPath)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", outPath, err)
	}
	changed, err := Fill(d, plan)
	if err != nil {
		return err
	}
	if err := d.Save(outPath); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}
	log.Info().Str("stage", "assemble").Str("path", outPath).Int("slides", len(d.Slides)).Int("runs_changed", changed).Msg("deck written")
	return nil
}

func instances(as []Assignment) []int {
	out := make([]int, 0, len(as))
	for _, a := range as {
		out = append(out, a.Instance)
	}
	return out
}
