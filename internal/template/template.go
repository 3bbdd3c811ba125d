// Package template discovers the named {placeholder} slots a template deck
// exposes for each slide role.
package template

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hyperifyio/goslides/internal/deck"
)

// Role names a logical category of template slide.
type Role string

const (
	// FirstSlide is the leading title slide populated from front matter.
	FirstSlide Role = "first_slide"
	// CatalogueSlide lists section titles as title_1..title_N.
	CatalogueSlide Role = "catalogue_slide"
	// TitleSlide is a section divider. It is extracted but not placed.
	TitleSlide Role = "title_slide"
	// ContentSlide instances are sampled, one per outline section.
	ContentSlide Role = "content_slide"
	// EndSlide is the trailing slide.
	EndSlide Role = "end_slide"
)

// Roles lists every role in deck order.
var Roles = []Role{FirstSlide, CatalogueSlide, TitleSlide, ContentSlide, EndSlide}

// Layout declares which template slide indices play which role.
type Layout map[Role][]int

// DefaultLayout matches the stock ten-slide template.
func DefaultLayout() Layout {
	return Layout{
		FirstSlide:     {0},
		CatalogueSlide: {1},
		TitleSlide:     {2},
		ContentSlide:   {3, 4, 5, 6, 7, 8},
		EndSlide:       {9},
	}
}

// Validate checks every index against the template's slide count and that
// the single-instance roles used for assembly are declared.
func (l Layout) Validate(slideCount int) error {
	for _, r := range Roles {
		for _, n := range l[r] {
			if n < 0 || n >= slideCount {
				return fmt.Errorf("layout %s: slide index %d out of range (template has %d slides)", r, n, slideCount)
			}
		}
	}
	for _, r := range []Role{FirstSlide, CatalogueSlide, EndSlide} {
		if len(l[r]) == 0 {
			return fmt.Errorf("layout %s: no slide declared", r)
		}
	}
	return nil
}

// ParamSet is the ordered, duplicate-free list of placeholder names found
// on one slide instance.
type ParamSet []string

// Contains reports whether name is in the set. Names compare byte for byte.
func (p ParamSet) Contains(name string) bool {
	for _, n := range p {
		if n == name {
			return true
		}
	}
	return false
}

// Sorted returns a sorted copy, useful for stable prompts and logs.
func (p ParamSet) Sorted() []string {
	out := append([]string(nil), p...)
	sort.Strings(out)
	return out
}

// RoleSlots holds one entry in Params per entry in Instances.
type RoleSlots struct {
	Instances []int      `json:"instance_numbers"`
	Params    []ParamSet `json:"param_sets"`
}

// SlotMap is the set of named slots a template exposes, per role.
type SlotMap map[Role]RoleSlots

// First returns the first instance number declared for role.
func (m SlotMap) First(role Role) (int, bool) {
	rs, ok := m[role]
	if !ok || len(rs.Instances) == 0 {
		return 0, false
	}
	return rs.Instances[0], true
}

var placeholderRe = regexp.MustCompile(`\{(.*?)\}`)

// Placeholders returns the names of every {name} token in text, in order of
// appearance. Repeats are kept.
func Placeholders(text string) []string {
	ms := placeholderRe.FindAllStringSubmatch(text, -1)
	if len(ms) == 0 {
		return nil
	}
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m[1])
	}
	return out
}

// Expand replaces every {name} token in text with lookup(name).
func Expand(text string, lookup func(name string) string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(tok string) string {
		return lookup(tok[1 : len(tok)-1])
	})
}

// Token returns the literal placeholder text for name.
func Token(name string) string {
	return "{" + name + "}"
}

// SlideParams collects placeholders run by run. A token split across two
// runs is not a placeholder.
func SlideParams(s *deck.Slide) ParamSet {
	seen := map[string]bool{}
	out := ParamSet{}
	for _, sh := range s.Shapes {
		for _, p := range sh.Paragraphs {
			for _, r := range p.Runs {
				for _, name := range Placeholders(r.Text()) {
					if seen[name] {
						continue
					}
					seen[name] = true
					out = append(out, name)
				}
			}
		}
	}
	return out
}

// Extract builds the slot map for d under layout l.
func Extract(d *deck.Deck, l Layout) (SlotMap, error) {
	if err := l.Validate(len(d.Slides)); err != nil {
		return nil, err
	}
	m := make(SlotMap, len(Roles))
	for _, r := range Roles {
		nos := l[r]
		rs := RoleSlots{
			Instances: append([]int(nil), nos...),
			Params:    make([]ParamSet, 0, len(nos)),
		}
		for _, n := range nos {
			rs.Params = append(rs.Params, SlideParams(d.Slides[n]))
		}
		m[r] = rs
	}
	return m, nil
}

// Load opens the template at path and extracts its slot map.
func Load(path string, l Layout) (SlotMap, error) {
	d, err := deck.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := Extract(d, l)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return m, nil
}
