// Package outline holds the nested section/subsection structure produced by
// the planner.
package outline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse wraps every failure to decode a planner reply.
var ErrParse = errors.New("parse outline")

// Outline is the planned deck content. The wire format nests both levels
// under "pages".
type Outline struct {
	Topic    string    `json:"topic"`
	Sections []Section `json:"pages"`
}

// Section becomes one content slide.
type Section struct {
	Title string `json:"title"`
	// OrderNo is 1-based and zero until Stamp is called.
	OrderNo     int          `json:"no,omitempty"`
	Subsections []Subsection `json:"pages"`
}

// Subsection is one point within a section.
type Subsection struct {
	SubTitle string `json:"sub_title"`
	Desc     string `json:"desc"`
	Content  string `json:"content"`
	OrderNo  int    `json:"sub_no,omitempty"`
}

// Shape is the compact JSON shape the planner asks the model to follow.
const Shape = `{"topic":"str","pages":[{"title":"str","pages":[{"sub_title":"str","desc":"str","content":"str"}]}]}`

// Parse decodes a raw planner reply. Order numbers are stamped on success.
func Parse(raw string) (Outline, error) {
	var o Outline
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &o); err != nil {
		return Outline{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(o.Sections) == 0 {
		return Outline{}, fmt.Errorf("%w: no sections", ErrParse)
	}
	o.Stamp()
	return o, nil
}

// Stamp numbers sections and their subsections from 1 in order.
func (o *Outline) Stamp() {
	for i := range o.Sections {
		o.Sections[i].OrderNo = i + 1
		for j := range o.Sections[i].Subsections {
			o.Sections[i].Subsections[j].OrderNo = j + 1
		}
	}
}

// Titles returns section titles in order.
func (o Outline) Titles() []string {
	out := make([]string, 0, len(o.Sections))
	for _, s := range o.Sections {
		out = append(out, s.Title)
	}
	return out
}
