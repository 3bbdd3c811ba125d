package deck

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Duplicator builds a new deck holding one physical copy of a template slide
// per requested index. It satisfies the assembler's duplication contract and
// runs synchronously.
type Duplicator struct{}

// Duplicate reads src, rebuilds it with the slides at indices (in that order,
// repeats allowed) and saves the result to dst.
func (Duplicator) Duplicate(ctx context.Context, src, dst string, indices []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := Open(src)
	if err != nil {
		return err
	}
	out, err := d.Duplicate(indices)
	if err != nil {
		return err
	}
	return out.Save(dst)
}

type contentTypes struct {
	XMLName   xml.Name     `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []ctDefault  `xml:"Default"`
	Overrides []ctOverride `xml:"Override"`
}

type ctDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// Duplicate returns a new in-memory deck whose slide list is exactly the
// template slides at indices. Notes slides are not carried over.
func (d *Deck) Duplicate(indices []int) (*Deck, error) {
	if len(indices) == 0 {
		return nil, errors.New("duplicate: no slide indices")
	}
	for _, i := range indices {
		if i < 0 || i >= len(d.Slides) {
			return nil, fmt.Errorf("duplicate: slide index %d out of range [0,%d)", i, len(d.Slides))
		}
	}

	dropped := map[string]bool{
		contentTypesPart:     true,
		presentationPart:     true,
		presentationRelsPart: true,
	}
	for _, s := range d.Slides {
		dropped[s.Part] = true
		dropped[relsPathFor(s.Part)] = true
	}
	for _, p := range d.parts {
		if strings.HasPrefix(p.name, "ppt/notesSlides/") {
			dropped[p.name] = true
		}
	}

	presRels, err := parseRelationships(d.index[presentationRelsPart].data)
	if err != nil {
		return nil, err
	}
	kept := make([]relationship, 0, len(presRels.Items)+len(indices))
	used := map[string]bool{}
	maxID := 0
	for _, r := range presRels.Items {
		if r.Type == relTypeSlide {
			continue
		}
		kept = append(kept, r)
		used[r.ID] = true
		if n, err := strconv.Atoi(strings.TrimPrefix(r.ID, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}

	type newSlide struct {
		name, rid string
		data, rels []byte
	}
	slides := make([]newSlide, 0, len(indices))
	next := maxID + 1
	for i, idx := range indices {
		src := d.Slides[idx]
		rid := "rId" + strconv.Itoa(next)
		for used[rid] {
			next++
			rid = "rId" + strconv.Itoa(next)
		}
		used[rid] = true
		next++
		name := "slides/slide" + strconv.Itoa(i+1) + ".xml"
		kept = append(kept, relationship{ID: rid, Type: relTypeSlide, Target: name})

		ns := newSlide{name: "ppt/" + name, rid: rid, data: src.render()}
		if rp, ok := d.index[relsPathFor(src.Part)]; ok {
			rels, err := parseRelationships(rp.data)
			if err != nil {
				return nil, fmt.Errorf("slide %d: %w", idx, err)
			}
			filtered := rels.Items[:0:0]
			for _, r := range rels.Items {
				if r.Type != relTypeNotes {
					filtered = append(filtered, r)
				}
			}
			rels.Items = filtered
			if ns.rels, err = marshalXML(rels); err != nil {
				return nil, err
			}
		}
		slides = append(slides, ns)
	}

	rids := make([]string, 0, len(slides))
	for _, s := range slides {
		rids = append(rids, s.rid)
	}
	pres, err := rewriteSlideList(d.index[presentationPart].data, rids)
	if err != nil {
		return nil, err
	}
	relsXML, err := marshalXML(relationships{Items: kept})
	if err != nil {
		return nil, err
	}

	var ct contentTypes
	if p, ok := d.index[contentTypesPart]; ok {
		if err := xml.Unmarshal(p.data, &ct); err != nil {
			return nil, fmt.Errorf("parse content types: %w", err)
		}
	}
	overrides := ct.Overrides[:0:0]
	for _, o := range ct.Overrides {
		if !dropped[strings.TrimPrefix(o.PartName, "/")] {
			overrides = append(overrides, o)
		}
	}
	for _, s := range slides {
		overrides = append(overrides, ctOverride{PartName: "/" + s.name, ContentType: slideContentType})
	}
	ct.Overrides = overrides
	ctXML, err := marshalXML(ct)
	if err != nil {
		return nil, err
	}

	out := &Deck{index: map[string]*part{}}
	add := func(name string, data []byte) {
		p := &part{name: name, data: data}
		out.parts = append(out.parts, p)
		out.index[name] = p
	}
	add(contentTypesPart, ctXML)
	for _, p := range d.parts {
		if dropped[p.name] {
			continue
		}
		add(p.name, p.data)
	}
	add(presentationPart, pres)
	add(presentationRelsPart, relsXML)
	for _, s := range slides {
		add(s.name, s.data)
		if s.rels != nil {
			add(relsPathFor(s.name), s.rels)
		}
	}
	for i, s := range slides {
		sl, err := parseSlide(i, s.name, s.data)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
		out.Slides = append(out.Slides, sl)
	}
	return out, nil
}

// rewriteSlideList replaces the <p:sldIdLst> element of presentation.xml with
// one entry per relationship id, keeping the document's own prefixes.
func rewriteSlideList(raw []byte, rids []string) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		start, end = int64(-1), int64(-1)
		prefix     = "p"
		relPrefix  = "r"
	)
scan:
	for {
		before := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse presentation: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sldIdLst":
				start = before
				prefix = t.Name.Space
			case "sldId":
				for _, a := range t.Attr {
					if a.Name.Local == "id" && a.Name.Space != "" {
						relPrefix = a.Name.Space
					}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "sldIdLst" {
				end = dec.InputOffset()
				break scan
			}
		}
	}
	if start < 0 || end < 0 {
		return nil, errors.New("presentation has no slide id list")
	}
	qualify := func(local string) string {
		if prefix == "" {
			return local
		}
		return prefix + ":" + local
	}
	var sb strings.Builder
	sb.WriteString("<" + qualify("sldIdLst") + ">")
	for i, rid := range rids {
		fmt.Fprintf(&sb, `<%s id="%d" %s:id="%s"/>`, qualify("sldId"), 256+i, relPrefix, rid)
	}
	sb.WriteString("</" + qualify("sldIdLst") + ">")

	out := make([]byte, 0, len(raw)+sb.Len())
	out = append(out, raw[:start]...)
	out = append(out, sb.String()...)
	out = append(out, raw[end:]...)
	return out, nil
}
