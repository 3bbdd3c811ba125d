// Package decktest builds small presentation packages for tests.
package decktest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Shape is a text shape; each paragraph is a list of run texts.
type Shape struct {
	Name       string
	Paragraphs [][]string
}

// Slide describes one slide. Grouped shapes are wrapped in a single group
// shape after the top-level ones.
type Slide struct {
	Shapes  []Shape
	Grouped []Shape
	// Notes, when non-empty, adds a notes slide.
	Notes string
}

const (
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Texts is shorthand for a one-paragraph-per-string shape.
func Texts(name string, paragraphs ...string) Shape {
	s := Shape{Name: name}
	for _, p := range paragraphs {
		s.Paragraphs = append(s.Paragraphs, []string{p})
	}
	return s
}

// Write saves a package with the given slides to path.
func Write(path string, slides []Slide) error {
	b, err := Bytes(slides)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Make writes a package named template.pptx under a fresh temp dir.
func Make(t testing.TB, slides ...Slide) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "template.pptx")
	if err := Write(p, slides); err != nil {
		t.Fatalf("decktest: %v", err)
	}
	return p
}

// Bytes encodes a package with the given slides.
func Bytes(slides []Slide) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, body string) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write([]byte(xml.Header + body))
		return err
	}

	var ct, presRels, sldIDs strings.Builder
	ct.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	ct.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	ct.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	ct.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)

	presRels.WriteString(`<Relationships xmlns="` + nsRel + `">`)
	presRels.WriteString(`<Relationship Id="rId1" Type="` + nsR + `/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)

	files := map[string]string{}
	for i, s := range slides {
		n := i + 1
		rid := fmt.Sprintf("rId%d", n+1)
		fmt.Fprintf(&ct, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, n)
		fmt.Fprintf(&presRels, `<Relationship Id="%s" Type="%s/slide" Target="slides/slide%d.xml"/>`, rid, nsR, n)
		fmt.Fprintf(&sldIDs, `<p:sldId id="%d" r:id="%s"/>`, 255+n, rid)

		files[fmt.Sprintf("ppt/slides/slide%d.xml", n)] = slideXML(s)
		rels := `<Relationships xmlns="` + nsRel + `"><Relationship Id="rId1" Type="` + nsR + `/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`
		if s.Notes != "" {
			rels += fmt.Sprintf(`<Relationship Id="rId2" Type="%s/notesSlide" Target="../notesSlides/notesSlide%d.xml"/>`, nsR, n)
			fmt.Fprintf(&ct, `<Override PartName="/ppt/notesSlides/notesSlide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>`, n)
			files[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)] = `<p:notes xmlns:a="` + nsA + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>` + spXML(Texts("Notes", s.Notes), 2) + `</p:spTree></p:cSld></p:notes>`
			files[fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", n)] = fmt.Sprintf(`<Relationships xmlns="%s"><Relationship Id="rId1" Type="%s/slide" Target="../slides/slide%d.xml"/></Relationships>`, nsRel, nsR, n)
		}
		files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n)] = rels + `</Relationships>`
	}
	ct.WriteString(`</Types>`)
	presRels.WriteString(`</Relationships>`)

	if err := add("[Content_Types].xml", ct.String()); err != nil {
		return nil, err
	}
	if err := add("_rels/.rels", `<Relationships xmlns="`+nsRel+`"><Relationship Id="rId1" Type="`+nsR+`/officeDocument" Target="ppt/presentation.xml"/></Relationships>`); err != nil {
		return nil, err
	}
	pres := `<p:presentation xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`
	if len(slides) > 0 {
		pres += `<p:sldIdLst>` + sldIDs.String() + `</p:sldIdLst>`
	}
	pres += `<p:sldSz cx="12192000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/></p:presentation>`
	if err := add("ppt/presentation.xml", pres); err != nil {
		return nil, err
	}
	if err := add("ppt/_rels/presentation.xml.rels", presRels.String()); err != nil {
		return nil, err
	}
	if err := add("ppt/slideMasters/slideMaster1.xml", `<p:sldMaster xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+`"><p:cSld><p:spTree/></p:cSld></p:sldMaster>`); err != nil {
		return nil, err
	}
	if err := add("ppt/slideMasters/_rels/slideMaster1.xml.rels", `<Relationships xmlns="`+nsRel+`"><Relationship Id="rId1" Type="`+nsR+`/slideLayout" Target="../slideLayouts/slideLayout1.xml"/></Relationships>`); err != nil {
		return nil, err
	}
	if err := add("ppt/slideLayouts/slideLayout1.xml", `<p:sldLayout xmlns:a="`+nsA+`" xmlns:r="`+nsR+`" xmlns:p="`+nsP+`"><p:cSld><p:spTree/></p:cSld></p:sldLayout>`); err != nil {
		return nil, err
	}
	if err := add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", `<Relationships xmlns="`+nsRel+`"><Relationship Id="rId1" Type="`+nsR+`/slideMaster" Target="../slideMasters/slideMaster1.xml"/></Relationships>`); err != nil {
		return nil, err
	}
	for i := range slides {
		n := i + 1
		for _, name := range []string{
			fmt.Sprintf("ppt/slides/slide%d.xml", n),
			fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n),
			fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n),
			fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", n),
		} {
			body, ok := files[name]
			if !ok {
				continue
			}
			if err := add(name, body); err != nil {
				return nil, err
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func slideXML(s Slide) string {
	var sb strings.Builder
	sb.WriteString(`<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`)
	id := 2
	for _, sh := range s.Shapes {
		sb.WriteString(spXML(sh, id))
		id++
	}
	if len(s.Grouped) > 0 {
		fmt.Fprintf(&sb, `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="%d" name="Group %d"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`, id, id)
		id++
		for _, sh := range s.Grouped {
			sb.WriteString(spXML(sh, id))
			id++
		}
		sb.WriteString(`</p:grpSp>`)
	}
	sb.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return sb.String()
}

func spXML(sh Shape, id int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>`, id, escape(sh.Name))
	sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, para := range sh.Paragraphs {
		sb.WriteString(`<a:p>`)
		for _, run := range para {
			sb.WriteString(`<a:r><a:rPr lang="en-GB" dirty="0"/><a:t>` + escape(run) + `</a:t></a:r>`)
		}
		sb.WriteString(`</a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	return sb.String()
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Stock returns a ten-slide template laid out like the default role layout:
// leading, catalogue, section title, six content variants, trailing.
func Stock() []Slide {
	slides := []Slide{
		{Shapes: []Shape{Texts("Title", "{topic}"), Texts("Subtitle", "{author} | {date}")}},
		{Shapes: []Shape{Texts("Agenda", "{title_1}", "{title_2}", "{title_3}")}},
		{Shapes: []Shape{Texts("Section", "{section_title}")}},
	}
	for i := 1; i <= 6; i++ {
		slides = append(slides, Slide{
			Shapes:  []Shape{Texts("Heading", "{heading}")},
			Grouped: []Shape{Texts("Body", fmt.Sprintf("{point_%d}", i), "{summary}")},
			Notes:   fmt.Sprintf("variant %d", i),
		})
	}
	slides = append(slides, Slide{Shapes: []Shape{Texts("Closing", "Thank you")}})
	return slides
}
