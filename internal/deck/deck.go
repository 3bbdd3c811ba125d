// Package deck reads and writes the zipped-XML presentation container.
//
// Only the text of paragraph runs is exposed for editing. Every other byte of
// a package is carried through unchanged: slide XML is rewritten by splicing
// the character data of edited <a:t> elements back into the original bytes.
package deck

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const (
	contentTypesPart     = "[Content_Types].xml"
	presentationPart     = "ppt/presentation.xml"
	presentationRelsPart = "ppt/_rels/presentation.xml.rels"

	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	relTypeSlide    = nsRelationships + "/slide"
	relTypeNotes    = nsRelationships + "/notesSlide"

	slideContentType = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
)

// ErrNotPresentation is returned when a package lacks the presentation part.
var ErrNotPresentation = errors.New("not a presentation package")

type part struct {
	name string
	data []byte
}

// Deck is an opened presentation package.
type Deck struct {
	parts []*part
	index map[string]*part
	// Slides are ordered as listed in the presentation's slide id list.
	Slides []*Slide
}

// Open reads the presentation at path into memory.
func Open(path string) (*Deck, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer rc.Close()
	return read(&rc.Reader)
}

// Read parses a presentation package from r.
func Read(r io.ReaderAt, size int64) (*Deck, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	return read(zr)
}

func read(zr *zip.Reader) (*Deck, error) {
	d := &Deck{index: make(map[string]*part, len(zr.File))}
	for _, f := range zr.File {
		if f == nil || f.FileInfo().IsDir() {
			continue
		}
		b, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		p := &part{name: f.Name, data: b}
		d.parts = append(d.parts, p)
		d.index[f.Name] = p
	}
	names, err := d.slidePartNames()
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		p, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("slide %d: missing part %s", i, name)
		}
		s, err := parseSlide(i, name, p.data)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
		d.Slides = append(d.Slides, s)
	}
	return d, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

func parseRelationships(b []byte) (relationships, error) {
	var rels relationships
	if err := xml.Unmarshal(b, &rels); err != nil {
		return rels, fmt.Errorf("parse relationships: %w", err)
	}
	return rels, nil
}

func marshalXML(v any) ([]byte, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}

// slidePartNames resolves the slide id list through the presentation
// relationships into zip entry names.
func (d *Deck) slidePartNames() ([]string, error) {
	pres, ok := d.index[presentationPart]
	if !ok {
		return nil, ErrNotPresentation
	}
	var px presentationXML
	if err := xml.Unmarshal(pres.data, &px); err != nil {
		return nil, fmt.Errorf("parse presentation: %w", err)
	}
	if len(px.SlideIDs) == 0 {
		return nil, nil
	}
	relsPart, ok := d.index[presentationRelsPart]
	if !ok {
		return nil, fmt.Errorf("missing %s", presentationRelsPart)
	}
	rels, err := parseRelationships(relsPart.data)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		if r.Type == relTypeSlide {
			targets[r.ID] = r.Target
		}
	}
	out := make([]string, 0, len(px.SlideIDs))
	for _, sid := range px.SlideIDs {
		target, ok := targets[sid.RID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", sid.RID)
		}
		out = append(out, resolveTarget(path.Dir(presentationPart), target))
	}
	return out, nil
}

func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(base, target))
}

// relsPathFor returns the relationships part that belongs to partName.
func relsPathFor(partName string) string {
	return path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
}

// Part returns the raw bytes of a package part as they would be saved.
func (d *Deck) Part(name string) ([]byte, bool) {
	for _, s := range d.Slides {
		if s.Part == name {
			return s.render(), true
		}
	}
	p, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return p.data, true
}

// PartNames lists the package entries in their stored order.
func (d *Deck) PartNames() []string {
	out := make([]string, 0, len(d.parts))
	for _, p := range d.parts {
		out = append(out, p.name)
	}
	return out
}

// Save writes the deck, including any edited run text, to path.
func (d *Deck) Save(path string) error {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	return nil
}

// Write encodes the package as a zip archive. The content types part is
// always written first.
func (d *Deck) Write(w io.Writer) error {
	rendered := make(map[string][]byte, len(d.Slides))
	for _, s := range d.Slides {
		rendered[s.Part] = s.render()
	}
	zw := zip.NewWriter(w)
	write := func(p *part) error {
		data := p.data
		if b, ok := rendered[p.name]; ok {
			data = b
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		_, err = fw.Write(data)
		return err
	}
	if ct, ok := d.index[contentTypesPart]; ok {
		if err := write(ct); err != nil {
			return fmt.Errorf("write %s: %w", ct.name, err)
		}
	}
	for _, p := range d.parts {
		if p.name == contentTypesPart {
			continue
		}
		if err := write(p); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return zw.Close()
}
