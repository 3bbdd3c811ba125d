package deck

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Slide is one physical slide of a deck.
type Slide struct {
	// Index is the zero-based position in the deck's slide list.
	Index int
	// Part is the zip entry name of the slide XML.
	Part   string
	Shapes []*Shape

	raw  []byte
	runs []*Run
}

// Shape is a shape carrying a text body. Shapes nested in groups are listed
// in document order alongside top-level ones.
type Shape struct {
	Name       string
	Paragraphs []*Paragraph
}

// Paragraph is an <a:p> element.
type Paragraph struct {
	Runs []*Run
}

// Run is an <a:r> element and the text of its <a:t> child.
type Run struct {
	text string
	orig string

	// byte range of the character data inside <a:t>..</a:t>
	start, end int64
	// elemStart is the offset of "<a:t" when the element is self-closing
	elemStart   int64
	selfClosing bool
	editable    bool
}

// Text returns the current run text.
func (r *Run) Text() string { return r.text }

// SetText replaces the run text. Formatting of the run is untouched.
func (r *Run) SetText(s string) { r.text = s }

func (r *Run) dirty() bool { return r.editable && r.text != r.orig }

// Runs returns every run of every shape in document order.
func (s *Slide) Runs() []*Run {
	return s.runs
}

// Text joins the run texts of the slide, one paragraph per line.
func (s *Slide) Text() string {
	var sb strings.Builder
	for _, sh := range s.Shapes {
		for _, p := range sh.Paragraphs {
			for _, r := range p.Runs {
				sb.WriteString(r.text)
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func parseSlide(index int, name string, raw []byte) (*Slide, error) {
	s := &Slide{Index: index, Part: name, raw: raw}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		shape     *Shape
		inTxBody  bool
		hasTxBody bool
		para      *Paragraph
		run       *Run
		inText    bool
		text      strings.Builder
	)
	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				shape = &Shape{}
				hasTxBody = false
			case "cNvPr":
				if shape != nil && shape.Name == "" {
					for _, a := range t.Attr {
						if a.Name.Local == "name" {
							shape.Name = a.Value
						}
					}
				}
			case "txBody":
				if shape != nil {
					inTxBody = true
					hasTxBody = true
				}
			case "p":
				if inTxBody {
					para = &Paragraph{}
				}
			case "r":
				if para != nil {
					run = &Run{}
				}
			case "t":
				if run != nil && !run.editable {
					inText = true
					text.Reset()
					run.start = dec.InputOffset()
					run.editable = true
					if bytes.HasSuffix(raw[before:run.start], []byte("/>")) {
						run.selfClosing = true
						run.elemStart = before
					}
				}
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				if inText {
					inText = false
					if run.selfClosing {
						run.end = run.start
					} else {
						run.end = before
					}
					run.text = text.String()
					run.orig = run.text
				}
			case "r":
				if run != nil && para != nil {
					para.Runs = append(para.Runs, run)
					s.runs = append(s.runs, run)
				}
				run = nil
			case "p":
				if para != nil && shape != nil && inTxBody {
					shape.Paragraphs = append(shape.Paragraphs, para)
				}
				para = nil
			case "txBody":
				inTxBody = false
			case "sp":
				if shape != nil && hasTxBody {
					s.Shapes = append(s.Shapes, shape)
				}
				shape = nil
			}
		}
	}
	return s, nil
}

// render splices edited run text into the original slide bytes.
func (s *Slide) render() []byte {
	changed := false
	for _, r := range s.runs {
		if r.dirty() {
			changed = true
			break
		}
	}
	if !changed {
		return s.raw
	}
	var buf bytes.Buffer
	buf.Grow(len(s.raw))
	pos := int64(0)
	for _, r := range s.runs {
		if !r.dirty() {
			continue
		}
		var esc bytes.Buffer
		_ = xml.EscapeText(&esc, []byte(r.text))
		if r.selfClosing {
			// <a:t/> becomes <a:t>text</a:t>
			open := bytes.TrimSpace(bytes.TrimSuffix(s.raw[r.elemStart:r.start], []byte("/>")))
			qname := strings.TrimPrefix(string(open), "<")
			if i := strings.IndexAny(qname, " \t\r\n"); i >= 0 {
				qname = qname[:i]
			}
			buf.Write(s.raw[pos:r.elemStart])
			buf.Write(open)
			buf.WriteByte('>')
			buf.Write(esc.Bytes())
			buf.WriteString("</" + qname + ">")
			pos = r.start
			continue
		}
		buf.Write(s.raw[pos:r.start])
		buf.Write(esc.Bytes())
		pos = r.end
	}
	buf.Write(s.raw[pos:])
	return buf.Bytes()
}
