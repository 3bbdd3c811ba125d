package deck

import (
	"strings"
	"testing"
)

func TestRender_SelfClosingTextElement(t *testing.T) {
	raw := []byte(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="A"/></p:nvSpPr><p:txBody><a:p><a:r><a:rPr/><a:t/></a:r></a:p></p:txBody></p:sp>` +
		`</p:spTree></p:cSld></p:sld>`)
	s, err := parseSlide(0, "ppt/slides/slide1.xml", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s.Runs()) != 1 || s.Runs()[0].Text() != "" {
		t.Fatalf("expected one empty run, got %+v", s.Runs())
	}
	s.Runs()[0].SetText("filled")
	out := string(s.render())
	if !strings.Contains(out, "<a:r><a:rPr/><a:t>filled</a:t></a:r>") {
		t.Fatalf("unexpected render:\n%s", out)
	}
	if _, err := parseSlide(0, "x", []byte(out)); err != nil {
		t.Fatalf("rendered slide does not parse: %v", err)
	}
}

func TestParseSlide_IgnoresFieldsAndTables(t *testing.T) {
	raw := []byte(`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>` +
		`<p:sp><p:txBody><a:p><a:fld id="{1}" type="slidenum"><a:t>{num}</a:t></a:fld><a:r><a:t>{kept}</a:t></a:r></a:p></p:txBody></p:sp>` +
		`<p:graphicFrame><a:graphic><a:graphicData><a:tbl><a:tr><a:tc><a:txBody><a:p><a:r><a:t>{cell}</a:t></a:r></a:p></a:txBody></a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame>` +
		`</p:spTree></p:cSld></p:sld>`)
	s, err := parseSlide(0, "x", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s.Runs()) != 1 || s.Runs()[0].Text() != "{kept}" {
		t.Fatalf("expected only the shape run, got %d runs", len(s.Runs()))
	}
}

func TestRender_UnchangedReturnsOriginalBytes(t *testing.T) {
	raw := []byte(`<p:sld xmlns:a="a" xmlns:p="p"><p:sp><p:txBody><a:p><a:r><a:t>x &amp; y</a:t></a:r></a:p></p:txBody></p:sp></p:sld>`)
	s, err := parseSlide(0, "x", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := s.Runs()[0].Text(); got != "x & y" {
		t.Fatalf("decoded text: %q", got)
	}
	s.Runs()[0].SetText("x & y")
	if string(s.render()) != string(raw) {
		t.Fatalf("render changed untouched bytes")
	}
}
