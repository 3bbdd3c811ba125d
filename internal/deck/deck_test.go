package deck_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/goslides/internal/deck"
	"github.com/hyperifyio/goslides/internal/deck/decktest"
)

func TestOpen_WalksShapesParagraphsRuns(t *testing.T) {
	path := decktest.Make(t,
		decktest.Slide{Shapes: []decktest.Shape{
			{Name: "Title 1", Paragraphs: [][]string{{"{title}"}}},
			{Name: "Body", Paragraphs: [][]string{{"{x} and ", "{y}"}, {"plain"}}},
		}},
		decktest.Slide{Grouped: []decktest.Shape{decktest.Texts("Inner", "{grouped}")}},
	)
	d, err := deck.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(d.Slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(d.Slides))
	}
	s := d.Slides[0]
	if len(s.Shapes) != 2 || s.Shapes[0].Name != "Title 1" {
		t.Fatalf("unexpected shapes: %+v", s.Shapes)
	}
	body := s.Shapes[1]
	if len(body.Paragraphs) != 2 || len(body.Paragraphs[0].Runs) != 2 {
		t.Fatalf("unexpected paragraphs: %+v", body.Paragraphs)
	}
	if got := body.Paragraphs[0].Runs[0].Text(); got != "{x} and " {
		t.Fatalf("run text: got %q", got)
	}
	if got := len(s.Runs()); got != 4 {
		t.Fatalf("expected 4 runs, got %d", got)
	}
	if got := d.Slides[1].Shapes; len(got) != 1 || got[0].Paragraphs[0].Runs[0].Text() != "{grouped}" {
		t.Fatalf("grouped shape not found: %+v", got)
	}
}

func TestSave_SplicesOnlyEditedRuns(t *testing.T) {
	path := decktest.Make(t, decktest.Slide{Shapes: []decktest.Shape{
		decktest.Texts("A", "{a}", "keep me"),
	}})
	d, err := deck.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := d.Part("ppt/slides/slide1.xml")
	d.Slides[0].Runs()[0].SetText("R&D <1>")
	after, _ := d.Part("ppt/slides/slide1.xml")
	if !bytes.Contains(after, []byte("<a:t>R&amp;D &lt;1&gt;</a:t>")) {
		t.Fatalf("expected escaped replacement, got:\n%s", after)
	}
	if !bytes.Contains(after, []byte("<a:t>keep me</a:t>")) {
		t.Fatalf("untouched run changed:\n%s", after)
	}
	if len(after)-len(before) != len("R&amp;D &lt;1&gt;")-len("{a}") {
		t.Fatalf("unexpected size delta: before=%d after=%d", len(before), len(after))
	}

	out := filepath.Join(t.TempDir(), "out.pptx")
	if err := d.Save(out); err != nil {
		t.Fatalf("save: %v", err)
	}
	re, err := deck.Open(out)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := re.Slides[0].Runs()[0].Text(); got != "R&D <1>" {
		t.Fatalf("reopened text: got %q", got)
	}
	if names := re.PartNames(); names[0] != "[Content_Types].xml" {
		t.Fatalf("content types must be first, got %v", names)
	}
}

func TestOpen_RejectsNonPresentation(t *testing.T) {
	if _, err := deck.Read(bytes.NewReader([]byte("nope")), 4); err == nil {
		t.Fatalf("expected error for non-zip input")
	}
}

func TestDuplicate_OrdersAndRepeatsInstances(t *testing.T) {
	path := decktest.Make(t,
		decktest.Slide{Shapes: []decktest.Shape{decktest.Texts("S", "zero")}, Notes: "speaker notes"},
		decktest.Slide{Shapes: []decktest.Shape{decktest.Texts("S", "one")}},
		decktest.Slide{Shapes: []decktest.Shape{decktest.Texts("S", "two")}},
	)
	out := filepath.Join(t.TempDir(), "dup.pptx")
	if err := (deck.Duplicator{}).Duplicate(context.Background(), path, out, []int{2, 0, 2, 1}); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	d, err := deck.Open(out)
	if err != nil {
		t.Fatalf("open duplicate: %v", err)
	}
	want := []string{"two", "zero", "two", "one"}
	if len(d.Slides) != len(want) {
		t.Fatalf("expected %d slides, got %d", len(want), len(d.Slides))
	}
	for i, w := range want {
		if got := strings.TrimSpace(d.Slides[i].Text()); got != w {
			t.Fatalf("slide %d: got %q want %q", i, got, w)
		}
	}
	ct, _ := d.Part("[Content_Types].xml")
	if !bytes.Contains(ct, []byte(`/ppt/slides/slide4.xml`)) || bytes.Contains(ct, []byte("notesSlide")) {
		t.Fatalf("content types not rewritten:\n%s", ct)
	}
	rels, ok := d.Part("ppt/slides/_rels/slide2.xml.rels")
	if !ok || bytes.Contains(rels, []byte("notesSlide")) || !bytes.Contains(rels, []byte("slideLayout1.xml")) {
		t.Fatalf("slide rels: ok=%v\n%s", ok, rels)
	}
	for _, n := range d.PartNames() {
		if strings.HasPrefix(n, "ppt/notesSlides/") {
			t.Fatalf("notes part %s should be dropped", n)
		}
	}
	pres, _ := d.Part("ppt/presentation.xml")
	if !bytes.Contains(pres, []byte("<p:sldMasterIdLst>")) || bytes.Count(pres, []byte("<p:sldId ")) != 4 {
		t.Fatalf("presentation not rewritten:\n%s", pres)
	}
}

func TestDuplicate_RejectsBadIndices(t *testing.T) {
	path := decktest.Make(t, decktest.Slide{Shapes: []decktest.Shape{decktest.Texts("S", "only")}})
	d, err := deck.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := d.Duplicate(nil); err == nil {
		t.Fatalf("expected error for empty indices")
	}
	if _, err := d.Duplicate([]int{0, 1}); err == nil {
		t.Fatalf("expected error for out-of-range index")
	}
}
