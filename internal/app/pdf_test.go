package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperifyio/goslides/internal/outline"
)

func TestWriteOutlinePDF(t *testing.T) {
	o, err := outline.Parse(`{"topic":"Käyttöönotto","pages":[{"title":"Aloitus","pages":[{"sub_title":"Miksi","desc":"lyhyt","content":"sisältö"}]}]}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := filepath.Join(t.TempDir(), "handout.pdf")
	if err := writeOutlinePDF(o, p); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a PDF: %q", b[:8])
	}
}
