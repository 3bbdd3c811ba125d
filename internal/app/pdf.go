package app

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/goslides/internal/outline"
)

// writeOutlinePDF renders the outline as a speaker handout: one heading per
// section, each sub-page with its description and content. Layout is
// deliberately plain.
func writeOutlinePDF(o outline.Outline, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(o.Topic, true)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 9, tr(o.Topic), "", "L", false)
	pdf.Ln(4)

	for _, s := range o.Sections {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("%d. %s", s.OrderNo, s.Title)), "", "L", false)
		for _, sub := range s.Subsections {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d.%d %s", s.OrderNo, sub.OrderNo, sub.SubTitle)), "", "L", false)
			if d := strings.TrimSpace(sub.Desc); d != "" {
				pdf.SetFont("Helvetica", "I", 11)
				pdf.MultiCell(0, 5, tr(d), "", "L", false)
			}
			if c := strings.TrimSpace(sub.Content); c != "" {
				pdf.SetFont("Helvetica", "", 11)
				pdf.MultiCell(0, 5, tr(c), "", "L", false)
			}
			pdf.Ln(2)
		}
		pdf.Ln(4)
	}
	return pdf.OutputFileAndClose(outPath)
}
