package testutils

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// PDFText is one line of text drawn in Helvetica at (X, Y) with font size
// Size. PDF y grows upwards from the bottom of the page.
type PDFText struct {
	X, Y, Size float64
	Text       string
}

// BuildPDF writes a minimal uncompressed PDF with one page per entry. A page
// with no texts gets no content stream.
func BuildPDF(t testing.TB, pages ...[]PDFText) []byte {
	t.Helper()

	// Objects 1-3 are the catalog, page tree and font; each page then takes
	// one object plus one for its content stream when it has text.
	var objects []string
	pageRefs := make([]string, len(pages))
	next := 4
	for i, texts := range pages {
		pageRefs[i] = fmt.Sprintf("%d 0 R", next)
		next++
		if len(texts) > 0 {
			next++
		}
	}

	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(pageRefs, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding"+
			" /FirstChar 32 /LastChar 126 /Widths ["+widths+"] >>",
	)

	for _, texts := range pages {
		page := "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >>"
		if len(texts) == 0 {
			objects = append(objects, page+" >>")
			continue
		}
		objects = append(objects, fmt.Sprintf("%s /Contents %d 0 R >>", page, len(objects)+2))

		var content strings.Builder
		for _, tx := range texts {
			fmt.Fprintf(&content, "BT /F1 %g Tf %g %g Td (%s) Tj ET\n", tx.Size, tx.X, tx.Y, escapePDF(tx.Text))
		}
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escapePDF(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
