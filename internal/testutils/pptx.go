// Package testutils builds in-memory fixtures shared by package tests.
package testutils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relSlide = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relNotes = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
)

// SlideFixture describes one slide. Shapes holds raw XML for each spTree
// child in order; a nil Notes means the slide has no notes part.
type SlideFixture struct {
	Shapes []string
	Notes  *string
}

func TextShape(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Text"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&b, `<a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p>`, p)
	}
	b.WriteString(`</p:txBody></p:sp>`)
	return b.String()
}

func PictureShape() string {
	return `<p:pic><p:nvPicPr><p:cNvPr id="4" name="Picture"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr></p:pic>`
}

func GroupShape(inner string) string {
	return `<p:grpSp><p:nvGrpSpPr><p:cNvPr id="5" name="Group"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` + inner + `</p:grpSp>`
}

func EmptyShape() string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="3" name="Rect"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/></p:sp>`
}

func Notes(s string) *string { return &s }

// SimplePPTX builds a presentation where each slide is a list of texts, one
// text shape per entry.
func SimplePPTX(t testing.TB, slides ...[]string) []byte {
	t.Helper()
	fixtures := make([]SlideFixture, len(slides))
	for i, texts := range slides {
		for _, text := range texts {
			fixtures[i].Shapes = append(fixtures[i].Shapes, TextShape(text))
		}
	}
	return BuildPPTX(t, fixtures, nil)
}

// BuildPPTX builds a minimal presentation archive. order lists the 1-based
// slide file numbers in presentation order; nil means file order.
func BuildPPTX(t testing.TB, slides []SlideFixture, order []int) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	write := func(name, content string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	if order == nil {
		for i := range slides {
			order = append(order, i+1)
		}
	}

	var ids, rels strings.Builder
	for pos, n := range order {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+pos, n+1)
	}
	for i := range slides {
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, i+2, relSlide, i+1)
	}

	write("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`)
	write("ppt/presentation.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:sldIdLst>%s</p:sldIdLst></p:presentation>`, nsA, nsR, nsP, ids.String()))
	write("ppt/_rels/presentation.xml.rels", `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels.String()+`</Relationships>`)

	for i, s := range slides {
		n := i + 1
		write(fmt.Sprintf("ppt/slides/slide%d.xml", n), slideDoc("sld", s.Shapes))
		if s.Notes != nil {
			write(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId2" Type="%s" Target="../notesSlides/notesSlide%d.xml"/></Relationships>`, relNotes, n))
			write(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n), notesDoc(*s.Notes))
		}
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func slideDoc(root string, shapes []string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:%s xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>%s</p:spTree></p:cSld></p:%s>`,
		root, nsA, nsR, nsP, strings.Join(shapes, ""), root)
}

func notesDoc(text string) string {
	image := `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image"/><p:cNvSpPr/><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>`
	body := `<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp>`
	return slideDoc("notes", []string{image, body})
}
