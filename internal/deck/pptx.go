package deck

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	presentationPart = "ppt/presentation.xml"
	relTypeNotes     = "/notesSlide"
	placeholderBody  = "body"
)

// maxPartBytes caps the decompressed size of a single package part.
var maxPartBytes int64 = 64 << 20

// presentationXML is the slide list of ppt/presentation.xml in display order.
type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// slideXML covers both p:sld and p:notes; only top-level p:sp shapes are kept.
type slideXML struct {
	Shapes []shapeXML `xml:"cSld>spTree>sp"`
}

type shapeXML struct {
	NvSpPr struct {
		NvPr struct {
			Placeholder *struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *textBodyXML `xml:"txBody"`
}

type textBodyXML struct {
	Paragraphs []paragraphXML `xml:"p"`
}

type paragraphXML struct {
	Nodes []runXML `xml:",any"`
}

type runXML struct {
	XMLName xml.Name
	Text    string `xml:"t"`
}

func (s shapeXML) text() (string, bool) {
	if s.TxBody == nil {
		return "", false
	}
	lines := make([]string, 0, len(s.TxBody.Paragraphs))
	for _, p := range s.TxBody.Paragraphs {
		var b strings.Builder
		for _, n := range p.Nodes {
			switch n.XMLName.Local {
			case "r", "fld":
				b.WriteString(n.Text)
			case "br":
				b.WriteString("\n")
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n"), true
}

func (s shapeXML) placeholderType() string {
	if s.NvSpPr.NvPr.Placeholder == nil {
		return ""
	}
	return s.NvSpPr.NvPr.Placeholder.Type
}

type presentationReader struct {
	files map[string]*zip.File
}

func extractPresentation(data []byte) ([]Slide, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionError("open presentation archive: %v", err)
	}

	r := &presentationReader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	slidePaths, err := r.slidePaths()
	if err != nil {
		return nil, err
	}

	slides := make([]Slide, 0, len(slidePaths))
	for i, p := range slidePaths {
		slide, err := r.readSlide(i+1, p)
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	return slides, nil
}

// slidePaths resolves sldIdLst through the presentation relationships so slides
// come back in presentation order rather than archive order.
func (r *presentationReader) slidePaths() ([]string, error) {
	var pres presentationXML
	if err := r.decode(presentationPart, &pres); err != nil {
		return nil, err
	}

	targets, err := r.relationships(presentationPart)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			return nil, extractionError("slide relationship %q not found", id.RelID)
		}
		paths = append(paths, target.path)
	}
	return paths, nil
}

func (r *presentationReader) readSlide(index int, partName string) (Slide, error) {
	var sx slideXML
	if err := r.decode(partName, &sx); err != nil {
		return Slide{}, err
	}

	var title string
	blocks := []string{}
	for _, shape := range sx.Shapes {
		raw, ok := shape.text()
		if !ok {
			continue
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if title == "" {
			title = text
		} else {
			blocks = append(blocks, text)
		}
	}
	if title == "" {
		title = fmt.Sprintf("slide %d", index)
	}

	notes, err := r.readNotes(partName)
	if err != nil {
		return Slide{}, err
	}
	return newSlide(index, title, blocks, notes), nil
}

// readNotes returns the trimmed text of the notes body placeholder, or "" when
// the slide has no notes slide.
func (r *presentationReader) readNotes(slidePart string) (string, error) {
	rels, err := r.relationships(slidePart)
	if err != nil {
		return "", err
	}

	for _, rel := range rels {
		if !strings.HasSuffix(rel.relType, relTypeNotes) {
			continue
		}
		var notes slideXML
		if err := r.decode(rel.path, &notes); err != nil {
			return "", err
		}
		for _, shape := range notes.Shapes {
			if shape.placeholderType() != placeholderBody {
				continue
			}
			text, _ := shape.text()
			return strings.TrimSpace(text), nil
		}
		return "", nil
	}
	return "", nil
}

type relTarget struct {
	relType string
	path    string
}

// relationships reads the .rels part that belongs to partName. A missing rels
// part is not an error; the part simply has no relationships.
func (r *presentationReader) relationships(partName string) (map[string]relTarget, error) {
	dir, base := path.Split(partName)
	relsPart := path.Join(dir, "_rels", base+".rels")

	out := map[string]relTarget{}
	if _, ok := r.files[relsPart]; !ok {
		return out, nil
	}

	var rels relationshipsXML
	if err := r.decode(relsPart, &rels); err != nil {
		return nil, err
	}
	for _, rel := range rels.Relationships {
		if strings.EqualFold(rel.TargetMode, "External") {
			continue
		}
		out[rel.ID] = relTarget{relType: rel.Type, path: resolvePart(dir, rel.Target)}
	}
	return out, nil
}

func resolvePart(dir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(dir, target))
}

func (r *presentationReader) decode(partName string, v any) error {
	f, ok := r.files[partName]
	if !ok {
		return extractionError("missing part %s", partName)
	}
	rc, err := f.Open()
	if err != nil {
		return extractionError("open %s: %v", partName, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return extractionError("read %s: %v", partName, err)
	}
	if int64(len(content)) > maxPartBytes {
		return extractionError("part %s exceeds %d bytes", partName, maxPartBytes)
	}
	if err := xml.Unmarshal(content, v); err != nil {
		return extractionError("parse %s: %v", partName, err)
	}
	return nil
}
