// Package deck turns an uploaded slide deck into ordered per-slide records.
//
// Two source formats are understood: presentations (.pptx) and paginated
// documents (.pdf). The file extension alone picks the reader; anything else is
// rejected with ErrUnsupportedFormat before a single byte is parsed.
package deck

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file extensions that have no reader.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction is returned when a document body cannot be parsed.
	ErrExtraction = errors.New("extraction failed")
)

type SourceType string

const (
	SourceTypePresentation SourceType = "pptx"
	SourceTypePaginated    SourceType = "pdf"
)

const DefaultCourseID = "unknown"

// Document is the extracted form of one upload. It is never stored.
type Document struct {
	CourseID     string     `json:"course_id"`
	LectureTitle string     `json:"lecture_title"`
	SourceFile   string     `json:"source_file"`
	SourceType   SourceType `json:"source_type"`
	Slides       []Slide    `json:"slides"`
}

// Slide is one slide or page. Index starts at 1 and has no gaps; Title is
// never empty.
type Slide struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	TextBlocks []string `json:"text_blocks"`
	Notes      string   `json:"notes"`
	Images     []string `json:"images"`
}

type Metadata struct {
	CourseID     string
	LectureTitle string
}

// DetectSourceType maps a filename to its reader.
func DetectSourceType(filename string) (SourceType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pptx":
		return SourceTypePresentation, nil
	case ".pdf":
		return SourceTypePaginated, nil
	default:
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Extract parses data according to the extension of filename.
func Extract(filename string, data []byte) ([]Slide, SourceType, error) {
	sourceType, err := DetectSourceType(filename)
	if err != nil {
		return nil, "", err
	}

	var slides []Slide
	switch sourceType {
	case SourceTypePresentation:
		slides, err = extractPresentation(data)
	case SourceTypePaginated:
		slides, err = extractPaginated(data)
	}
	if err != nil {
		return nil, "", err
	}
	return slides, sourceType, nil
}

// Load runs Extract and fills the document-level fields, defaulting the course
// to DefaultCourseID and the lecture title to the filename stem.
func Load(filename string, data []byte, meta Metadata) (*Document, error) {
	slides, sourceType, err := Extract(filename, data)
	if err != nil {
		return nil, err
	}

	courseID := strings.TrimSpace(meta.CourseID)
	if courseID == "" {
		courseID = DefaultCourseID
	}
	title := strings.TrimSpace(meta.LectureTitle)
	if title == "" {
		title = Stem(filename)
	}

	return &Document{
		CourseID:     courseID,
		LectureTitle: title,
		SourceFile:   filename,
		SourceType:   sourceType,
		Slides:       slides,
	}, nil
}

// Stem returns the base filename without its extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newSlide(index int, title string, blocks []string, notes string) Slide {
	if blocks == nil {
		blocks = []string{}
	}
	return Slide{
		Index:      index,
		Title:      title,
		TextBlocks: blocks,
		Notes:      notes,
		Images:     []string{},
	}
}

func extractionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExtraction, fmt.Sprintf(format, args...))
}
