package deck

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// maxTitleLines is the longest first block still treated as a page title.
	maxTitleLines = 3

	defaultFontSize = 10.0
	// blockGapFactor is the baseline distance, in line heights, that starts a
	// new block.
	blockGapFactor = 1.5
	// fontChangeRatio starts a new block when neighbouring lines differ in size
	// by more than this fraction.
	fontChangeRatio = 0.2
	// wordGapFactor is the horizontal gap, in font sizes, that implies a space.
	wordGapFactor = 0.2
	// columnGapFactor is the horizontal gap, in font sizes, that separates two
	// runs on the same baseline into different columns.
	columnGapFactor = 2.5
)

func extractPaginated(data []byte) (slides []Slide, err error) {
	// The pdf package panics on many malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			slides = nil
			err = extractionError("pdf reader: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionError("open pdf: %v", err)
	}

	numPages := reader.NumPage()
	slides = make([]Slide, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		var blocks []string
		// A page without a content stream is blank.
		if !page.V.IsNull() && !page.V.Key("Contents").IsNull() {
			blocks = layoutBlocks(page.Content().Text)
		}
		slides = append(slides, paginatedSlide(i, blocks))
	}
	return slides, nil
}

// paginatedSlide applies the page title rule: a short first block is the
// title, otherwise the page gets a synthesized title and keeps every block.
func paginatedSlide(index int, rawBlocks []string) Slide {
	blocks := make([]string, 0, len(rawBlocks))
	for _, b := range rawBlocks {
		if text := strings.TrimSpace(b); text != "" {
			blocks = append(blocks, text)
		}
	}

	placeholder := fmt.Sprintf("Page %d", index)
	if len(blocks) == 0 {
		return newSlide(index, placeholder, nil, "")
	}
	if lineCount(blocks[0]) <= maxTitleLines {
		return newSlide(index, blocks[0], blocks[1:], "")
	}
	return newSlide(index, placeholder, blocks, "")
}

func lineCount(s string) int {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return len(strings.Split(s, "\n"))
}

type textLine struct {
	y      float64
	size   float64
	x0, x1 float64
	runs   []pdf.Text
	text   string
}

func (l *textLine) add(r pdf.Text, size float64) {
	l.runs = append(l.runs, r)
	l.size = math.Max(l.size, size)
	l.x0 = math.Min(l.x0, r.X)
	l.x1 = math.Max(l.x1, r.X+r.W)
}

// distance is the horizontal gap between the line and r, zero when they
// overlap.
func (l *textLine) distance(r pdf.Text) float64 {
	return math.Max(0, math.Max(r.X-l.x1, l.x0-(r.X+r.W)))
}

type textBlock struct {
	x0, x1 float64
	lines  []*textLine
}

func (b *textBlock) overlaps(l *textLine) bool {
	return l.x0 <= b.x1 && b.x0 <= l.x1
}

func (b *textBlock) add(l *textLine) {
	b.lines = append(b.lines, l)
	b.x0 = math.Min(b.x0, l.x0)
	b.x1 = math.Max(b.x1, l.x1)
}

// layoutBlocks rebuilds reading order from positioned text runs. Runs on one
// baseline form a line unless a column gap separates them; lines join the
// block above them in the same column unless a vertical gap or font size
// change intervenes. Blocks come out ordered by their top line, left to right
// on ties. PDF y grows upwards, so higher y comes first.
func layoutBlocks(runs []pdf.Text) []string {
	sorted := make([]pdf.Text, 0, len(runs))
	for _, r := range runs {
		if r.S != "" {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []*textLine
	for _, r := range sorted {
		size := fontSize(r)
		var target *textLine
		for i := len(lines) - 1; i >= 0; i-- {
			l := lines[i]
			height := math.Max(l.size, size)
			if l.y-r.Y > height*0.5 {
				break
			}
			if l.distance(r) <= height*columnGapFactor {
				target = l
				break
			}
		}
		if target == nil {
			target = &textLine{y: r.Y, size: size, x0: r.X, x1: r.X + r.W}
			lines = append(lines, target)
		}
		target.add(r, size)
	}

	var blocks []*textBlock
	for _, line := range lines {
		line.text = joinRuns(line.runs)
		if line.text == "" {
			continue
		}
		var target *textBlock
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]
			if !b.overlaps(line) {
				continue
			}
			if !startsBlock(b.lines[len(b.lines)-1], line) {
				target = b
			}
			break
		}
		if target == nil {
			target = &textBlock{x0: line.x0, x1: line.x1}
			blocks = append(blocks, target)
		}
		target.add(line)
	}

	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts := make([]string, len(b.lines))
		for i, l := range b.lines {
			texts[i] = l.text
		}
		out = append(out, strings.Join(texts, "\n"))
	}
	return out
}

func startsBlock(prev, line *textLine) bool {
	height := math.Max(prev.size, line.size)
	if prev.y-line.y > height*blockGapFactor {
		return true
	}
	return math.Abs(prev.size-line.size) > height*fontChangeRatio
}

func joinRuns(runs []pdf.Text) string {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			prev := runs[i-1]
			gap := r.X - (prev.X + prev.W)
			if gap > fontSize(r)*wordGapFactor &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(r.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.S)
	}
	return strings.TrimSpace(b.String())
}

func fontSize(r pdf.Text) float64 {
	if r.FontSize <= 0 {
		return defaultFontSize
	}
	return r.FontSize
}
