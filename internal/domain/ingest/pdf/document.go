package pdf

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	lpdf "github.com/ledongthuc/pdf"
)

// Cell is a run of text on a line with its horizontal extent.
type Cell struct {
	X    float64
	End  float64
	Text string
}

// Line is one visual line of a page, cells ordered left to right.
type Line struct {
	Cells []Cell
}

// Text joins the cells of a line with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// Texts returns the cell texts.
func (l Line) Texts() []string {
	out := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		out[i] = c.Text
	}
	return out
}

// Document is a paginated text source. Pages are 1-based.
type Document interface {
	NumPages() int
	PageText(page int) (string, error)
	PageLines(page int) ([]Line, error)
	Close() error
}

// Opener opens a statement file as a Document.
type Opener func(path string) (Document, error)

// Renderer rasterizes pages for OCR. Pages are 0-based, which is what
// *fitz.Document exposes.
type Renderer interface {
	NumPage() int
	ImagePNG(pageNumber int, dpi float64) ([]byte, error)
	Close() error
}

// RendererOpener opens a statement file for rasterization.
type RendererOpener func(path string) (Renderer, error)

// ============================================================================
// Native reader
// ============================================================================

type nativeDocument struct {
	file   *os.File
	reader *lpdf.Reader
}

// OpenNative opens a PDF with the pure Go reader.
func OpenNative(path string) (Document, error) {
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &nativeDocument{file: f, reader: r}, nil
}

func (d *nativeDocument) NumPages() int { return d.reader.NumPage() }

func (d *nativeDocument) Close() error { return d.file.Close() }

func (d *nativeDocument) PageText(page int) (text string, err error) {
	defer recoverPage(page, &err)

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d: no content", page)
	}
	return p.GetPlainText(nil)
}

func (d *nativeDocument) PageLines(page int) (lines []Line, err error) {
	defer recoverPage(page, &err)

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: no content", page)
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil, err
	}

	// PDF space grows upwards, so the top of the page has the largest position
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	for _, row := range rows {
		texts := make([]lpdf.Text, len(row.Content))
		copy(texts, row.Content)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		if cells := mergeGlyphs(texts); len(cells) > 0 {
			lines = append(lines, Line{Cells: cells})
		}
	}
	return lines, nil
}

// mergeGlyphs joins positioned text runs into cells. A gap wider than the
// font size starts a new cell; a smaller visible gap is a word space.
func mergeGlyphs(texts []lpdf.Text) []Cell {
	var (
		cells []Cell
		cur   *Cell
		b     strings.Builder
		prev  lpdf.Text
	)

	flush := func() {
		if cur == nil {
			return
		}
		if t := collapseSpaces(b.String()); t != "" {
			cur.Text = t
			cells = append(cells, *cur)
		}
		cur = nil
		b.Reset()
	}

	for _, t := range texts {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if cur != nil {
			gap := t.X - (prev.X + prev.W)
			switch {
			case gap > size:
				flush()
			case gap > 0.15*size:
				b.WriteByte(' ')
			}
		}
		if cur == nil {
			cur = &Cell{X: t.X}
		}
		b.WriteString(t.S)
		cur.End = t.X + t.W
		prev = t
	}
	flush()
	return cells
}

// ============================================================================
// MuPDF reader
// ============================================================================

type fitzDocument struct {
	doc *fitz.Document
}

// OpenFitz opens a PDF with MuPDF. Its layout text keeps column gaps, which
// lets the grid parser split cells on runs of spaces.
func OpenFitz(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// OpenFitzRenderer opens a PDF with MuPDF for page rendering.
func OpenFitzRenderer(path string) (Renderer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return doc, nil
}

func (d *fitzDocument) NumPages() int { return d.doc.NumPage() }

func (d *fitzDocument) Close() error { return d.doc.Close() }

func (d *fitzDocument) PageText(page int) (text string, err error) {
	defer recoverPage(page, &err)
	return d.doc.Text(page - 1)
}

func (d *fitzDocument) PageLines(page int) ([]Line, error) {
	text, err := d.PageText(page)
	if err != nil {
		return nil, err
	}
	return SplitLayoutText(text), nil
}

var cellRun = regexp.MustCompile(`\S+(?: \S+)*`)

// SplitLayoutText splits layout-preserving page text into lines of cells.
// Cells are separated by two or more spaces; positions are rune offsets.
func SplitLayoutText(text string) []Line {
	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.ReplaceAll(strings.TrimRight(raw, "\r"), "\t", "    ")
		var cells []Cell
		for _, loc := range cellRun.FindAllStringIndex(raw, -1) {
			start := float64(utf8.RuneCountInString(raw[:loc[0]]))
			cells = append(cells, Cell{
				X:    start,
				End:  start + float64(utf8.RuneCountInString(raw[loc[0]:loc[1]])),
				Text: raw[loc[0]:loc[1]],
			})
		}
		if len(cells) > 0 {
			lines = append(lines, Line{Cells: cells})
		}
	}
	return lines
}

// recoverPage converts a panic inside a page decoder into an error. Broken
// content streams make both readers panic.
func recoverPage(page int, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("page %d: panic during extraction: %v", page, r)
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
