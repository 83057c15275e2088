package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// A4 geometry in points, with a uniform margin.
const (
	pageWidth  = 595.0
	pageHeight = 842.0
	margin     = 50.0

	bodyFontSize  = 12
	titleFontSize = 16
	lineHeight    = 14.0
	titleGap      = 24.0
	paragraphGap  = 8.0

	// Conservative character budget per line for 12pt Helvetica.
	lineRunes = 88
)

// PDFWriter renders text into a paginated PDF via pdfcpu's JSON page
// description format.
type PDFWriter struct{}

// NewPDFWriter returns a pdfcpu-backed DocumentWriter.
func NewPDFWriter() *PDFWriter {
	return &PDFWriter{}
}

type pdfSpec struct {
	Paper string             `json:"paper"`
	Pages map[string]pdfPage `json:"pages"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// WriteDocument lays out a title block followed by one paragraph per
// segment and writes the resulting PDF to path.
func (w *PDFWriter) WriteDocument(path string, meta Metadata, segments []string) error {
	spec := layout(meta, segments)

	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal page description: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	if err := api.Create(nil, bytes.NewReader(data), f, nil); err != nil {
		_ = f.Close()
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf file: %w", err)
	}
	return nil
}

// layout produces the paginated page description: title block first, then
// wrapped paragraphs flowing top to bottom across as many pages as needed.
func layout(meta Metadata, segments []string) pdfSpec {
	pages := map[string]pdfPage{}
	pageNr := 1
	y := pageHeight - margin
	var texts []pdfText

	flushPage := func() {
		if len(texts) > 0 {
			pages[fmt.Sprintf("%d", pageNr)] = pdfPage{Content: pdfContent{Text: texts}}
		}
		pageNr++
		texts = nil
		y = pageHeight - margin
	}

	place := func(line string, size int) {
		if y < margin+lineHeight {
			flushPage()
		}
		texts = append(texts, pdfText{
			Value: line,
			Pos:   [2]float64{margin, y},
			Font:  pdfFont{Name: "Helvetica", Size: size},
		})
		y -= lineHeight
	}

	place(meta.Title, titleFontSize)
	y -= titleGap - lineHeight
	place("URL: "+meta.SourceURL, bodyFontSize)
	place("Project: "+meta.ProjectID, bodyFontSize)
	place("Extracted: "+meta.ExtractedAt.Format("2006-01-02 15:04:05"), bodyFontSize)
	y -= titleGap

	for _, segment := range segments {
		for _, line := range wrap(segment, lineRunes) {
			place(line, bodyFontSize)
		}
		y -= paragraphGap
	}

	if len(texts) > 0 {
		pages[fmt.Sprintf("%d", pageNr)] = pdfPage{Content: pdfContent{Text: texts}}
	}
	return pdfSpec{Paper: "A4", Pages: pages}
}

// wrap splits text into lines of at most limit runes, breaking on words.
// A single word longer than the limit is hard-split.
func wrap(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	var current strings.Builder
	for _, word := range words {
		for len([]rune(word)) > limit {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
			runes := []rune(word)
			lines = append(lines, string(runes[:limit]))
			word = string(runes[limit:])
		}
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case len([]rune(current.String()))+1+len([]rune(word)) <= limit:
			current.WriteString(" ")
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
