// Package pdftext extracts plain text from PDF files, page by page, on top
// of pdfcpu's content stream extraction.
package pdftext

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Extractor implements document.PageTextExtractor with pdfcpu.
type Extractor struct{}

// New returns a pdfcpu-backed Extractor.
func New() *Extractor {
	return &Extractor{}
}

// PagesToText reads every page's content stream, decodes its text-showing
// operators, and joins the non-empty pages with a blank line. An empty
// result means the PDF carries no extractable text.
func (e *Extractor) PagesToText(path string) (string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		reader, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return "", fmt.Errorf("extract page %d content: %w", pageNr, err)
		}
		if reader == nil {
			continue
		}
		raw, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("read page %d content: %w", pageNr, err)
		}
		if text := DecodeTextOperators(string(raw)); text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// DecodeTextOperators pulls the string operands of text-showing operators
// (Tj, ', ", and TJ arrays) out of a decoded content stream. Literal string
// syntax (escapes, balanced parentheses) is honored; hex strings and glyph
// programs using custom encodings are skipped.
func DecodeTextOperators(content string) string {
	var parts []string
	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '(' {
			continue
		}
		literal, next, ok := readLiteral(runes, i)
		if !ok {
			break
		}
		if op := peekOperator(runes, next); op == "Tj" || op == "TJ" || op == "'" || op == "\"" || op == "]" {
			if trimmed := strings.TrimSpace(literal); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		i = next - 1
	}
	return strings.Join(parts, " ")
}

// readLiteral parses a PDF literal string starting at runes[start] == '('.
// It returns the unescaped value and the index just past the closing paren.
func readLiteral(runes []rune, start int) (string, int, bool) {
	var sb strings.Builder
	depth := 0
	for i := start; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\\':
			if i+1 < len(runes) {
				i++
				switch runes[i] {
				case 'n':
					sb.WriteRune('\n')
				case 't':
					sb.WriteRune('\t')
				case 'r', 'f', 'b':
					sb.WriteRune(' ')
				default:
					sb.WriteRune(runes[i])
				}
			}
		case '(':
			depth++
			if depth > 1 {
				sb.WriteRune(r)
			}
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i + 1, true
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return "", len(runes), false
}

// peekOperator skips whitespace, numbers and array punctuation after a
// string operand and reports the operator that consumes it. Inside TJ
// arrays the closing bracket is reported so array elements count as shown
// text.
func peekOperator(runes []rune, from int) string {
	i := from
	for i < len(runes) {
		r := runes[i]
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' ||
			(r >= '0' && r <= '9') || r == '-' || r == '.' {
			i++
			continue
		}
		break
	}
	if i >= len(runes) {
		return ""
	}
	switch runes[i] {
	case ']', '\'', '"', '(':
		if runes[i] == '(' {
			// Another array element follows; treat as shown text.
			return "]"
		}
		return string(runes[i])
	}
	end := i
	for end < len(runes) && end-i < 2 &&
		((runes[end] >= 'A' && runes[end] <= 'Z') || (runes[end] >= 'a' && runes[end] <= 'z') || runes[end] == '*') {
		end++
	}
	return string(runes[i:end])
}
