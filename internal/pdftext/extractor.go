// Package pdftext extracts a bounded plain-text excerpt from the first page
// of a document for the content classifier.
package pdftext

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"transforma/internal/logging"
)

// rawScanLimit bounds how much of a file the fallback scanner reads.
const rawScanLimit = 8192

// minRunLength is the shortest printable-ASCII run the fallback keeps.
const minRunLength = 4

// Extractor reads first-page text. The primary path parses the PDF; files
// the parser cannot handle fall through to a raw printable-ASCII scan,
// which finds enough text on most generated invoices.
type Extractor struct {
	logger *slog.Logger
}

// New constructs an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logging.NewComponentLogger(logger, "pdftext")}
}

// ExtractFirstPage returns up to maxChars characters of first-page text, or
// an error when the file yields no text at all.
func (e *Extractor) ExtractFirstPage(path string, maxChars int) (string, error) {
	if maxChars <= 0 {
		return "", fmt.Errorf("excerpt bound must be positive, got %d", maxChars)
	}

	if text, err := e.parseFirstPage(path); err == nil && text != "" {
		return truncate(text, maxChars), nil
	} else if err != nil {
		e.logger.Debug("pdf parse failed, falling back to raw scan",
			logging.String("path", path),
			logging.Error(err))
	}

	text, err := rawScan(path, maxChars)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no extractable text in %s", path)
	}
	return text, nil
}

// parseFirstPage runs the PDF parser. The parser panics on some malformed
// inputs, so the panic is converted into an error here.
func (e *Extractor) parseFirstPage(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	if reader.NumPage() < 1 {
		return "", fmt.Errorf("pdf has no pages")
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("first page unavailable")
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page text: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// rawScan pulls printable-ASCII runs out of the file head. Crude, but
// generated invoices usually embed their field labels as plain bytes.
func rawScan(path string, maxChars int) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, rawScanLimit)
	n, err := file.Read(buf)
	if n == 0 && err != nil {
		return "", fmt.Errorf("read file head: %w", err)
	}
	buf = buf[:n]

	var text strings.Builder
	var run strings.Builder
	flush := func() {
		if run.Len() >= minRunLength {
			if text.Len() > 0 {
				text.WriteByte(' ')
			}
			text.WriteString(run.String())
		}
		run.Reset()
	}

	for _, c := range buf {
		if text.Len() >= maxChars {
			break
		}
		if c >= 32 && c < 127 {
			run.WriteByte(c)
		} else {
			flush()
		}
	}
	flush()

	return truncate(text.String(), maxChars), nil
}

// truncate cuts at a byte bound without splitting a multi-byte rune, so
// parsed PDF text stays valid UTF-8.
func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
