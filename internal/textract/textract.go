// Package textract flattens document sources of several formats into the
// plain text the corpus stores and the highlighter annotates.
package textract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Extractor converts one source format into plain text blocks.
type Extractor interface {
	Blocks(r io.Reader) ([]string, error)
}

var extractors = map[string]func() Extractor{
	".txt":      func() Extractor { return Text{} },
	".md":       func() Extractor { return Markdown{} },
	".markdown": func() Extractor { return Markdown{} },
	".csv":      func() Extractor { return CSV{} },
	".html":     func() Extractor { return HTML{} },
	".htm":      func() Extractor { return HTML{} },
	".pdf":      func() Extractor { return PDF{FallbackPdftotext: true} },
	".docx":     func() Extractor { return DOCX{} },
}

// SetPDFFallback toggles the pdftotext fallback for PDF sources. Call it
// before extracting, typically once at startup.
func SetPDFFallback(enabled bool) {
	extractors[".pdf"] = func() Extractor { return PDF{FallbackPdftotext: enabled} }
}

// ForFile returns the extractor for a filename's extension.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mk, ok := extractors[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
	return mk(), nil
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract returns the text of r, with blocks separated by blank lines.
func Extract(filename string, r io.Reader) (string, error) {
	ex, err := ForFile(filename)
	if err != nil {
		return "", err
	}
	blocks, err := ex.Blocks(r)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(filename), err)
	}
	return Join(blocks), nil
}

// Join trims blocks, drops empty ones and joins the rest with blank lines.
func Join(blocks []string) string {
	var buf bytes.Buffer
	for _, b := range blocks {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(b)
	}
	return buf.String()
}
