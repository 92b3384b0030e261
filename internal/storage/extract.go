package storage

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MIMEPDF is the content type of PDF uploads.
const MIMEPDF = "application/pdf"

// IsPDF reports whether a file is a PDF by content type or extension.
func IsPDF(filename, contentType string) bool {
	if strings.EqualFold(strings.TrimSpace(contentType), MIMEPDF) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// ExtractText returns the plain text of a document. PDFs are parsed page by
// page; everything else is decoded as UTF-8 with invalid bytes dropped.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	if !IsPDF(filename, contentType) {
		return strings.ToValidUTF8(string(data), ""), nil
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf %s: %w", filename, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text %s: %w", filename, err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text %s: %w", filename, err)
	}
	return strings.ToValidUTF8(string(text), ""), nil
}
