package pdfcheck

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Check verifies the uploaded bytes parse as a PDF and returns the page
// count. Rejecting garbage locally keeps a doomed upload from ever reaching
// the provider.
func Check(data []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("not a readable pdf: %w", err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}
