// Package pdftext extracts plain text from text-native PDF files without
// going through the OCR service.
package pdftext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// scannedThreshold is the characters-per-page count below which a PDF is
// considered a scanned image with no usable text layer.
const scannedThreshold = 50

// Extract returns the plain text of the PDF at path. The pdf library panics
// on some malformed files, so the call is wrapped in recover and any panic is
// reported as an error.
func Extract(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction panicked: %v", r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract plain text: %w", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}

	return string(raw), nil
}

// IsScanned reports whether the PDF at path looks like a scanned image, in
// which case the OCR route for scanned documents must be used instead.
func IsScanned(path string) (bool, error) {
	text, err := Extract(path)
	if err != nil {
		return false, err
	}

	pages, err := countPages(path)
	if err != nil || pages < 1 {
		pages = 1
	}

	return len(strings.TrimSpace(text))/pages < scannedThreshold, nil
}

func countPages(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf page count panicked: %v", r)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return 0, err
	}

	return reader.NumPage(), nil
}
