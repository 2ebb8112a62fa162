// Package pdftext extracts plain text from PDF documents page by page.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// ReadFile extracts the pages of the PDF at path.
func ReadFile(fs afero.Fs, path string) ([]string, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	pages, err := ExtractBytes(content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return pages, nil
}

// ExtractBytes returns the plain text of every page in content. Pages
// without a content stream or whose text cannot be decoded are skipped.
func ExtractBytes(content []byte) (pages []string, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages = make([]string, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// Join concatenates page texts with PageSeparator.
func Join(pages []string) string {
	return strings.Join(pages, PageSeparator)
}
