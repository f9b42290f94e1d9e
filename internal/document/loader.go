// Package document extracts page text from the PDF served by the process.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrLoad is wrapped by every failure to read the document.
var ErrLoad = errors.New("load document")

// PageRecord is the extracted text of one page.
type PageRecord struct {
	Number int    // 1-based page number
	Text   string // Plain text as returned by the PDF reader
}

// Load opens the PDF at path and extracts every page in order.
// The document is all-or-nothing: any page that fails to extract fails the load.
func Load(ctx context.Context, path string) (pages []PageRecord, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: %v", ErrLoad, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLoad, path, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("%w: %s has no pages", ErrLoad, path)
	}

	pages = make([]PageRecord, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			return nil, fmt.Errorf("%w: %s: page %d is missing", ErrLoad, path, i)
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: extract page %d: %v", ErrLoad, path, i, err)
		}

		pages = append(pages, PageRecord{Number: i, Text: text})
	}

	return pages, nil
}
