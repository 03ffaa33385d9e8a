package fulltext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText extracts plain text from an in-memory PDF, page by page.
// Pages whose text cannot be decoded are skipped; a document yielding no
// text at all is an error.
func ExtractText(data []byte) (_ string, err error) {
	// The pdf package panics on some malformed documents; treat those as
	// extraction failures instead of crashing the indexing pass.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("no text extracted from %d pages", reader.NumPage())
	}
	return out, nil
}
