package pdftext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractText returns the plain text of a PDF document held in memory.
// Pages that fail to decode are skipped; the document failing to open at
// all is an error. The returned text may be empty for scanned PDFs with
// no text layer — callers decide what an empty result means.
func ExtractText(contents []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(contents), int64(len(contents)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var sb bytes.Buffer
	totalPages := reader.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
