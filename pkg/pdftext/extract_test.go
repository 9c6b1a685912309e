package pdftext

import "testing"

func TestExtractTextRejectsGarbage(t *testing.T) {
	if _, err := ExtractText([]byte("this is not a pdf")); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}

func TestExtractTextRejectsEmptyInput(t *testing.T) {
	if _, err := ExtractText(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
