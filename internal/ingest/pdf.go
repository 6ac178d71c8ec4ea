package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document is one uploaded source file with its extracted text.
type Document struct {
	Name string
	Text string
}

// ExtractPDF extracts the plain text of a PDF held in memory.
func ExtractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	if _, err := io.Copy(&buf, content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return buf.String(), nil
}

// MergeDocuments joins the extracted texts of several documents into one
// corpus, labeling each section with its source file name so generated
// material can refer back to it.
func MergeDocuments(docs []Document) string {
	var sb strings.Builder
	for _, d := range docs {
		sb.WriteString("\n\n=== DOCUMENT: " + d.Name + " ===\n\n")
		sb.WriteString(d.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
