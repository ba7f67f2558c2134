package internal

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ExtractPDFText validates the PDF and returns its plain text content.
// Broken files are rejected before extraction so one corrupt upload cannot
// poison an ingestion run.
func ExtractPDFText(path string) (string, error) {
	if err := api.ValidateFile(path, api.LoadConfiguration()); err != nil {
		return "", fmt.Errorf("invalid PDF %s: %w", path, err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read text from %s: %w", path, err)
	}
	return buf.String(), nil
}
