package internal

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tristanchrt/local-llm/types"
)

// LoadDocuments reads every supported file directly under sourceDir.
// Unsupported and unreadable files are logged and skipped, one bad file
// must not stop the run.
func LoadDocuments(sourceDir string) ([]types.Document, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, err
	}

	var docs []types.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		path := filepath.Join(sourceDir, name)

		var text string
		switch strings.ToLower(filepath.Ext(name)) {
		case ".txt", ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("[LOADER] failed to read %s: %v", name, err)
				continue
			}
			text = string(data)
		case ".pdf":
			text, err = ExtractPDFText(path)
			if err != nil {
				log.Printf("[LOADER] failed to extract %s: %v", name, err)
				continue
			}
		default:
			log.Printf("[LOADER] skipping unsupported file: %s", name)
			continue
		}

		docs = append(docs, types.Document{Source: name, Text: text})
	}
	return docs, nil
}
