package types

import (
	"crypto/md5"
	"encoding/hex"
)

// Document is a raw source file loaded for ingestion.
type Document struct {
	Source string // filename relative to the source dir
	Text   string
}

// Chunk is a fixed-size text window cut from a document.
type Chunk struct {
	Source      string
	Text        string
	Fingerprint string
}

// IndexPoint is what gets upserted into the vector index.
// ID is the chunk fingerprint, so re-ingesting identical text is a no-op.
type IndexPoint struct {
	ID     string
	Vector []float32
	Text   string
	Source string
}

// Candidate is a similarity search hit. Vector is only populated
// when the search was asked to return stored vectors.
type Candidate struct {
	Text   string
	Source string
	Vector []float32
	Score  float64
}

// Fingerprint returns the content hash used as dedup and index identity
// key. Identical text always hashes the same, regardless of source.
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
