package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FileLedger is the dedup ledger: a fingerprint -> first source mapping
// persisted as one flat JSON file. It is loaded once at startup, mutated
// in memory by the single ingestion run and rewritten wholesale at the
// end. A crash mid-run leaves the previous file untouched.
type FileLedger struct {
	path    string
	entries map[string]string
}

// OpenLedger loads the ledger file. A missing file is not an error, the
// ledger just starts empty.
func OpenLedger(path string) (*FileLedger, error) {
	ledger := &FileLedger{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("[LEDGER] no ledger at %s, starting empty", path)
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	if err := json.Unmarshal(data, &ledger.entries); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", path, err)
	}
	log.Printf("[LEDGER] loaded %d fingerprints from %s", len(ledger.entries), path)
	return ledger, nil
}

func (l *FileLedger) Contains(fingerprint string) bool {
	_, ok := l.entries[fingerprint]
	return ok
}

// Record remembers which source first produced a fingerprint.
// Re-recording an existing fingerprint is a no-op.
func (l *FileLedger) Record(fingerprint, source string) {
	if _, ok := l.entries[fingerprint]; ok {
		return
	}
	l.entries[fingerprint] = source
}

func (l *FileLedger) Len() int {
	return len(l.entries)
}

// Persist rewrites the ledger file atomically via a temp file rename, so a
// crash during the write cannot corrupt the previous state.
func (l *FileLedger) Persist() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	log.Printf("[LEDGER] persisted %d fingerprints to %s", len(l.entries), l.path)
	return nil
}
