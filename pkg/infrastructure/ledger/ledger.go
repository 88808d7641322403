// Package ledger tracks which exercises have already been uploaded. The
// backing store is an append-only file with one exercise identifier per
// line; identifiers are never removed or rewritten.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
)

const fileName = "uploaded.txt"

// Ledger is the durable set of uploaded exercise identifiers. Single
// writer; uploads are strictly sequential.
type Ledger struct {
	path string
	ids  map[string]struct{}
}

// Open loads the ledger under dataPath, creating an empty file on first
// access.
func Open(dataPath string) (*Ledger, error) {
	path := filepath.Join(dataPath, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening upload ledger: %w", err)
	}
	defer f.Close()

	ids := map[string]struct{}{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading upload ledger: %w", err)
	}
	return &Ledger{path: path, ids: ids}, nil
}

// IsUploaded reports whether an exercise identifier has been recorded.
func (l *Ledger) IsUploaded(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// RecordUploaded appends an identifier to the ledger. Recording an
// already-present identifier is a no-op.
func (l *Ledger) RecordUploaded(id string) error {
	if l.IsUploaded(id) {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening upload ledger for append: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("appending to upload ledger: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

// FilterNew keeps only the GPX files whose exercise identifier - the file
// name up to the separator marker - is not yet recorded. Types left with
// no files are dropped.
func (l *Ledger) FilterNew(filesByType map[string][]string) map[string][]string {
	fresh := map[string][]string{}
	for exerciseType, files := range filesByType {
		for _, path := range files {
			if !l.IsUploaded(exercise.IDFromFilename(path)) {
				fresh[exerciseType] = append(fresh[exerciseType], path)
			}
		}
	}
	return fresh
}
