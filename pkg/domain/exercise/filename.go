package exercise

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// NameSeparator splits a GPX file name into the exercise identifier and
// the encoded metadata suffix.
const NameSeparator = "---"

// EncodeFilename builds the file name for a generated GPX document:
// "<exercise_id>---<base64url of the metadata JSON>.gpx". The URL-safe
// alphabet keeps '/' out of file names.
func EncodeFilename(meta *Metadata) string {
	raw, _ := json.Marshal(meta)
	return meta.ExerciseID + NameSeparator + base64.RawURLEncoding.EncodeToString(raw) + ".gpx"
}

// ParseFilename recovers the metadata encoded by EncodeFilename.
func ParseFilename(path string) (*Metadata, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".gpx")
	_, encoded, found := strings.Cut(name, NameSeparator)
	if !found {
		return nil, fmt.Errorf("no metadata in file name %q", filepath.Base(path))
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode metadata from %q: %w", filepath.Base(path), err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata from %q: %w", filepath.Base(path), err)
	}
	return &meta, nil
}

// IDFromFilename returns the exercise identifier portion of a GPX file
// name: everything before the separator marker.
func IDFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".gpx")
	id, _, _ := strings.Cut(name, NameSeparator)
	return id
}
