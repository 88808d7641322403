package exercise

import (
	"strings"
	"testing"
)

func TestFilenameRoundTrip(t *testing.T) {
	meta := &Metadata{
		ExerciseName: "2019-07-09 Running (Strava-nator)",
		ExerciseID:   "abc123",
		ExerciseType: "running",
		StartTime:    "2019-07-09T12:30:00",
	}

	name := EncodeFilename(meta)
	if !strings.HasPrefix(name, "abc123---") {
		t.Fatalf("unexpected file name prefix: %s", name)
	}
	if !strings.HasSuffix(name, ".gpx") {
		t.Fatalf("missing .gpx suffix: %s", name)
	}
	if strings.ContainsAny(strings.TrimSuffix(name, ".gpx"), "/+=") {
		t.Errorf("file name contains unsafe characters: %s", name)
	}

	parsed, err := ParseFilename("/some/dir/" + name)
	if err != nil {
		t.Fatalf("ParseFilename: %v", err)
	}
	if *parsed != *meta {
		t.Errorf("round trip mismatch: got %+v want %+v", parsed, meta)
	}

	if got := IDFromFilename(name); got != "abc123" {
		t.Errorf("IDFromFilename = %q, want abc123", got)
	}
}

func TestParseFilename_NoMetadata(t *testing.T) {
	if _, err := ParseFilename("plain.gpx"); err == nil {
		t.Error("expected an error for a file name without metadata")
	}
}

func TestCanonicalType(t *testing.T) {
	if got := CanonicalType("1002"); got != "running" {
		t.Errorf("CanonicalType(1002) = %q", got)
	}
	if got := CanonicalType("9999"); got != "unknown-9999" {
		t.Errorf("CanonicalType(9999) = %q", got)
	}
	if !IsUnknownType("unknown-9999") {
		t.Error("expected unknown-9999 to be an unknown type")
	}
	if IsUnknownType("running") {
		t.Error("running misclassified as unknown")
	}
}
