// Package manifest builds the exercise manifest from the Samsung Health
// export CSV: a mapping from canonical exercise type to the set of
// exercise identifiers that reference recorded location data.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
	"github.com/northcott-j/strava-nator/pkg/errs"
)

const (
	// The exercise CSV is named after the vendor package; the pacesetter
	// export matches the marker too and must be excluded.
	csvMarker  = ".exercise."
	csvExclude = "pacesetter"

	headerLocationData = "com.samsung.health.exercise.location_data"
	headerExerciseType = "com.samsung.health.exercise.exercise_type"
)

// IDSet is a set of exercise identifiers.
type IDSet map[string]struct{}

// SortedIDs returns the identifiers in ascending order.
func (s IDSet) SortedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Manifest maps canonical exercise type to the identifiers of exercises
// that have location data referenced. Built once per run; not mutated
// afterwards.
type Manifest map[string]IDSet

// SortedTypes returns the canonical types in ascending order.
func (m Manifest) SortedTypes() []string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build locates the exercise CSV under dataPath and parses it into a
// Manifest. With skipUnknown set, exercises of unrecognized type are
// excluded.
func Build(dataPath string, skipUnknown bool, logger *slog.Logger) (Manifest, error) {
	csvPath, err := findExerciseCSV(dataPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("Parsing exercise CSV", "path", csvPath)

	m, err := parseCSV(csvPath)
	if err != nil {
		return nil, err
	}

	if skipUnknown {
		for t := range m {
			if exercise.IsUnknownType(t) {
				delete(m, t)
			}
		}
	}
	return m, nil
}

// findExerciseCSV picks the CSV enumerating all exercises out of the
// extracted export.
func findExerciseCSV(dataPath string) (string, error) {
	paths, err := filepath.Glob(filepath.Join(dataPath, "*.csv"))
	if err != nil {
		return "", fmt.Errorf("globbing for exercise csv: %w", err)
	}
	for _, p := range paths {
		if strings.Contains(p, csvMarker) && !strings.Contains(p, csvExclude) {
			return p, nil
		}
	}
	return "", errs.NewConfiguration("cannot locate file with all exercise info in %s", dataPath)
}

func parseCSV(csvPath string) (Manifest, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("opening exercise csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	m := Manifest{}
	var headers map[string]int
	skippedMetadata := false

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading exercise csv: %w", err)
		}

		// The SHealth CSV has a vendor metadata first row.
		if !skippedMetadata {
			skippedMetadata = true
			continue
		}
		if headers == nil {
			headers = make(map[string]int, len(row))
			for i, h := range row {
				headers[strings.ToLower(h)] = i
			}
			continue
		}

		locationData := field(row, headers, headerLocationData)
		exerciseType := field(row, headers, headerExerciseType)
		if locationData == "" || exerciseType == "" {
			continue
		}

		id, _, _ := strings.Cut(locationData, ".")
		canonical := exercise.CanonicalType(exerciseType)
		if m[canonical] == nil {
			m[canonical] = IDSet{}
		}
		m[canonical][id] = struct{}{}
	}

	return m, nil
}

func field(row []string, headers map[string]int, name string) string {
	i, ok := headers[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
