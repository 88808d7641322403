// Package samples merges the per-device JSON sample files of one exercise
// into a single time-ordered sequence of trackpoints.
package samples

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
	"github.com/northcott-j/strava-nator/pkg/errs"
)

// Merge loads every sample file for one exercise and merges same-instant
// partial records into unified points. Records are keyed by their
// timestamp rounded to the nearest second; later files overwrite earlier
// ones field by field, and absent fields never erase values already set.
//
// The returned slice is sorted ascending by timestamp. It is nil when no
// contributing file carried a latitude or longitude field anywhere - the
// signal that the exercise has nothing to export.
//
// A file that cannot be read or parsed only loses its own contribution:
// the failure is logged and merging continues with the other files.
func Merge(files []string, logger *slog.Logger) []exercise.MergedPoint {
	merged := map[int64]*exercise.MergedPoint{}
	foundLocationData := false

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable sample file", "error", &errs.DataError{Path: path, Err: err})
			continue
		}

		var records []exercise.RawSample
		if err := json.Unmarshal(raw, &records); err != nil {
			// Some sample files hold a single object or other non-array
			// JSON; those carry no per-instant records.
			logger.Debug("Skipping non-array sample file", "path", path)
			continue
		}

		for _, r := range records {
			if r.Latitude != nil || r.Longitude != nil {
				foundLocationData = true
			}
			if r.StartTime == nil {
				continue
			}

			seconds := *r.StartTime / 1000
			// Halves round away from zero, so 2500ms keys to second 3.
			key := int64(math.Round(seconds))
			p := merged[key]
			if p == nil {
				p = &exercise.MergedPoint{}
				merged[key] = p
			}
			p.StartTime = seconds
			if r.Latitude != nil {
				p.Latitude = r.Latitude
			}
			if r.Longitude != nil {
				p.Longitude = r.Longitude
			}
			if r.Altitude != nil {
				p.Altitude = r.Altitude
			}
			if r.HeartRate != nil {
				p.HeartRate = r.HeartRate
			}
			if r.Cadence != nil {
				p.Cadence = r.Cadence
			}
		}
	}

	if !foundLocationData {
		return nil
	}

	points := make([]exercise.MergedPoint, 0, len(merged))
	for _, p := range merged {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].StartTime < points[j].StartTime
	})
	return points
}

// HasLocationData reports whether any record in the given sample file
// carries a latitude or longitude field. Used by the investigate command.
func HasLocationData(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, &errs.DataError{Path: path, Err: err}
	}
	var records []exercise.RawSample
	if err := json.Unmarshal(raw, &records); err != nil {
		return false, &errs.DataError{Path: path, Err: err}
	}
	for _, r := range records {
		if r.Latitude != nil || r.Longitude != nil {
			return true, nil
		}
	}
	return false, nil
}
