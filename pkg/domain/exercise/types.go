// Package exercise holds the types shared across the pipeline: the raw
// per-device sample schema, the merged trackpoint, the per-exercise
// metadata record, and the exercise-type taxonomy.
package exercise

import (
	"math"
	"time"
)

// TimeLayout is the UTC ISO-8601 layout used in GPX documents and
// metadata records.
const TimeLayout = "2006-01-02T15:04:05"

// RawSample is one record from a per-device JSON sample file. Every field
// is optional; a file typically carries only the fields of its data
// category (location, heart rate, cadence). StartTime is milliseconds
// since epoch.
type RawSample struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  *float64 `json:"altitude"`
	HeartRate *float64 `json:"heart_rate"`
	Cadence   *float64 `json:"cadence"`
	StartTime *float64 `json:"start_time"`
}

// MergedPoint is the union of all RawSample fields contributed for one
// instant, keyed during merging by the rounded second. StartTime is unix
// seconds. A point only becomes a GPX trackpoint when both Latitude and
// Longitude are set.
type MergedPoint struct {
	StartTime float64
	Latitude  *float64
	Longitude *float64
	Altitude  *float64
	HeartRate *float64
	Cadence   *float64
}

// Time returns the point's instant in UTC, rounded to the same second
// the merge key uses.
func (p MergedPoint) Time() time.Time {
	return time.Unix(int64(math.Round(p.StartTime)), 0).UTC()
}

// Metadata describes one generated GPX file. It travels with the file
// (encoded into the file name) so the upload stage can name, sort and
// deduplicate activities without re-reading documents.
type Metadata struct {
	ExerciseName string `json:"exercise_name"`
	ExerciseID   string `json:"exercise_id"`
	ExerciseType string `json:"exercise_type"`
	StartTime    string `json:"start_time"`
}
