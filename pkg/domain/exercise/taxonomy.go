package exercise

import "strings"

// UnknownPrefix marks exercise types whose Samsung code has no canonical
// mapping. Unknown exercises show up in the manifest but are never
// exported.
const UnknownPrefix = "unknown-"

// samsungExerciseTypes maps Samsung Health exercise-type codes to the
// canonical activity names used for folder layout and Strava uploads.
var samsungExerciseTypes = map[string]string{
	"1001":  "walking",
	"1002":  "running",
	"11007": "cycling",
	"13001": "hiking",
	"14001": "swimming",
	"15005": "elliptical",
	"15006": "rowing",
}

// CanonicalType maps a raw Samsung exercise-type code to its canonical
// name, or to "unknown-<raw>" when the code is unrecognized.
func CanonicalType(raw string) string {
	if name, ok := samsungExerciseTypes[raw]; ok {
		return name
	}
	return UnknownPrefix + raw
}

// IsUnknownType reports whether a canonical type came from an unmapped
// Samsung code.
func IsUnknownType(canonical string) bool {
	return strings.HasPrefix(canonical, UnknownPrefix)
}
