// Package gpx turns a merged trackpoint sequence into a GPX 1.1 document.
// Output is byte-reproducible for identical input so generated files can
// be compared against golden copies.
package gpx

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
)

// NameSuffix tags every generated activity name so uploads are easy to
// recognize on Strava.
const NameSuffix = "(Strava-nator)"

const header = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<gpx creator="StravaGPX" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
	`xsi:schemaLocation="http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd ` +
	`http://www.garmin.com/xmlschemas/GpxExtensions/v3 http://www.garmin.com/xmlschemas/GpxExtensionsv3.xsd ` +
	`http://www.garmin.com/xmlschemas/TrackPointExtension/v1 http://www.garmin.com/xmlschemas/TrackPointExtensionv1.xsd" ` +
	`version="1.1" xmlns="http://www.topografix.com/GPX/1/1" ` +
	`xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v1" ` +
	`xmlns:gpxx="http://www.garmin.com/xmlschemas/GpxExtensions/v3">`

var titleCaser = cases.Title(language.English)

// Encode builds a GPX document for one exercise. Points lacking either
// latitude or longitude are dropped; when no point qualifies there is no
// document and ok is false, even though the exercise had location data
// somewhere. The points slice must be non-empty and time-ordered.
func Encode(exerciseType, exerciseID string, points []exercise.MergedPoint, logger *slog.Logger) (meta *exercise.Metadata, doc string, ok bool) {
	start := points[0].Time()
	name := fmt.Sprintf("%s %s %s", start.Format("2006-01-02"), titleCaser.String(exerciseType), NameSuffix)

	var body []string
	for _, p := range points {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		body = append(body, fmt.Sprintf(`<trkpt lat="%s" lon="%s">`, coord(*p.Latitude), coord(*p.Longitude)))
		body = append(body, fmt.Sprintf("<time>%s</time>", p.Time().Format(exercise.TimeLayout)))
		if p.Altitude != nil {
			body = append(body, fmt.Sprintf("<ele>%s</ele>", num(*p.Altitude)))
		}
		if p.Cadence != nil {
			body = append(body, fmt.Sprintf("<extensions><cadence>%s</cadence></extensions>", num(*p.Cadence)))
		}
		if p.HeartRate != nil {
			body = append(body, fmt.Sprintf(
				"<extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>%s</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>",
				num(*p.HeartRate)))
		}
		body = append(body, "</trkpt>")
	}
	if len(body) == 0 {
		return nil, "", false
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("<metadata><time>")
	sb.WriteString(start.Format(exercise.TimeLayout))
	sb.WriteString("</time></metadata>")
	sb.WriteString("<trk><name>")
	sb.WriteString(name)
	sb.WriteString("</name><type>1</type><trkseg>")
	sb.WriteString(strings.Join(body, "\n"))
	sb.WriteString("</trkseg></trk></gpx>")

	logger.Info("Finished building exercise", "exercise_name", name, "exercise_id", exerciseID)

	return &exercise.Metadata{
		ExerciseName: name,
		ExerciseID:   exerciseID,
		ExerciseType: exerciseType,
		StartTime:    start.Format(exercise.TimeLayout),
	}, sb.String(), true
}

// coord formats a coordinate with a decimal point always present, so an
// integral latitude renders as "1.0" rather than "1". Keeps documents
// stable for golden-file comparison.
func coord(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// num formats auxiliary measurements with no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
