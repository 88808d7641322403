package export

import (
	"github.com/northcott-j/strava-nator/pkg/bootstrap"
	"github.com/northcott-j/strava-nator/pkg/domain/samples"
	"github.com/northcott-j/strava-nator/pkg/errs"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/archive"
)

// Investigate checks an extracted export for usable data: it counts
// sample files carrying latitude or longitude fields. Unreadable files
// are logged and skipped. An export with no location data at all is a
// configuration problem worth aborting on.
func Investigate(svc *bootstrap.Service, dataPath string) error {
	logger := svc.Logger

	allFiles, err := archive.ExerciseFiles(dataPath, false)
	if err != nil {
		return err
	}

	count := 0
	for _, files := range allFiles {
		for _, path := range files {
			ok, err := samples.HasLocationData(path)
			if err != nil {
				logger.Warn("Failed to parse sample file", "error", err)
				continue
			}
			if ok {
				count++
			}
		}
	}

	if count == 0 {
		return errs.NewConfiguration("no files have lat/long info")
	}
	logger.Info("Found files with location data", "count", count)
	return nil
}
