// Package export drives the manifest -> merge -> encode pipeline over a
// whole extracted export, writing one GPX file per qualifying exercise
// into the type-partitioned output tree.
package export

import (
	"fmt"

	"github.com/northcott-j/strava-nator/pkg/bootstrap"
	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
	"github.com/northcott-j/strava-nator/pkg/domain/gpx"
	"github.com/northcott-j/strava-nator/pkg/domain/manifest"
	"github.com/northcott-j/strava-nator/pkg/domain/samples"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/archive"
)

// GenerateGPXFiles creates the output tree with one subfolder per
// exercise type and a GPX file per exercise that has usable location
// data. Exercises of unknown type are not generated. Types and
// identifiers are processed in sorted order so repeated runs produce the
// same tree.
func GenerateGPXFiles(svc *bootstrap.Service, dataPath string) error {
	logger := svc.Logger

	m, err := manifest.Build(dataPath, true, logger)
	if err != nil {
		return err
	}
	allFiles, err := archive.ExerciseFiles(dataPath, true)
	if err != nil {
		return err
	}
	if err := archive.SetupGPXFolders(dataPath, m.SortedTypes()); err != nil {
		return err
	}

	generated := 0
	for _, exerciseType := range m.SortedTypes() {
		for _, id := range m[exerciseType].SortedIDs() {
			points := samples.Merge(allFiles[id], logger)
			if len(points) == 0 {
				logger.Debug("No location data for exercise", "exercise_id", id)
				continue
			}
			meta, doc, ok := gpx.Encode(exerciseType, id, points, logger)
			if !ok {
				logger.Debug("No qualifying trackpoints for exercise", "exercise_id", id)
				continue
			}
			if err := archive.SaveGPX(dataPath, exerciseType, exercise.EncodeFilename(meta), doc); err != nil {
				return fmt.Errorf("saving gpx for %s: %w", id, err)
			}
			generated++
		}
	}

	logger.Info("Finished generating GPX files", "count", generated)
	return nil
}
