// Package archive manages the on-disk workspace for one export: zip
// extraction, the raw JSON sample tree, and the generated GPX output tree.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
	"github.com/northcott-j/strava-nator/pkg/errs"
)

// OutputFolder is the name of the generated GPX tree inside a data path.
const OutputFolder = "strava-nator"

// DataPath returns the extraction directory for a given export zip:
// <dataDir>/<zip name without extension>.
func DataPath(dataDir, zipPath string) string {
	name := strings.TrimSuffix(filepath.Base(zipPath), ".zip")
	return filepath.Join(dataDir, name)
}

// PrepWorkingDir extracts the export zip into dataPath, flattening one
// level of nesting when the archive wraps everything in a single folder.
// An existing directory is left untouched so repeated runs reuse it.
func PrepWorkingDir(zipPath, dataPath string, logger *slog.Logger) error {
	if _, err := os.Stat(zipPath); err != nil {
		return errs.NewConfiguration("%s does not exist", zipPath)
	}
	if info, err := os.Stat(dataPath); err == nil && info.IsDir() {
		logger.Info("Folder already exists, skipping zip file processing", "path", dataPath)
		return nil
	}
	return extractZip(zipPath, dataPath)
}

func extractZip(zipPath, dataPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer r.Close()

	prefix, err := findZipPrefix(&r.Reader)
	if err != nil {
		return err
	}

	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rel := strings.TrimPrefix(f.Name, prefix)
		rel = filepath.FromSlash(rel)
		if rel == "" || strings.Contains(rel, "..") {
			continue
		}
		dest := filepath.Join(dataPath, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening zip member %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return nil
}

// findZipPrefix locates the folder prefix wrapping the export, identified
// by the jsons folder that every export carries at its root.
func findZipPrefix(r *zip.Reader) (string, error) {
	for _, f := range r.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if i := strings.Index(name, "jsons/"); i >= 0 {
			return name[:i], nil
		}
	}
	return "", errs.NewConfiguration("zip file is of an unknown structure")
}

// ExerciseFiles walks jsons/<vendor>.exercise/**/*.json and groups file
// paths by exercise identifier (the file name up to its first dot). With
// excludeInternal set, vendor-internal data files are skipped.
func ExerciseFiles(dataPath string, excludeInternal bool) (map[string][]string, error) {
	jsonPath := filepath.Join(dataPath, "jsons")
	if info, err := os.Stat(jsonPath); err != nil || !info.IsDir() {
		return nil, errs.NewConfiguration("cannot find any json files in extract")
	}

	exercisePath, err := findExerciseFolder(jsonPath)
	if err != nil {
		return nil, err
	}

	files := map[string][]string{}
	err = filepath.WalkDir(exercisePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		if excludeInternal && strings.Contains(path, "internal") {
			return nil
		}
		id, _, _ := strings.Cut(filepath.Base(path), ".")
		files[id] = append(files[id], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", exercisePath, err)
	}

	for id := range files {
		sort.Strings(files[id])
	}
	return files, nil
}

func findExerciseFolder(jsonPath string) (string, error) {
	entries, err := os.ReadDir(jsonPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", jsonPath, err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".exercise") {
			return filepath.Join(jsonPath, e.Name()), nil
		}
	}
	return "", errs.NewConfiguration("could not find a folder with JSON exercise files")
}

// SetupGPXFolders creates the output root and one subfolder per exercise
// type.
func SetupGPXFolders(dataPath string, exerciseTypes []string) error {
	for _, t := range exerciseTypes {
		if err := os.MkdirAll(filepath.Join(dataPath, OutputFolder, t), 0o755); err != nil {
			return fmt.Errorf("creating gpx folder for %s: %w", t, err)
		}
	}
	return nil
}

// SaveGPX writes one GPX document into the type's output folder,
// replacing any previous file with the same exercise identifier prefix.
func SaveGPX(dataPath, exerciseType, filename, doc string) error {
	folder := filepath.Join(dataPath, OutputFolder, exerciseType)

	id := exercise.IDFromFilename(filename)
	stale, _ := filepath.Glob(filepath.Join(folder, id+exercise.NameSeparator+"*.gpx"))
	for _, s := range stale {
		if err := os.Remove(s); err != nil {
			return fmt.Errorf("removing stale gpx %s: %w", s, err)
		}
	}

	dest := filepath.Join(folder, filename)
	if err := os.WriteFile(dest, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

// GPXFiles returns the generated output tree: exercise type -> sorted GPX
// file paths. An export that has not generated anything yields an empty
// map.
func GPXFiles(dataPath string) (map[string][]string, error) {
	root := filepath.Join(dataPath, OutputFolder)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	files := map[string][]string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		paths, err := filepath.Glob(filepath.Join(root, e.Name(), "*.gpx"))
		if err != nil {
			return nil, fmt.Errorf("globbing gpx files for %s: %w", e.Name(), err)
		}
		sort.Strings(paths)
		files[e.Name()] = paths
	}
	return files, nil
}
