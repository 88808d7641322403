// Package upload drives not-yet-uploaded GPX files through the Strava
// upload API: operator confirmations, deterministic ordering and
// deduplication of activity names, rate limiting, asynchronous processing
// polls, and ledger bookkeeping.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/northcott-j/strava-nator/pkg/bootstrap"
	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
	"github.com/northcott-j/strava-nator/pkg/domain/gpx"
	"github.com/northcott-j/strava-nator/pkg/errs"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/ledger"
	"github.com/northcott-j/strava-nator/pkg/integrations/strava"
)

const uploadDescription = "Uploaded Samsung Health activity using Strava-nator"

// State is the scheduler's position in its run.
type State int

const (
	StateIdle State = iota
	StateAuthorizing
	StateConfirmingIdentity
	StateConfirmingFileCount
	StateUploading
	StateDone
	StateAborted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                "idle",
	StateAuthorizing:         "authorizing",
	StateConfirmingIdentity:  "confirming-identity",
	StateConfirmingFileCount: "confirming-file-count",
	StateUploading:           "uploading",
	StateDone:                "done",
	StateAborted:             "aborted",
	StateFailed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Handle is the asynchronous-processing handle returned for one submitted
// activity.
type Handle interface {
	Processing() bool
	Poll(ctx context.Context) error
	Failed() bool
	Err() error
}

// Service is the upload-side contract. Any call may fail and failures are
// handled per file.
type Service interface {
	CurrentAthlete(ctx context.Context) (*strava.Athlete, error)
	UploadActivity(ctx context.Context, req strava.UploadRequest) (Handle, error)
}

// ClientService adapts *strava.Client to Service.
type ClientService struct {
	Client *strava.Client
}

func (s ClientService) CurrentAthlete(ctx context.Context) (*strava.Athlete, error) {
	return s.Client.CurrentAthlete(ctx)
}

func (s ClientService) UploadActivity(ctx context.Context, req strava.UploadRequest) (Handle, error) {
	u, err := s.Client.UploadActivity(ctx, req)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Item is one file scheduled for upload, carrying its (possibly
// disambiguated) metadata.
type Item struct {
	Path string
	Meta *exercise.Metadata
}

// Scheduler walks the upload state machine over a filtered file set.
type Scheduler struct {
	Svc    *bootstrap.Service
	Ledger *ledger.Ledger

	// Authorize runs the external OAuth flow and returns an authorized
	// upload service.
	Authorize func(ctx context.Context) (Service, error)

	// Confirm asks the operator a yes/no question.
	Confirm func(prompt string) bool

	Quota *Quota

	state        State
	pollInterval time.Duration
	sleep        func(time.Duration)
}

func NewScheduler(svc *bootstrap.Service, led *ledger.Ledger, authorize func(ctx context.Context) (Service, error), confirm func(string) bool) *Scheduler {
	return &Scheduler{
		Svc:          svc,
		Ledger:       led,
		Authorize:    authorize,
		Confirm:      confirm,
		Quota:        NewQuota(svc.Config.RateLimit, svc.Config.RateInterval, svc.Logger),
		state:        StateIdle,
		pollInterval: 5 * time.Second,
		sleep:        time.Sleep,
	}
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.state = st
	s.Svc.Logger.Debug("Scheduler state change", "state", st.String())
}

// Run uploads every not-yet-uploaded file in filesByType. A single failed
// upload is logged and skipped; only authorization problems or an
// operator abort end the run early.
func (s *Scheduler) Run(ctx context.Context, filesByType map[string][]string) error {
	logger := s.Svc.Logger

	s.setState(StateAuthorizing)
	service, err := s.Authorize(ctx)
	if err != nil {
		s.setState(StateFailed)
		return &errs.AuthError{Err: err}
	}
	athlete, err := service.CurrentAthlete(ctx)
	if err != nil {
		s.setState(StateFailed)
		return &errs.AuthError{Err: err}
	}

	s.setState(StateConfirmingIdentity)
	if !s.Confirm(fmt.Sprintf("Are you %s %s?", athlete.Firstname, athlete.Lastname)) {
		s.setState(StateAborted)
		return nil
	}

	s.setState(StateConfirmingFileCount)
	newFiles := s.Ledger.FilterNew(filesByType)
	total := 0
	for exerciseType, files := range newFiles {
		logger.Info("Found GPX files for activity", "activity", exerciseType, "count", len(files))
		total += len(files)
	}
	if total == 0 {
		logger.Info("No new files to upload")
		s.setState(StateDone)
		return nil
	}
	if !s.Confirm(fmt.Sprintf("Upload these %d files?", total)) {
		s.setState(StateAborted)
		return nil
	}

	s.setState(StateUploading)
	for _, item := range orderBatch(newFiles, logger) {
		s.Quota.Acquire()
		if err := s.uploadOne(ctx, service, item); err != nil {
			logger.Error("Skipping failed upload", "error", err)
			s.Svc.CaptureError(err)
			continue
		}
		if err := s.Ledger.RecordUploaded(item.Meta.ExerciseID); err != nil {
			return fmt.Errorf("recording upload of %s: %w", item.Meta.ExerciseID, err)
		}
	}

	s.setState(StateDone)
	return nil
}

func (s *Scheduler) uploadOne(ctx context.Context, service Service, item Item) error {
	s.Svc.Logger.Info("Uploading activity", "exercise_name", item.Meta.ExerciseName)

	f, err := os.Open(item.Path)
	if err != nil {
		return &errs.UploadError{ExerciseID: item.Meta.ExerciseID, Err: err}
	}
	defer f.Close()

	handle, err := service.UploadActivity(ctx, strava.UploadRequest{
		File:         f,
		Name:         item.Meta.ExerciseName,
		Description:  uploadDescription,
		ActivityType: item.Meta.ExerciseType,
		ExternalID:   item.Meta.ExerciseID,
	})
	s.Quota.Consume(1)
	if err != nil {
		return &errs.UploadError{ExerciseID: item.Meta.ExerciseID, Err: err}
	}

	for handle.Processing() {
		s.sleep(s.pollInterval)
		if err := handle.Poll(ctx); err != nil {
			return &errs.UploadError{ExerciseID: item.Meta.ExerciseID, Err: err}
		}
		s.Quota.Consume(1)
	}
	if handle.Failed() {
		return &errs.UploadError{ExerciseID: item.Meta.ExerciseID, Err: handle.Err()}
	}
	return nil
}

// orderBatch flattens the per-type file sets into one deterministic upload
// order: duplicate activity names get a "#N" suffix assigned by ascending
// start time (ties broken by exercise id), and the flattened list is
// ordered the same way. Files whose metadata cannot be recovered are
// logged and dropped.
func orderBatch(filesByType map[string][]string, logger *slog.Logger) []Item {
	seen := map[string]struct{}{}
	byName := map[string][]Item{}
	for _, files := range filesByType {
		for _, path := range files {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			meta, err := exercise.ParseFilename(path)
			if err != nil {
				logger.Warn("Dropping gpx file with unreadable metadata", "path", path, "error", err)
				continue
			}
			byName[meta.ExerciseName] = append(byName[meta.ExerciseName], Item{Path: path, Meta: meta})
		}
	}

	var batch []Item
	for _, group := range byName {
		sortItems(group)
		if len(group) > 1 {
			for i := range group {
				group[i].Meta.ExerciseName = strings.Replace(
					group[i].Meta.ExerciseName, gpx.NameSuffix,
					fmt.Sprintf("#%d %s", i+1, gpx.NameSuffix), 1)
			}
		}
		batch = append(batch, group...)
	}

	sortItems(batch)
	return batch
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Meta.StartTime != items[j].Meta.StartTime {
			return items[i].Meta.StartTime < items[j].Meta.StartTime
		}
		return items[i].Meta.ExerciseID < items[j].Meta.ExerciseID
	})
}
