package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/northcott-j/strava-nator/pkg/bootstrap"
	"github.com/northcott-j/strava-nator/pkg/domain/exercise"
	"github.com/northcott-j/strava-nator/pkg/errs"
	"github.com/northcott-j/strava-nator/pkg/infrastructure/ledger"
	"github.com/northcott-j/strava-nator/pkg/integrations/strava"
)

type fakeHandle struct {
	pendingPolls int
	pollErr      error
	failed       bool
	failErr      error
}

func (h *fakeHandle) Processing() bool { return h.pendingPolls > 0 }

func (h *fakeHandle) Poll(context.Context) error {
	if h.pollErr != nil {
		return h.pollErr
	}
	h.pendingPolls--
	return nil
}

func (h *fakeHandle) Failed() bool { return h.failed }
func (h *fakeHandle) Err() error   { return h.failErr }

type fakeUploadService struct {
	athlete    *strava.Athlete
	athleteErr error

	// Keyed by external id.
	handles    map[string]*fakeHandle
	uploadErrs map[string]error

	submitted []strava.UploadRequest
}

func (s *fakeUploadService) CurrentAthlete(context.Context) (*strava.Athlete, error) {
	if s.athleteErr != nil {
		return nil, s.athleteErr
	}
	return s.athlete, nil
}

func (s *fakeUploadService) UploadActivity(_ context.Context, req strava.UploadRequest) (Handle, error) {
	s.submitted = append(s.submitted, req)
	if err := s.uploadErrs[req.ExternalID]; err != nil {
		return nil, err
	}
	if h, ok := s.handles[req.ExternalID]; ok {
		return h, nil
	}
	return &fakeHandle{}, nil
}

func newTestScheduler(t *testing.T, service Service, confirm func(string) bool) *Scheduler {
	t.Helper()
	led, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := &bootstrap.Service{
		Config: &bootstrap.Config{RateLimit: 100, RateInterval: 15 * time.Minute},
		Logger: testLogger(),
	}
	authorize := func(context.Context) (Service, error) {
		if service == nil {
			return nil, errors.New("authorization refused")
		}
		return service, nil
	}
	sched := NewScheduler(svc, led, authorize, confirm)
	sched.sleep = func(time.Duration) {}
	return sched
}

func confirmAll(string) bool { return true }

// writeGPX writes a placeholder document under a metadata-carrying file
// name and returns its path.
func writeGPX(t *testing.T, dir string, meta *exercise.Metadata) string {
	t.Helper()
	path := filepath.Join(dir, exercise.EncodeFilename(meta))
	if err := os.WriteFile(path, []byte("<gpx/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_AuthorizationFailure(t *testing.T) {
	sched := newTestScheduler(t, nil, confirmAll)

	err := sched.Run(context.Background(), nil)
	var authErr *errs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if sched.State() != StateFailed {
		t.Errorf("expected failed state, got %s", sched.State())
	}
}

func TestRun_AthleteLookupFailure(t *testing.T) {
	service := &fakeUploadService{athleteErr: errors.New("401 from strava")}
	sched := newTestScheduler(t, service, confirmAll)

	err := sched.Run(context.Background(), nil)
	var authErr *errs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestRun_IdentityRejected(t *testing.T) {
	service := &fakeUploadService{athlete: &strava.Athlete{Firstname: "Jane", Lastname: "Doe"}}
	var prompts []string
	sched := newTestScheduler(t, service, func(prompt string) bool {
		prompts = append(prompts, prompt)
		return false
	})

	if err := sched.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.State() != StateAborted {
		t.Errorf("expected aborted state, got %s", sched.State())
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Jane Doe") {
		t.Errorf("unexpected prompts: %v", prompts)
	}
	if len(service.submitted) != 0 {
		t.Error("nothing should have been uploaded")
	}
}

func TestRun_NoNewFilesFinishesWithoutConfirmation(t *testing.T) {
	service := &fakeUploadService{athlete: &strava.Athlete{Firstname: "Jane", Lastname: "Doe"}}
	prompts := 0
	sched := newTestScheduler(t, service, func(string) bool {
		prompts++
		return true
	})

	if err := sched.Ledger.RecordUploaded("abc123"); err != nil {
		t.Fatal(err)
	}
	files := map[string][]string{
		"running": {writeGPX(t, t.TempDir(), &exercise.Metadata{
			ExerciseName: "2019-07-09 Running (Strava-nator)",
			ExerciseID:   "abc123",
			ExerciseType: "running",
			StartTime:    "2019-07-09T10:00:00",
		})},
	}

	if err := sched.Run(context.Background(), files); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.State() != StateDone {
		t.Errorf("expected done state, got %s", sched.State())
	}
	if prompts != 1 {
		t.Errorf("expected only the identity confirmation, got %d prompts", prompts)
	}
}

func TestRun_FileCountRejected(t *testing.T) {
	service := &fakeUploadService{athlete: &strava.Athlete{Firstname: "Jane", Lastname: "Doe"}}
	prompts := 0
	sched := newTestScheduler(t, service, func(string) bool {
		prompts++
		return prompts == 1
	})

	files := map[string][]string{
		"running": {writeGPX(t, t.TempDir(), &exercise.Metadata{
			ExerciseName: "2019-07-09 Running (Strava-nator)",
			ExerciseID:   "abc123",
			ExerciseType: "running",
			StartTime:    "2019-07-09T10:00:00",
		})},
	}

	if err := sched.Run(context.Background(), files); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.State() != StateAborted {
		t.Errorf("expected aborted state, got %s", sched.State())
	}
	if len(service.submitted) != 0 {
		t.Error("nothing should have been uploaded")
	}
}

func TestRun_FailedUploadIsSkippedAndNotRecorded(t *testing.T) {
	dir := t.TempDir()
	good := &exercise.Metadata{
		ExerciseName: "2019-07-09 Running (Strava-nator)",
		ExerciseID:   "abc123",
		ExerciseType: "running",
		StartTime:    "2019-07-09T10:00:00",
	}
	bad := &exercise.Metadata{
		ExerciseName: "2019-07-10 Running (Strava-nator)",
		ExerciseID:   "def456",
		ExerciseType: "running",
		StartTime:    "2019-07-10T10:00:00",
	}
	files := map[string][]string{
		"running": {writeGPX(t, dir, good), writeGPX(t, dir, bad)},
	}

	service := &fakeUploadService{
		athlete: &strava.Athlete{Firstname: "Jane", Lastname: "Doe"},
		handles: map[string]*fakeHandle{
			"abc123": {pendingPolls: 2},
		},
		uploadErrs: map[string]error{
			"def456": errors.New("500 from strava"),
		},
	}
	sched := newTestScheduler(t, service, confirmAll)

	if err := sched.Run(context.Background(), files); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.State() != StateDone {
		t.Errorf("expected done state, got %s", sched.State())
	}
	if len(service.submitted) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(service.submitted))
	}
	if !sched.Ledger.IsUploaded("abc123") {
		t.Error("successful upload missing from ledger")
	}
	if sched.Ledger.IsUploaded("def456") {
		t.Error("failed upload must not be recorded")
	}
}

func TestRun_ProcessingFailureIsSkipped(t *testing.T) {
	dir := t.TempDir()
	meta := &exercise.Metadata{
		ExerciseName: "2019-07-09 Running (Strava-nator)",
		ExerciseID:   "abc123",
		ExerciseType: "running",
		StartTime:    "2019-07-09T10:00:00",
	}
	files := map[string][]string{"running": {writeGPX(t, dir, meta)}}

	service := &fakeUploadService{
		athlete: &strava.Athlete{Firstname: "Jane", Lastname: "Doe"},
		handles: map[string]*fakeHandle{
			"abc123": {failed: true, failErr: errors.New("malformed gpx")},
		},
	}
	sched := newTestScheduler(t, service, confirmAll)

	if err := sched.Run(context.Background(), files); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sched.Ledger.IsUploaded("abc123") {
		t.Error("failed upload must not be recorded")
	}
}

func TestOrderBatch_DisambiguatesCollidingNames(t *testing.T) {
	dir := t.TempDir()
	name := "2019-07-09 Running (Strava-nator)"
	later := writeGPX(t, dir, &exercise.Metadata{
		ExerciseName: name, ExerciseID: "bbb", ExerciseType: "running", StartTime: "2019-07-09T18:00:00",
	})
	earlier := writeGPX(t, dir, &exercise.Metadata{
		ExerciseName: name, ExerciseID: "aaa", ExerciseType: "running", StartTime: "2019-07-09T08:00:00",
	})
	unique := writeGPX(t, dir, &exercise.Metadata{
		ExerciseName: "2019-07-08 Walking (Strava-nator)", ExerciseID: "ccc", ExerciseType: "walking", StartTime: "2019-07-08T08:00:00",
	})

	batch := orderBatch(map[string][]string{
		"running": {later, earlier},
		"walking": {unique},
	}, testLogger())

	if len(batch) != 3 {
		t.Fatalf("expected 3 items, got %d", len(batch))
	}

	// Flattened order follows start time.
	wantIDs := []string{"ccc", "aaa", "bbb"}
	for i, want := range wantIDs {
		if batch[i].Meta.ExerciseID != want {
			t.Errorf("batch[%d] = %s, want %s", i, batch[i].Meta.ExerciseID, want)
		}
	}

	if got := batch[1].Meta.ExerciseName; got != "2019-07-09 Running #1 (Strava-nator)" {
		t.Errorf("earlier collision name = %q", got)
	}
	if got := batch[2].Meta.ExerciseName; got != "2019-07-09 Running #2 (Strava-nator)" {
		t.Errorf("later collision name = %q", got)
	}
	if got := batch[0].Meta.ExerciseName; got != "2019-07-08 Walking (Strava-nator)" {
		t.Errorf("unique name must be untouched, got %q", got)
	}
}

func TestOrderBatch_SameStartTimeBreaksTiesByID(t *testing.T) {
	dir := t.TempDir()
	name := "2019-07-09 Running (Strava-nator)"
	second := writeGPX(t, dir, &exercise.Metadata{
		ExerciseName: name, ExerciseID: "zzz", ExerciseType: "running", StartTime: "2019-07-09T08:00:00",
	})
	first := writeGPX(t, dir, &exercise.Metadata{
		ExerciseName: name, ExerciseID: "aaa", ExerciseType: "running", StartTime: "2019-07-09T08:00:00",
	})

	batch := orderBatch(map[string][]string{"running": {second, first}}, testLogger())
	if len(batch) != 2 {
		t.Fatalf("expected 2 items, got %d", len(batch))
	}
	if batch[0].Meta.ExerciseID != "aaa" || batch[1].Meta.ExerciseID != "zzz" {
		t.Errorf("tie not broken by id: %s, %s", batch[0].Meta.ExerciseID, batch[1].Meta.ExerciseID)
	}
}

func TestOrderBatch_DropsUnreadableAndDuplicatePaths(t *testing.T) {
	dir := t.TempDir()
	good := writeGPX(t, dir, &exercise.Metadata{
		ExerciseName: "2019-07-09 Running (Strava-nator)",
		ExerciseID:   "abc123", ExerciseType: "running", StartTime: "2019-07-09T08:00:00",
	})

	batch := orderBatch(map[string][]string{
		"running": {good, good, filepath.Join(dir, "plain.gpx")},
	}, testLogger())

	if len(batch) != 1 {
		t.Fatalf("expected 1 item, got %d", len(batch))
	}
	if batch[0].Meta.ExerciseID != "abc123" {
		t.Errorf("unexpected item: %+v", batch[0].Meta)
	}
}
