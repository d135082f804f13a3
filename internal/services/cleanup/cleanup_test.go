package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/recordings"
)

type liveSet map[string]bool

func (l liveSet) IsLive(recordingID string) bool { return l[recordingID] }

func setup(t *testing.T) (*database.DB, recordings.Service) {
	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db, recordings.NewService(recordings.NewRepository(db.DB), nil)
}

func createAged(t *testing.T, db *database.DB, recs recordings.Service, appointmentID string, age time.Duration) *models.Recording {
	rec, err := recs.Create(context.Background(), recordings.CreateParams{AppointmentID: appointmentID, ConsentCaptured: true})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Recording{}).Where("id = ?", rec.ID).
		UpdateColumn("created_at", time.Now().UTC().Add(-age)).Error)
	return rec
}

func TestRunOnce_ReapsStaleRecordings(t *testing.T) {
	db, recs := setup(t)
	ctx := context.Background()

	stale := createAged(t, db, recs, "appt-1", 3*time.Hour)
	live := createAged(t, db, recs, "appt-2", 3*time.Hour)
	fresh := createAged(t, db, recs, "appt-3", time.Minute)
	processing := createAged(t, db, recs, "appt-4", 3*time.Hour)
	require.NoError(t, recs.MarkProcessing(ctx, processing.ID))

	svc := NewService(recs, liveSet{live.ID: true}, Options{StaleRecordingAge: time.Hour, Concurrency: 2})
	report, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecordingsReaped)

	got, err := recs.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusFailed, got.Status)
	assert.Equal(t, FailedStage, got.FailedStage)
	assert.Equal(t, ErrAbandoned.Error(), got.LastError)

	for _, id := range []string{live.ID, fresh.ID} {
		got, err := recs.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.RecordingStatusRecording, got.Status)
	}
	got, err = recs.Get(ctx, processing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusProcessing, got.Status)

	// A second pass has nothing left to do
	report, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.RecordingsReaped)
}

func TestRunOnce_RemovesOldCaptureFiles(t *testing.T) {
	_, recs := setup(t)
	dir := t.TempDir()

	old := filepath.Join(dir, "capture-old.wav")
	recent := filepath.Join(dir, "capture-recent.wav")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, recent, unrelated} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(unrelated, past, past))

	svc := NewService(recs, nil, Options{TempDir: dir, MaxTempAge: 24 * time.Hour})
	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesRemoved)

	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
	assert.FileExists(t, unrelated)
}

func TestRunOnce_DisabledByZeroAges(t *testing.T) {
	db, recs := setup(t)
	createAged(t, db, recs, "appt-1", 100*time.Hour)

	svc := NewService(recs, nil, Options{TempDir: "/nonexistent"})
	report, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
}

func TestStartStop(t *testing.T) {
	db, recs := setup(t)
	stale := createAged(t, db, recs, "appt-1", 3*time.Hour)

	svc := NewService(recs, nil, Options{StaleRecordingAge: time.Hour, Interval: time.Hour})
	svc.Start(context.Background())
	defer svc.Stop()

	// The first pass runs before Start returns
	got, err := recs.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusFailed, got.Status)
}
