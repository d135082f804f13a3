package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/recordings"
	"github.com/killallgit/scribe-api/internal/services/storage"
)

// countingStore records every call and reports progress in fixed chunks
type countingStore struct {
	mu        sync.Mutex
	puts      int
	objects   map[string][]byte
	failAfter int64 // fail once this many bytes were read, when > 0
	failures  int   // remaining failing Put calls
}

func newCountingStore() *countingStore {
	return &countingStore{objects: make(map[string][]byte)}
}

func (s *countingStore) Put(ctx context.Context, key string, r io.Reader, size int64, onProgress storage.ProgressFunc) (string, error) {
	s.mu.Lock()
	s.puts++
	failing := s.failures > 0
	if failing {
		s.failures--
	}
	s.mu.Unlock()

	var written int64
	var data []byte
	buf := make([]byte, 1000)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			written += int64(n)
			onProgress(written)
		}
		if failing && written >= s.failAfter {
			return "", errors.New("connection reset by peer")
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return "mem://" + key, nil
}

func (s *countingStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func (s *countingStore) Delete(ctx context.Context, locator string) (bool, error) {
	return false, nil
}

func (s *countingStore) Name() string { return "counting" }

func (s *countingStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

type fixedProber struct{ seconds float64 }

func (p fixedProber) Duration(ctx context.Context, filePath string) (float64, error) {
	return p.seconds, nil
}

type fixture struct {
	db    *database.DB
	recs  recordings.Service
	store *countingStore
}

func setup(t *testing.T) *fixture {
	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	store := newCountingStore()
	return &fixture{
		db:    db,
		recs:  recordings.NewService(recordings.NewRepository(db.DB), store),
		store: store,
	}
}

func (f *fixture) processingRecording(t *testing.T) *models.Recording {
	ctx := context.Background()
	rec, err := f.recs.Create(ctx, recordings.CreateParams{AppointmentID: "appt-1", MentorID: "m1", MenteeID: "c1", ConsentCaptured: true})
	require.NoError(t, err)
	require.NoError(t, f.recs.MarkProcessing(ctx, rec.ID))
	return rec
}

func writeArtifact(t *testing.T, size int) string {
	p := filepath.Join(t.TempDir(), "capture.wav")
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0644))
	return p
}

func collect(events <-chan Progress) []Progress {
	var out []Progress
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func stageAndCollect(t *testing.T, s *Stager, req Request) (*Result, []Progress, error) {
	events := make(chan Progress, 256)
	result, err := s.Stage(context.Background(), req, events)
	return result, collect(events), err
}

func assertEventContract(t *testing.T, events []Progress, success bool) {
	t.Helper()
	require.NotEmpty(t, events)

	var last int64
	for i, ev := range events {
		assert.GreaterOrEqual(t, ev.BytesTransferred, last, "event %d went backwards", i)
		last = ev.BytesTransferred
		if i < len(events)-1 {
			assert.False(t, ev.Done, "event %d is terminal before the end", i)
			assert.Less(t, ev.Percent, 100.0)
		}
	}

	final := events[len(events)-1]
	assert.True(t, final.Done)
	if success {
		assert.Equal(t, 100.0, final.Percent)
		assert.NoError(t, final.Err)
	} else {
		assert.Less(t, final.Percent, 100.0)
		assert.Error(t, final.Err)
	}
}

func TestStage_Success(t *testing.T) {
	f := setup(t)
	rec := f.processingRecording(t)
	artifact := writeArtifact(t, 5500)

	s := NewStager(f.recs, f.store, WithDurationProber(fixedProber{seconds: 10}))
	result, events, err := stageAndCollect(t, s, Request{ArtifactPath: artifact, RecordingID: rec.ID})
	require.NoError(t, err)

	assert.Equal(t, "recordings/appt-1/"+rec.ID+".wav", result.Key)
	assert.Equal(t, "mem://"+result.Key, result.Locator)
	assert.Equal(t, int64(5500), result.SizeBytes)
	assert.Equal(t, result.Locator, result.Recording.StorageLocator)
	assert.InDelta(t, 10.0, result.Recording.DurationSeconds, 0.001)
	assert.Equal(t, models.RecordingStatusProcessing, result.Recording.Status)

	assertEventContract(t, events, true)
	assert.Greater(t, len(events), 2)
	assert.Equal(t, int64(5500), events[len(events)-1].BytesTransferred)
}

func TestStage_FileTooLargeMakesNoStorageCalls(t *testing.T) {
	f := setup(t)
	rec := f.processingRecording(t)
	const ceiling = 4096
	artifact := writeArtifact(t, ceiling+1)

	s := NewStager(f.recs, f.store, WithMaxBytes(ceiling))
	_, events, err := stageAndCollect(t, s, Request{ArtifactPath: artifact, RecordingID: rec.ID})

	require.ErrorIs(t, err, ErrFileTooLarge)
	var tooLarge *FileTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(ceiling+1), tooLarge.Actual)
	assert.Equal(t, int64(ceiling), tooLarge.Allowed)
	assert.Zero(t, f.store.putCount())

	require.Len(t, events, 1)
	assertEventContract(t, events, false)

	unchanged, err := f.recs.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.StorageLocator)
}

func TestStage_ExactlyAtCeiling(t *testing.T) {
	f := setup(t)
	rec := f.processingRecording(t)
	artifact := writeArtifact(t, 4096)

	s := NewStager(f.recs, f.store, WithMaxBytes(4096))
	_, err := s.Stage(context.Background(), Request{ArtifactPath: artifact, RecordingID: rec.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.putCount())
}

func TestStage_RefusesWithoutConsent(t *testing.T) {
	f := setup(t)
	rec := &models.Recording{AppointmentID: "appt-1", Status: models.RecordingStatusProcessing, ConsentCaptured: false}
	require.NoError(t, f.db.Create(rec).Error)
	artifact := writeArtifact(t, 100)

	s := NewStager(f.recs, f.store)
	_, events, err := stageAndCollect(t, s, Request{ArtifactPath: artifact, RecordingID: rec.ID})

	assert.ErrorIs(t, err, ErrConsentRequired)
	assert.Zero(t, f.store.putCount())
	assertEventContract(t, events, false)
}

func TestStage_RequiresProcessingStatus(t *testing.T) {
	f := setup(t)
	rec, err := f.recs.Create(context.Background(), recordings.CreateParams{AppointmentID: "appt-1", ConsentCaptured: true})
	require.NoError(t, err)

	s := NewStager(f.recs, f.store)
	_, err = s.Stage(context.Background(), Request{ArtifactPath: writeArtifact(t, 100), RecordingID: rec.ID}, nil)
	assert.ErrorIs(t, err, recordings.ErrInvalidStatus)
	assert.Zero(t, f.store.putCount())
}

func TestStage_MissingAndEmptyArtifact(t *testing.T) {
	f := setup(t)
	rec := f.processingRecording(t)
	s := NewStager(f.recs, f.store)

	_, err := s.Stage(context.Background(), Request{ArtifactPath: filepath.Join(t.TempDir(), "nope.wav"), RecordingID: rec.ID}, nil)
	assert.ErrorIs(t, err, ErrArtifactMissing)

	_, err = s.Stage(context.Background(), Request{ArtifactPath: writeArtifact(t, 0), RecordingID: rec.ID}, nil)
	assert.ErrorIs(t, err, ErrArtifactEmpty)

	assert.Zero(t, f.store.putCount())
}

func TestCheckArtifact(t *testing.T) {
	f := setup(t)
	s := NewStager(f.recs, f.store, WithMaxBytes(100))

	size, err := s.CheckArtifact(writeArtifact(t, 100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)

	_, err = s.CheckArtifact(writeArtifact(t, 101))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.True(t, IsPrecondition(err))

	_, err = s.CheckArtifact(t.TempDir())
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.True(t, IsPrecondition(err))

	assert.False(t, IsPrecondition(&TransferError{RecordingID: "rec-1", Key: "k", Err: errors.New("reset")}))
	assert.True(t, IsPrecondition(recordings.StatusError{RecordingID: "rec-1"}))
	assert.Zero(t, f.store.putCount())
}

func TestStage_TransferErrorLeavesRecordingAndRetryOverwrites(t *testing.T) {
	f := setup(t)
	rec := f.processingRecording(t)
	artifact := writeArtifact(t, 3000)
	f.store.failAfter = 2000
	f.store.failures = 1

	s := NewStager(f.recs, f.store)
	_, events, err := stageAndCollect(t, s, Request{ArtifactPath: artifact, RecordingID: rec.ID, DurationSeconds: 3})

	require.ErrorIs(t, err, ErrTransfer)
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, rec.ID, transferErr.RecordingID)
	assertEventContract(t, events, false)

	unchanged, err := f.recs.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RecordingStatusProcessing, unchanged.Status)
	assert.Empty(t, unchanged.StorageLocator)

	result, events, err := stageAndCollect(t, s, Request{ArtifactPath: artifact, RecordingID: rec.ID, DurationSeconds: 3})
	require.NoError(t, err)
	assertEventContract(t, events, true)
	assert.Equal(t, transferErr.Key, result.Key)
	assert.Equal(t, 2, f.store.putCount())
	assert.Len(t, f.store.objects, 1)
}

func TestStage_SlowConsumerDoesNotStall(t *testing.T) {
	f := setup(t)
	rec := f.processingRecording(t)
	artifact := writeArtifact(t, 20000)

	events := make(chan Progress, 1)
	done := make(chan error, 1)
	go func() {
		_, err := NewStager(f.recs, f.store).Stage(context.Background(), Request{ArtifactPath: artifact, RecordingID: rec.ID}, events)
		done <- err
	}()

	all := collect(events)
	require.NoError(t, <-done)
	assertEventContract(t, all, true)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		want     string
	}{
		{"wav", "/tmp/x/capture.wav", "recordings/a/r.wav"},
		{"uppercase extension", "/tmp/x/CAPTURE.M4A", "recordings/a/r.m4a"},
		{"no extension", "/tmp/x/capture", "recordings/a/r.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey("a", "r", tt.artifact))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(0, 0))
	assert.Equal(t, 50.0, percent(1, 2))
	assert.Equal(t, 33.33, percent(1, 3))
	assert.Equal(t, 100.0, percent(3, 3))
}
