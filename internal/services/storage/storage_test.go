package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStore_PutOpenDelete(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("a"), 200*1024)
	var progress []int64
	locator, err := store.Put(ctx, "recordings/appt-1/rec-1.wav", bytes.NewReader(payload), int64(len(payload)), func(n int64) {
		progress = append(progress, n)
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "file://"))

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
	assert.Equal(t, int64(len(payload)), progress[len(progress)-1])

	rc, err := store.Open(ctx, locator)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	deleted, err := store.Delete(ctx, locator)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.Delete(ctx, locator)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = store.Open(ctx, locator)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFilesystemStore_PutOverwrites(t *testing.T) {
	base := t.TempDir()
	store, err := NewFilesystemStore(base)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Put(ctx, "recordings/a/r.wav", strings.NewReader("first"), 5, nil)
	require.NoError(t, err)
	second, err := store.Put(ctx, "recordings/a/r.wav", strings.NewReader("second!"), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Join(base, "recordings", "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(base, "recordings", "a", "r.wav"))
	require.NoError(t, err)
	assert.Equal(t, "second!", string(data))
}

func TestFilesystemStore_ShortWrite(t *testing.T) {
	base := t.TempDir()
	store, err := NewFilesystemStore(base)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "k.wav", strings.NewReader("abc"), 10, nil)
	assert.ErrorIs(t, err, ErrShortWrite)

	_, statErr := os.Stat(filepath.Join(base, "k.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFilesystemStore_CancelledContext(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "k.wav", strings.NewReader("abc"), 3, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilesystemStore_RejectsForeignPaths(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "../escape.wav", strings.NewReader("x"), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = store.Open(ctx, "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidLocator)

	_, err = store.Delete(ctx, "gs://bucket/key")
	assert.ErrorIs(t, err, ErrInvalidLocator)
}

func TestParseGCSLocator(t *testing.T) {
	tests := []struct {
		locator    string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{locator: "gs://scribe-audio/recordings/a/r.wav", wantBucket: "scribe-audio", wantObject: "recordings/a/r.wav"},
		{locator: "gs://scribe-audio", wantErr: true},
		{locator: "gs:///object", wantErr: true},
		{locator: "file:///tmp/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			bucket, object, err := parseGCSLocator(tt.locator)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", contentTypeFor("a/b.WAV"))
	assert.Equal(t, "audio/webm", contentTypeFor("a/b.webm"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("a/b"))
}
