package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const gcsScheme = "gs://"

// gcsChunkSize must be a multiple of 256 KiB; smaller chunks give finer progress
const gcsChunkSize = 1 << 20

// GCSStore implements ObjectStore on a Google Cloud Storage bucket
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCS store using application default credentials
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, prefix), nil
}

// NewGCSStoreWithClient wraps an existing storage client
func NewGCSStoreWithClient(client *gcs.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Name identifies the backend
func (g *GCSStore) Name() string {
	return "gcs"
}

// Close releases the underlying client
func (g *GCSStore) Close() error {
	return g.client.Close()
}

// Put streams the object to the bucket. Progress comes from the resumable
// upload's acknowledged bytes.
func (g *GCSStore) Put(ctx context.Context, key string, r io.Reader, size int64, onProgress ProgressFunc) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	objectName := key
	if g.prefix != "" {
		objectName = path.Join(g.prefix, key)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentTypeFor(objectName)
	w.ChunkSize = gcsChunkSize
	if onProgress != nil {
		w.ProgressFunc = onProgress
	}

	written, err := io.Copy(w, r)
	if err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("failed to write gs://%s/%s: %w", g.bucket, objectName, describeGCSError(err))
	}
	if size >= 0 && written != size {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, written, size)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize gs://%s/%s: %w", g.bucket, objectName, describeGCSError(err))
	}

	// The final chunk is acknowledged by Close, which does not call ProgressFunc
	if onProgress != nil {
		onProgress(written)
	}

	return gcsScheme + g.bucket + "/" + objectName, nil
}

// Open returns a reader for the object
func (g *GCSStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	bucket, object, err := parseGCSLocator(locator)
	if err != nil {
		return nil, err
	}
	rc, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, locator)
		}
		return nil, fmt.Errorf("failed to open %s: %w", locator, describeGCSError(err))
	}
	return rc, nil
}

// Delete removes the object
func (g *GCSStore) Delete(ctx context.Context, locator string) (bool, error) {
	bucket, object, err := parseGCSLocator(locator)
	if err != nil {
		return false, err
	}
	if err := g.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s: %w", locator, describeGCSError(err))
	}
	return true, nil
}

// parseGCSLocator splits gs://bucket/object
func parseGCSLocator(locator string) (string, string, error) {
	if !strings.HasPrefix(locator, gcsScheme) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(locator, gcsScheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return bucket, object, nil
}

// describeGCSError keeps the HTTP status of API errors visible in messages
func describeGCSError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gcs status %d: %w", apiErr.Code, err)
	}
	return err
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
