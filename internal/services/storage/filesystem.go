package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// copyBufferSize bounds how often progress is reported for local writes
const copyBufferSize = 64 * 1024

// FilesystemStore implements ObjectStore on a local directory
type FilesystemStore struct {
	basePath string
}

// NewFilesystemStore creates a filesystem store rooted at basePath
func NewFilesystemStore(basePath string) (*FilesystemStore, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FilesystemStore{basePath: abs}, nil
}

// Name identifies the backend
func (fs *FilesystemStore) Name() string {
	return "filesystem"
}

// Put writes the object to a temp file and renames it over the final path
func (fs *FilesystemStore) Put(ctx context.Context, key string, r io.Reader, size int64, onProgress ProgressFunc) (string, error) {
	fullPath, err := fs.pathForKey(key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	written, err := io.CopyBuffer(tmp, newProgressReader(contextReader{ctx: ctx, r: r}, onProgress), make([]byte, copyBufferSize))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && written != size {
		return "", fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, written, size)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return fileScheme + fullPath, nil
}

// Open opens the object for reading
func (fs *FilesystemStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	path, err := fs.pathForLocator(locator)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, locator)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the object from disk
func (fs *FilesystemStore) Delete(ctx context.Context, locator string) (bool, error) {
	path, err := fs.pathForLocator(locator)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return true, nil
}

func (fs *FilesystemStore) pathForKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || filepath.IsAbs(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(key)), nil
}

// pathForLocator only resolves locators that point inside the store root
func (fs *FilesystemStore) pathForLocator(locator string) (string, error) {
	if !strings.HasPrefix(locator, fileScheme) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	path := filepath.Clean(strings.TrimPrefix(locator, fileScheme))
	rel, err := filepath.Rel(fs.basePath, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q is outside %s", ErrInvalidLocator, locator, fs.basePath)
	}
	return path, nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
