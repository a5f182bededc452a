package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements Storage on local disk. Temporary files live in
// tempDir and archived objects under archiveDir.
type LocalStorage struct {
	tempDir    string
	archiveDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If tempDir is empty, a directory under os.TempDir() is used. If archiveDir
// is empty, archives are written to an "archive" directory inside tempDir.
// Both directories are created if they don't exist.
func NewLocalStorage(tempDir, archiveDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "audio-nuit")
	}
	if archiveDir == "" {
		archiveDir = filepath.Join(tempDir, "archive")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	if err := os.MkdirAll(archiveDir, 0750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir, archiveDir: archiveDir}, nil
}

// TempDir returns the temporary directory path.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// ArchiveDir returns the archive root.
func (s *LocalStorage) ArchiveDir() string {
	return s.archiveDir
}

// SaveTemp saves data to a temporary file and returns the file path.
// The name is used as a base for the filename with a unique suffix.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(s.tempDir, filepath.Base(name)+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// LoadTemp reads a temporary file and returns a reader.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.Open(path) // #nosec G304 - path is produced by SaveTemp
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}

	return f, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Archive writes the object to archiveDir/Dir/Name. An existing file with
// the same name is replaced.
func (s *LocalStorage) Archive(ctx context.Context, req ArchiveRequest) (Archived, error) {
	select {
	case <-ctx.Done():
		return Archived{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	key, err := archiveKey(req.Dir, req.Name)
	if err != nil {
		return Archived{}, err
	}
	dst := filepath.Join(s.archiveDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return Archived{}, fmt.Errorf("create archive directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(dst), ".partial_*")
	if err != nil {
		return Archived{}, fmt.Errorf("create archive file: %w", err)
	}
	tmp := f.Name()

	n, err := io.Copy(f, req.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Archived{}, fmt.Errorf("write archive file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return Archived{}, fmt.Errorf("close archive file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return Archived{}, fmt.Errorf("move archive file: %w", err)
	}

	return Archived{Location: dst, Key: key, Size: n}, nil
}
