// Package storage provides temporary spooling for uploaded recordings and
// the archive where processed recordings are stored under their generated
// name. Implementations exist for local disk and S3.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidName is returned when an archive name is empty or contains a
// path element.
var ErrInvalidName = errors.New("storage: archive name must be a plain file name")

// ArchiveRequest describes one object to archive.
type ArchiveRequest struct {
	// Dir is the caller-chosen storage path. It is always resolved inside
	// the backend's root (local) or bucket (S3).
	Dir  string
	Name string
	Body io.Reader

	ContentType string
	// Metadata is stored alongside the object when the backend supports it.
	Metadata map[string]string
}

// Archived describes a stored object.
type Archived struct {
	Location string `json:"location"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
}

// Storage defines temporary file handling and archiving.
type Storage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp reads a temporary file and returns a reader.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Archive stores the object under Dir/Name.
	Archive(ctx context.Context, req ArchiveRequest) (Archived, error)
}

// archiveKey returns the slash-separated relative key for dir/name.
func archiveKey(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	clean := path.Clean("/" + strings.ReplaceAll(dir, `\`, "/"))
	return strings.TrimPrefix(path.Join(clean, name), "/"), nil
}
