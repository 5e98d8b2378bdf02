// Package remote abstracts the hosted store holding the shared log file.
// Files are versioned by an opaque tag; writes are conditioned on the tag
// observed at read time, so concurrent writers can't silently overwrite
// each other (they get ErrConflict and must re-read).
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the remote file doesn't exist yet
	ErrNotFound = errors.New("remote file not found")

	// ErrConflict means the remote file changed since it was fetched
	ErrConflict = errors.New("remote file changed concurrently")
)

// File is a remote file's content at a given version
type File struct {
	Content string
	Tag     string
}

// Store reads and conditionally writes versioned remote files
type Store interface {
	// GetFile fetches a file and its current version tag, or ErrNotFound
	GetFile(ctx context.Context, path string) (*File, error)

	// PutFile replaces a file's content, provided its current version tag
	// still matches expectedTag, and returns the new tag. An empty
	// expectedTag means "create": it fails with ErrConflict if the file
	// appeared in the meantime, as does a stale tag.
	PutFile(ctx context.Context, path, content, message, expectedTag string) (string, error)
}
