// Package commit reads the most recent commit from a local git repository.
package commit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrNotARepository means the path doesn't host a git repository
	ErrNotARepository = errors.New("not a git repository")

	// ErrNoCommits means the repository exists but has no commit yet
	ErrNoCommits = errors.New("repository has no commits")
)

// Record describes a single commit
type Record struct {
	Hash      string
	Message   string
	Timestamp string
}

// Reader reads commits from local repositories
type Reader struct{}

// NewReader creates a commit Reader
func NewReader() *Reader {
	return &Reader{}
}

// Latest returns the most recent commit on the currently checked out
// branch. It returns ErrNotARepository or ErrNoCommits (to be skipped
// silently by callers) when there's nothing to read.
func (r *Reader) Latest(path string) (*Record, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNotARepository
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %v", path, err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrNoCommits
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD in %s: %v", path, err)
	}

	obj, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %v", head.Hash(), err)
	}

	return &Record{
		Hash:      obj.Hash.String(),
		Message:   subject(obj.Message),
		Timestamp: obj.Author.When.UTC().Format(time.RFC3339),
	}, nil
}

// subject returns the first line of a commit message
func subject(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}
	return strings.TrimSpace(message)
}
