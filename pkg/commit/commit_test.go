package commit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func newTestRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init a test repository: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get the test worktree: %v", err)
	}

	return dir, wt
}

func addCommit(t *testing.T, dir string, wt *git.Worktree, file, message string, when time.Time) string {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, file), []byte("content\n"), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", file, err)
	}
	if _, err := wt.Add(file); err != nil {
		t.Fatalf("failed to stage %s: %v", file, err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@test", When: when},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	return hash.String()
}

func TestLatest(t *testing.T) {
	dir, wt := newTestRepo(t)
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	addCommit(t, dir, wt, "first.txt", "first commit", when)
	hash := addCommit(t, dir, wt, "second.txt", "Second commit\n\nwith a longer body\n", when.Add(time.Hour))

	rec, err := NewReader().Latest(dir)
	if err != nil {
		t.Fatalf("Latest failed on a valid repository: %v", err)
	}

	if rec.Hash != hash {
		t.Errorf("expected the most recent commit %s, got %s", hash, rec.Hash)
	}
	if rec.Message != "Second commit" {
		t.Errorf("expected the commit subject only, got %q", rec.Message)
	}
	if rec.Timestamp != "2024-01-01T01:00:00Z" {
		t.Errorf("unexpected timestamp %q", rec.Timestamp)
	}
}

func TestLatestNotARepository(t *testing.T) {
	_, err := NewReader().Latest(t.TempDir())
	if !errors.Is(err, ErrNotARepository) {
		t.Errorf("expected ErrNotARepository, got %v", err)
	}
}

func TestLatestNoCommits(t *testing.T) {
	dir, _ := newTestRepo(t)

	_, err := NewReader().Latest(dir)
	if !errors.Is(err, ErrNoCommits) {
		t.Errorf("expected ErrNoCommits on an empty repository, got %v", err)
	}
}
