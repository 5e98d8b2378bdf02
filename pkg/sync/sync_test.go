package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/bpineau/katagrafi/pkg/commit"
	"github.com/bpineau/katagrafi/pkg/event"
	"github.com/bpineau/katagrafi/pkg/ledger"
	"github.com/bpineau/katagrafi/pkg/remote"
)

type mockLog struct{}

func (m *mockLog) Infof(format string, args ...interface{})  {}
func (m *mockLog) Errorf(format string, args ...interface{}) {}

var (
	logs    = new(mockLog)
	logPath = "commits.log"

	recA = &commit.Record{Hash: "deadbeef", Message: "Initial commit", Timestamp: "2024-01-01T00:00:00Z"}
	recB = &commit.Record{Hash: "cafebabe", Message: "second commit", Timestamp: "2024-01-02T00:00:00Z"}
)

func init() {
	// keep conflict retries fast in tests
	BackoffMin = time.Millisecond
	BackoffMax = 4 * time.Millisecond
}

func newSyncer(store remote.Store) *Syncer {
	return New(logs, store, event.New(), logPath, "", 0, false)
}

func TestSyncOneFreshRemote(t *testing.T) {
	appFs = afero.NewMemMapFs()
	store := remote.NewFakeStore()
	s := New(logs, store, event.New(), logPath, "/tmp/ktest/commits.log", 0, false)

	res, err := s.SyncOne(context.Background(), recA)
	if err != nil {
		t.Fatalf("SyncOne failed on a fresh remote: %v", err)
	}
	if res.Status != Appended || res.Attempts != 1 {
		t.Errorf("expected a first-attempt append, got %+v", res)
	}

	expected := "[2024-01-01T00:00:00Z] deadbeef: Initial commit\n"
	if content := store.Content(logPath); content != expected {
		t.Errorf("unexpected remote content: %q", content)
	}

	if !s.ledger.Contains(recA.Hash) {
		t.Error("the ledger should hold the appended commit")
	}

	mirror, err := afero.ReadFile(appFs, "/tmp/ktest/commits.log")
	if err != nil || string(mirror) != expected {
		t.Errorf("the local mirror should hold the full log content: %q (%v)", mirror, err)
	}
}

func TestSyncOneSkipsRecorded(t *testing.T) {
	store := remote.NewFakeStore()
	s := newSyncer(store)
	s.ledger.Record(recA.Hash)

	res, err := s.SyncOne(context.Background(), recA)
	if err != nil {
		t.Fatalf("SyncOne failed: %v", err)
	}
	if res.Status != Skipped {
		t.Errorf("expected a skip, got %+v", res)
	}
	if store.GetCalls() != 0 || store.PutCalls() != 0 {
		t.Error("a recorded commit must not cause any remote call")
	}
}

func TestSyncOneIsIdempotent(t *testing.T) {
	store := remote.NewFakeStore()
	s := newSyncer(store)
	ctx := context.Background()

	if _, err := s.SyncOne(ctx, recA); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	res, err := s.SyncOne(ctx, recA)
	if err != nil || res.Status != Skipped {
		t.Errorf("second sync should skip, got %+v (%v)", res, err)
	}
	if store.PutCalls() != 1 {
		t.Errorf("expected a single write, got %d", store.PutCalls())
	}
}

func TestSyncOneSkipsForeignEntry(t *testing.T) {
	// another writer already recorded this commit since our ledger was seeded
	store := remote.NewFakeStore()
	ctx := context.Background()
	if _, err := store.PutFile(ctx, logPath, ledger.Format(recA), "rival", ""); err != nil {
		t.Fatalf("failed to populate the store: %v", err)
	}

	s := newSyncer(store)
	res, err := s.SyncOne(ctx, recA)
	if err != nil {
		t.Fatalf("SyncOne failed: %v", err)
	}
	if res.Status != Skipped {
		t.Errorf("expected a skip over fetched content, got %+v", res)
	}
	if store.PutCalls() != 1 {
		t.Error("no write should happen for an already present entry")
	}
}

// racingStore slips a rival append between our read and our write, once
type racingStore struct {
	*remote.FakeStore
	raced bool
	rival string
}

func (r *racingStore) GetFile(ctx context.Context, path string) (*remote.File, error) {
	file, err := r.FakeStore.GetFile(ctx, path)

	if !r.raced {
		r.raced = true
		content, tag := "", ""
		if err == nil {
			content, tag = file.Content, file.Tag
		}
		if _, rerr := r.FakeStore.PutFile(ctx, path, content+r.rival, "rival", tag); rerr != nil {
			return nil, rerr
		}
	}

	return file, err
}

func TestSyncOneConflictRetry(t *testing.T) {
	rival := ledger.Format(recB)
	store := &racingStore{FakeStore: remote.NewFakeStore(), rival: rival}
	s := newSyncer(store)

	res, err := s.SyncOne(context.Background(), recA)
	if err != nil {
		t.Fatalf("SyncOne should converge after a conflict: %v", err)
	}
	if res.Status != Appended || res.Attempts != 2 {
		t.Errorf("expected an append on the second attempt, got %+v", res)
	}

	content := store.Content(logPath)
	if strings.Count(content, ledger.Format(recA)) != 1 {
		t.Errorf("our entry should appear exactly once: %q", content)
	}
	if strings.Count(content, rival) != 1 {
		t.Errorf("the rival entry must survive intact: %q", content)
	}
}

// contendedStore answers every write with a conflict
type contendedStore struct {
	*remote.FakeStore
}

func (c *contendedStore) PutFile(ctx context.Context, path, content, message, expectedTag string) (string, error) {
	return "", remote.ErrConflict
}

func TestSyncOneRetriesExhausted(t *testing.T) {
	store := &contendedStore{FakeStore: remote.NewFakeStore()}
	s := New(logs, store, event.New(), logPath, "", 3, false)

	_, err := s.SyncOne(context.Background(), recA)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted, got %v", err)
	}
	if s.ledger.Contains(recA.Hash) {
		t.Error("the ledger must not claim a commit we failed to write")
	}
}

// failingStore errors out on writes
type failingStore struct {
	*remote.FakeStore
}

func (f *failingStore) PutFile(ctx context.Context, path, content, message, expectedTag string) (string, error) {
	return "", errors.New("remote unavailable")
}

func TestSyncOneFatalError(t *testing.T) {
	store := &failingStore{FakeStore: remote.NewFakeStore()}
	s := newSyncer(store)

	_, err := s.SyncOne(context.Background(), recA)
	if err == nil || errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("a non-conflict failure should surface as a fatal error, got %v", err)
	}
	if s.ledger.Contains(recA.Hash) {
		t.Error("the ledger must stay clean after a failed write")
	}

	// a later trigger retries from scratch
	s.store = remote.NewFakeStore()
	res, err := s.SyncOne(context.Background(), recA)
	if err != nil || res.Status != Appended {
		t.Errorf("the commit should sync once the remote recovers, got %+v (%v)", res, err)
	}
}

func TestSyncOneDryRun(t *testing.T) {
	store := remote.NewFakeStore()
	s := New(logs, store, event.New(), logPath, "", 0, true)

	res, err := s.SyncOne(context.Background(), recA)
	if err != nil || res.Status != Skipped {
		t.Errorf("dry-run should skip, got %+v (%v)", res, err)
	}
	if store.GetCalls() != 0 || store.PutCalls() != 0 {
		t.Error("dry-run shouldn't touch the remote store")
	}
}

func TestConcurrentSyncersConverge(t *testing.T) {
	store := remote.NewFakeStore()
	s1 := newSyncer(store)
	s2 := newSyncer(store)

	done := make(chan struct{}, 2)
	go func() {
		defer func() { done <- struct{}{} }()
		if _, err := s1.SyncOne(context.Background(), recA); err != nil {
			t.Errorf("syncer 1 failed: %v", err)
		}
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		if _, err := s2.SyncOne(context.Background(), recB); err != nil {
			t.Errorf("syncer 2 failed: %v", err)
		}
	}()
	<-done
	<-done

	content := store.Content(logPath)
	if strings.Count(content, ledger.Format(recA)) != 1 ||
		strings.Count(content, ledger.Format(recB)) != 1 {
		t.Errorf("both commits should appear exactly once: %q", content)
	}
}

// fakeSource hands out a fixed commit record
type fakeSource struct {
	rec *commit.Record
}

func (f *fakeSource) Latest(path string) (*commit.Record, error) {
	if f.rec == nil {
		return nil, commit.ErrNoCommits
	}
	return f.rec, nil
}

func TestSyncerLoop(t *testing.T) {
	appFs = afero.NewMemMapFs()
	store := remote.NewFakeStore()
	evts := event.New()

	s := New(logs, store, evts, logPath, "", 0, false)
	s.source = &fakeSource{rec: recA}
	s.Start()

	evts.Send(&event.Notification{RepoPath: "/some/repo"})

	deadline := time.After(5 * time.Second)
	for store.Content(logPath) == "" {
		select {
		case <-deadline:
			t.Fatal("the syncer didn't process the notification in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()

	if !s.ledger.Contains(recA.Hash) {
		t.Error("the loop should record synced commits")
	}
}

func TestSyncerSeed(t *testing.T) {
	store := remote.NewFakeStore()
	ctx := context.Background()
	if _, err := store.PutFile(ctx, logPath, ledger.Format(recA)+ledger.Format(recB), "seed", ""); err != nil {
		t.Fatalf("failed to populate the store: %v", err)
	}

	s := newSyncer(store)
	s.Start()
	s.Stop()

	if !s.ledger.Contains(recA.Hash) || !s.ledger.Contains(recB.Hash) {
		t.Error("Start should seed the ledger from the remote content")
	}
}

func TestSyncerLoopSkipsEmptyRepos(t *testing.T) {
	store := remote.NewFakeStore()
	evts := event.New()

	s := New(logs, store, evts, logPath, "", 0, false)
	s.source = &fakeSource{}
	s.Start()

	evts.Send(&event.Notification{RepoPath: "/some/repo"})
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if store.PutCalls() != 0 {
		t.Error("nothing should be written for a repository without commits")
	}
}
