// Package sync appends newly observed commits to the remote log file,
// exactly once each. Concurrent writers are reconciled by the store's
// conditional write: on conflict we re-fetch and retry over fresh content,
// with a bounded exponential backoff.
package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/bpineau/katagrafi/pkg/commit"
	"github.com/bpineau/katagrafi/pkg/event"
	"github.com/bpineau/katagrafi/pkg/ledger"
	"github.com/bpineau/katagrafi/pkg/remote"
)

var (
	// DefaultMaxAttempts bounds the fetch/write cycles of a single sync
	DefaultMaxAttempts = 5

	// BackoffMin is the delay before the first retry on conflict
	BackoffMin = 100 * time.Millisecond

	// BackoffMax caps the retry delay growth
	BackoffMax = 2 * time.Second

	// PutMessage is the change message sent along remote writes
	PutMessage = "katagrafi log update"

	// ErrRetriesExhausted means the remote file kept changing under us
	ErrRetriesExhausted = errors.New("too many concurrent remote updates, giving up")
)

var appFs = afero.NewOsFs()

// Status describes a sync outcome
type Status int

const (
	// Skipped means the commit was already recorded, nothing was written
	Skipped Status = iota

	// Appended means the commit's log entry was durably written
	Appended
)

// Result reports what a sync did
type Result struct {
	Status   Status
	Attempts int
}

type logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type source interface {
	Latest(path string) (*commit.Record, error)
}

// Syncer consumes repository change notifications and mirrors the latest
// commit of each to the remote log file
type Syncer struct {
	logger      logger
	store       remote.Store
	notifier    event.Notifier
	source      source
	ledger      *ledger.Ledger
	remotePath  string
	mirrorPath  string
	maxAttempts int
	dryRun      bool
	stopch      chan struct{}
	donech      chan struct{}
}

// New creates a new Syncer. mirrorPath is optional (no local mirror kept
// when empty); maxAttempts defaults to DefaultMaxAttempts when 0.
func New(log logger, store remote.Store, notif event.Notifier, remotePath, mirrorPath string, maxAttempts int, dryRun bool) *Syncer {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Syncer{
		logger:      log,
		store:       store,
		notifier:    notif,
		source:      commit.NewReader(),
		ledger:      ledger.New(),
		remotePath:  remotePath,
		mirrorPath:  mirrorPath,
		maxAttempts: maxAttempts,
		dryRun:      dryRun,
	}
}

// Start seeds the ledger from the remote file's current content, then
// consumes change notifications in a detached goroutine
func (s *Syncer) Start() *Syncer {
	s.logger.Infof("Starting commit log syncer")
	s.stopch = make(chan struct{})
	s.donech = make(chan struct{})

	s.seed()

	go func() {
		defer close(s.donech)
		for {
			select {
			case notif := <-s.notifier.ReadChan():
				s.processEvent(&notif)
			case <-s.stopch:
				return
			}
		}
	}()

	return s
}

// Stop halts the syncer goroutine
func (s *Syncer) Stop() {
	s.logger.Infof("Stopping commit log syncer")
	close(s.stopch)
	<-s.donech
}

// seed populates the ledger from the remote log. Failures aren't fatal:
// SyncOne re-reads the remote content anyway before each write.
func (s *Syncer) seed() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	file, err := s.store.GetFile(ctx, s.remotePath)
	if errors.Is(err, remote.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Errorf("failed to seed ledger from remote log: %v", err)
		return
	}

	s.logger.Infof("Loaded %d recorded commits from the remote log", s.ledger.Load(file.Content))
}

func (s *Syncer) processEvent(notif *event.Notification) {
	rec, err := s.source.Latest(notif.RepoPath)
	if errors.Is(err, commit.ErrNotARepository) || errors.Is(err, commit.ErrNoCommits) {
		return
	}
	if err != nil {
		s.logger.Errorf("failed to read last commit from %s: %v", notif.RepoPath, err)
		return
	}

	res, err := s.SyncOne(context.Background(), rec)
	if err != nil {
		s.logger.Errorf("failed to sync commit %s: %v", rec.Hash, err)
		return
	}

	if res.Status == Appended {
		s.logger.Infof("Recorded commit %s (%d attempts)", rec.Hash, res.Attempts)
	}
}

// SyncOne ensures exactly one log entry for rec exists in the remote file,
// then marks it recorded. Already recorded commits are skipped without any
// remote call. The ledger is only mutated after a confirmed durable write,
// so a failed sync is retried from scratch by the next notification.
func (s *Syncer) SyncOne(ctx context.Context, rec *commit.Record) (*Result, error) {
	if s.ledger.Contains(rec.Hash) {
		return &Result{Status: Skipped}, nil
	}

	if s.dryRun {
		s.logger.Infof("dry-run: would append %s to the remote log", rec.Hash)
		return &Result{Status: Skipped}, nil
	}

	timer := newBackoffTimer(BackoffMin, BackoffMax)
	defer timer.Stop()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		content := ""
		tag := ""

		file, err := s.store.GetFile(ctx, s.remotePath)
		switch {
		case errors.Is(err, remote.ErrNotFound):
			// first write creates the file, no precondition tag
		case err != nil:
			return nil, fmt.Errorf("failed to fetch the remote log: %v", err)
		default:
			content = file.Content
			tag = file.Tag
		}

		// another writer (or a past run of ours) may have recorded this
		// commit since the ledger was seeded
		s.ledger.Load(content)
		if s.ledger.Contains(rec.Hash) {
			return &Result{Status: Skipped, Attempts: attempt}, nil
		}

		newContent := content + ledger.Format(rec)

		_, err = s.store.PutFile(ctx, s.remotePath, newContent, PutMessage, tag)
		if errors.Is(err, remote.ErrConflict) {
			s.logger.Infof("remote log changed concurrently, retrying (attempt %d)", attempt)
			select {
			case <-timer.channel():
				timer.backoff()
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write the remote log: %v", err)
		}

		s.ledger.Record(rec.Hash)
		s.mirror(newContent)

		return &Result{Status: Appended, Attempts: attempt}, nil
	}

	return nil, ErrRetriesExhausted
}

// mirror overwrites the local copy of the full log content. It's a
// convenience for human inspection, failures don't affect correctness.
func (s *Syncer) mirror(content string) {
	if s.mirrorPath == "" {
		return
	}

	dir := filepath.Dir(filepath.Clean(s.mirrorPath))
	if err := appFs.MkdirAll(dir, 0700); err != nil {
		s.logger.Errorf("failed to create %s: %v", dir, err)
		return
	}

	if err := afero.WriteFile(appFs, s.mirrorPath, []byte(content), 0600); err != nil {
		s.logger.Errorf("failed to write local mirror %s: %v", s.mirrorPath, err)
	}
}
