// Package watcher triggers a sync whenever the watched repository's git
// metadata changes. Bursts of filesystem events (a single commit touches
// several files under .git) are debounced into one notification; an
// optional periodic resync covers events we may have missed.
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bpineau/katagrafi/pkg/event"
)

// DebounceDelay is the quiet period before a change notification fires
var DebounceDelay = 500 * time.Millisecond

type logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Watcher observes a repository's metadata and notifies on changes
type Watcher struct {
	logger     logger
	notifier   event.Notifier
	repoPath   string
	resyncIntv time.Duration
	fsw        *fsnotify.Watcher
	stopch     chan struct{}
	donech     chan struct{}
}

// New creates a new repository Watcher. resync set to 0 disables the
// periodic full resync.
func New(log logger, notif event.Notifier, repoPath string, resync time.Duration) *Watcher {
	return &Watcher{
		logger:     log,
		notifier:   notif,
		repoPath:   repoPath,
		resyncIntv: resync,
	}
}

// Start begins watching in a detached goroutine, after notifying once so
// commits made while we weren't running get synced right away
func (w *Watcher) Start() (*Watcher, error) {
	w.logger.Infof("Starting repository watcher")
	w.stopch = make(chan struct{})
	w.donech = make(chan struct{})

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create a filesystem watcher: %v", err)
	}
	w.fsw = fsw

	gitdir := filepath.Join(w.repoPath, ".git")
	if err := fsw.Add(gitdir); err != nil {
		// not a repository yet; watch the parent so we catch a later init
		if err := fsw.Add(w.repoPath); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %v", w.repoPath, err)
		}
	} else {
		heads := filepath.Join(gitdir, "refs", "heads")
		if err := fsw.Add(heads); err != nil {
			w.logger.Errorf("failed to watch %s: %v", heads, err)
		}
	}

	w.notify()

	go w.watch()

	return w, nil
}

// Stop halts the watcher
func (w *Watcher) Stop() {
	w.logger.Infof("Stopping repository watcher")
	close(w.stopch)
	_ = w.fsw.Close()
	<-w.donech
}

func (w *Watcher) watch() {
	defer close(w.donech)

	debounce := time.NewTimer(DebounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	var resync <-chan time.Time
	if w.resyncIntv > 0 {
		ticker := time.NewTicker(w.resyncIntv)
		defer ticker.Stop()
		resync = ticker.C
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if relevant(ev) {
				debounce.Reset(DebounceDelay)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("filesystem watch error: %v", err)
		case <-debounce.C:
			w.notify()
		case <-resync:
			w.notify()
		case <-w.stopch:
			return
		}
	}
}

func (w *Watcher) notify() {
	w.notifier.Send(&event.Notification{RepoPath: w.repoPath})
}

// relevant filters out git's transient lock files, which would otherwise
// double every trigger
func relevant(ev fsnotify.Event) bool {
	return !strings.HasSuffix(ev.Name, ".lock")
}
