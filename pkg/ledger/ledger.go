// Package ledger tracks which commits were already recorded in the remote
// log file, and owns the log line format used on the wire.
package ledger

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/bpineau/katagrafi/pkg/commit"
)

// Log lines look like "[<timestamp>] <hash>: <message>". The hash field is
// constrained to an hex run so a "] " sequence in the message can't shift
// the parse; our own timestamps (RFC3339) never contain "] ".
var lineRE = regexp.MustCompile(`^\[(.+?)\] ([0-9a-f]{4,64}): (.*)$`)

// Format serializes a commit as a single log line
func Format(rec *commit.Record) string {
	return fmt.Sprintf("[%s] %s: %s\n", rec.Timestamp, rec.Hash, rec.Message)
}

// Parse extracts a commit from a log line. Returns false on lines that
// don't match the format.
func Parse(line string) (*commit.Record, bool) {
	m := lineRE.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return nil, false
	}

	return &commit.Record{Timestamp: m[1], Hash: m[2], Message: m[3]}, true
}

// Ledger is the in-memory set of commit hashes already recorded remotely.
// It's a cache over the remote file's content, never a source of truth.
type Ledger struct {
	seen map[string]struct{}
}

// New creates an empty Ledger
func New() *Ledger {
	return &Ledger{
		seen: make(map[string]struct{}),
	}
}

// Load collects the hashes of all well-formed log lines in content, and
// returns the count of hashes found. Malformed or partial lines are
// skipped: the remote file may hold anything, a bad line must not abort
// the load. Loading the same content twice is a no-op.
func (l *Ledger) Load(content string) int {
	found := 0
	scanner := bufio.NewScanner(strings.NewReader(content))

	for scanner.Scan() {
		rec, ok := Parse(scanner.Text())
		if !ok {
			continue
		}
		l.seen[rec.Hash] = struct{}{}
		found++
	}

	return found
}

// Contains tests whether a commit hash was already recorded
func (l *Ledger) Contains(hash string) bool {
	_, ok := l.seen[hash]
	return ok
}

// Record marks a commit hash as recorded. This is local bookkeeping only,
// to be called once the remote write is confirmed durable.
func (l *Ledger) Record(hash string) {
	l.seen[hash] = struct{}{}
}

// Len returns the number of recorded hashes
func (l *Ledger) Len() int {
	return len(l.seen)
}
