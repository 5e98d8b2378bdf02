package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bpineau/katagrafi/pkg/remote"
)

// KgConfig is the configuration struct, passed to the services
type KgConfig struct {
	// When DryRun is true, we log what would be written but don't write
	DryRun bool

	// Logger should be used to send all logs
	Logger *logrus.Logger

	// RepoPath is the local git repository we watch for new commits
	RepoPath string

	// RemoteRepo is the GitHub repository hosting the log, as "owner/name"
	RemoteRepo string

	// RemotePath is the log file path within the remote repository
	RemotePath string

	// Branch receives the log updates (remote's default branch if empty)
	Branch string

	// Token is the GitHub api token
	Token string

	// MirrorPath is where we keep a local copy of the log file
	MirrorPath string

	// HealthPort is the facultative healthcheck port
	HealthPort int

	// ResyncIntv define the duration between full resyncs. Set to 0 to disable.
	ResyncIntv time.Duration

	// MaxAttempts bounds the write retries when the remote log is contended
	MaxAttempts int

	// Store represents a connection to the remote log store
	Store remote.Store
}

// Init initialize the configuration's remote Store
func (c *KgConfig) Init() error {
	var err error

	c.RepoPath, err = filepath.Abs(c.RepoPath)
	if err != nil {
		return fmt.Errorf("can't find the repository's absolute path: %v", err)
	}

	if c.MirrorPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("can't locate the home directory for the log mirror: %v", err)
		}
		c.MirrorPath = filepath.Join(home, ".katagrafi", "commits.log")
	}

	if c.Store == nil {
		owner, name, found := strings.Cut(c.RemoteRepo, "/")
		if !found || owner == "" || name == "" {
			return fmt.Errorf("github-repo must be of the 'owner/name' form (got %q)", c.RemoteRepo)
		}

		if c.Token == "" {
			return fmt.Errorf("a github token is required (--github-token or GITHUB_TOKEN)")
		}

		c.Store = remote.NewGitHub(c.Token, owner, name, c.Branch)
	}

	// better fail early, if we can't reach the remote store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = c.Store.GetFile(ctx, c.RemotePath)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("failed to query the remote log store: %v", err)
	}

	c.Logger.Info("Remote log store initialized")
	return nil
}
