// Package run implements the main katagrafi's loop, starting and
// stopping all services.
package run

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bpineau/katagrafi/config"
	"github.com/bpineau/katagrafi/pkg/event"
	"github.com/bpineau/katagrafi/pkg/health"
	"github.com/bpineau/katagrafi/pkg/sync"
	"github.com/bpineau/katagrafi/pkg/watcher"
)

// Run launchs the services
func Run(config *config.KgConfig) {
	evts := event.New()

	syncer := sync.New(config.Logger, config.Store, evts, config.RemotePath,
		config.MirrorPath, config.MaxAttempts, config.DryRun).Start()

	wtch, err := watcher.New(config.Logger, evts, config.RepoPath, config.ResyncIntv).Start()
	if err != nil {
		config.Logger.Fatalf("failed to start the repository watcher: %v", err)
	}

	http := health.New(config.Logger, config.HealthPort).Start()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGTERM)
	signal.Notify(sigterm, syscall.SIGINT)
	<-sigterm

	wtch.Stop()
	syncer.Stop()
	http.Stop()
}
