package config

import (
	"time"

	"github.com/bpineau/katagrafi/pkg/log"
	"github.com/bpineau/katagrafi/pkg/remote"
)

// FakeResyncInterval is the interval between resyncs during unit tests
var FakeResyncInterval = time.Duration(time.Second)

// FakeConfig returns a configuration struct using an in-memory store, for unit tests
func FakeConfig() *KgConfig {
	c := &KgConfig{
		DryRun:     true,
		Logger:     log.New("", "", "test"),
		RepoPath:   "/tmp/katagrafi",
		RemotePath: "commits.log",
		MirrorPath: "/tmp/katagrafi-mirror.log",
		Store:      remote.NewFakeStore(),
		ResyncIntv: FakeResyncInterval,
	}

	return c
}
