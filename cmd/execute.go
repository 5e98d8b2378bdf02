package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bpineau/katagrafi/config"
	klog "github.com/bpineau/katagrafi/pkg/log"
	"github.com/bpineau/katagrafi/pkg/remote"
	"github.com/bpineau/katagrafi/pkg/run"
)

const appName = "katagrafi"

var (
	// FakeStore replaces the GitHub backed store by an in-memory fake
	FakeStore bool

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   appName,
		Short: "Mirror a git repository's commit log to a remote hosted file",
		Long:  "Mirror a git repository's commit log to a remote hosted file",

		RunE: func(cmd *cobra.Command, args []string) error {
			conf := &config.KgConfig{
				DryRun:      viper.GetBool("dry-run"),
				Logger:      klog.New(viper.GetString("log-level"), viper.GetString("log-server"), viper.GetString("log-output")),
				RepoPath:    viper.GetString("repo-path"),
				RemoteRepo:  viper.GetString("github-repo"),
				RemotePath:  viper.GetString("log-path"),
				Branch:      viper.GetString("github-branch"),
				Token:       viper.GetString("github-token"),
				MirrorPath:  viper.GetString("mirror-path"),
				HealthPort:  viper.GetInt("healthcheck-port"),
				ResyncIntv:  time.Duration(viper.GetInt("resync-interval")) * time.Second,
				MaxAttempts: viper.GetInt("max-attempts"),
			}
			if FakeStore {
				conf.Store = remote.NewFakeStore()
			}
			if err := conf.Init(); err != nil {
				return fmt.Errorf("Failed to initialize the configuration: %v", err)
			}
			run.Run(conf)
			return nil
		},
	}
)

// Execute adds all child commands to the root command and sets their flags.
func Execute() error {
	return RootCmd.Execute()
}
