package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	repoPath   string
	githubRepo string
	githubBr   string
	githubTok  string
	logPath    string
	mirrorPath string
	dryRun     bool
	logLevel   string
	logOutput  string
	logServer  string
	healthP    int
	resyncInt  int
	maxAtt     int
)

func bindPFlag(key string, cmd string) {
	if err := viper.BindPFlag(key, RootCmd.PersistentFlags().Lookup(cmd)); err != nil {
		log.Fatal("Failed to bind cli argument:", err)
	}
}

func init() {
	cobra.OnInitialize(loadConfigFile)
	RootCmd.AddCommand(versionCmd)

	defaultCfg := "/etc/katagrafi/" + appName + ".yaml"
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultCfg, "Configuration file")

	RootCmd.PersistentFlags().StringVarP(&repoPath, "repo-path", "w", ".", "Local git repository to watch")
	bindPFlag("repo-path", "repo-path")

	RootCmd.PersistentFlags().StringVarP(&githubRepo, "github-repo", "g", "", "GitHub repository hosting the log file, as 'owner/name'")
	bindPFlag("github-repo", "github-repo")

	RootCmd.PersistentFlags().StringVarP(&githubBr, "github-branch", "b", "", "Branch receiving log updates (repository default if empty)")
	bindPFlag("github-branch", "github-branch")

	RootCmd.PersistentFlags().StringVarP(&githubTok, "github-token", "t", "", "GitHub api token")
	bindPFlag("github-token", "github-token")
	if err := viper.BindEnv("github-token", "GITHUB_TOKEN"); err != nil {
		log.Fatal("Failed to bind cli argument:", err)
	}

	RootCmd.PersistentFlags().StringVarP(&logPath, "log-path", "f", "commits.log", "Path of the log file within the remote repository")
	bindPFlag("log-path", "log-path")

	RootCmd.PersistentFlags().StringVarP(&mirrorPath, "mirror-path", "e", "", "Local mirror of the log file (defaults to ~/.katagrafi/commits.log)")
	bindPFlag("mirror-path", "mirror-path")

	RootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "Dry-run mode: don't write anything")
	bindPFlag("dry-run", "dry-run")

	RootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "v", "info", "Log level")
	bindPFlag("log-level", "log-level")

	RootCmd.PersistentFlags().StringVarP(&logOutput, "log-output", "o", "stderr", "Log output")
	bindPFlag("log-output", "log-output")

	RootCmd.PersistentFlags().StringVarP(&logServer, "log-server", "r", "", "Log server (if using syslog)")
	bindPFlag("log-server", "log-server")

	RootCmd.PersistentFlags().IntVarP(&healthP, "healthcheck-port", "p", 0, "Port for answering healthchecks on /health url")
	bindPFlag("healthcheck-port", "healthcheck-port")

	RootCmd.PersistentFlags().IntVarP(&resyncInt, "resync-interval", "i", 900, "Full resync interval in seconds (0 to disable)")
	bindPFlag("resync-interval", "resync-interval")

	RootCmd.PersistentFlags().IntVarP(&maxAtt, "max-attempts", "m", 5, "Max write attempts when the remote file changes concurrently")
	bindPFlag("max-attempts", "max-attempts")
}
