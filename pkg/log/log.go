// Package log initialize and configure a logrus logger.
package log

import (
	"github.com/sirupsen/logrus"
)

const (
	outputStdout = "stdout"
	outputStderr = "stderr"
	outputTest   = "test"
	outputSyslog = "syslog"
)

// New initialize logrus and return a new logger.
func New(logLevel string, logServer string, logOutput string) *logrus.Logger {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	output, hook, err := getOutput(logServer, logOutput)
	if err != nil {
		panic(err)
	}

	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}

	log := &logrus.Logger{
		Out:       output,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     level,
	}

	if logOutput == outputSyslog || logOutput == outputTest {
		log.Hooks.Add(hook)
	}

	return log
}
