package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// initLogger builds the process logger. Debug mode forces debug level and
// colored text; otherwise level comes from the config and entries are JSON.
// A non-empty logFile adds a rotated copy of the output.
func initLogger(debugMode bool, level logrus.Level, logFile string) (*logrus.Logger, io.Closer) {
	logger := logrus.New()

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		out = io.MultiWriter(os.Stdout, rotated)
		closer = rotated
	}
	logger.SetOutput(out)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   logFile == "",
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(level)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger, closer
}
