package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Output must not be stdout, which
// carries the MCP stream.
func NewLogger(out io.Writer, verbosity int) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(levelForVerbosity(verbosity))
	return logger
}

// levelForVerbosity maps -v counts: none → warn, -v → info, -vv → debug.
func levelForVerbosity(verbosity int) logrus.Level {
	switch {
	case verbosity <= 0:
		return logrus.WarnLevel
	case verbosity == 1:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
